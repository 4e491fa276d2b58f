package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
)

// Result is the classified outcome of one connector call. The dispatcher and
// DLQ route on Category and never inspect platform-specific payloads.
type Result struct {
	Success         bool
	PlatformTraceID string
	StatusCode      int
	ErrorCode       string
	Category        enums.ErrorCategory
	RawResponse     string
}

// Connector owns one platform's wire mapping and error classification.
type Connector interface {
	Platform() enums.Platform
	Deliver(ctx context.Context, event conversion.NormalizedEvent) Result
}

// Doer abstracts the HTTP client so tests can stub transport behavior.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Registry resolves connectors by platform.
type Registry struct {
	connectors map[enums.Platform]Connector
}

// NewRegistry indexes the provided connectors by platform.
func NewRegistry(connectors ...Connector) (*Registry, error) {
	index := make(map[enums.Platform]Connector, len(connectors))
	for _, c := range connectors {
		if c == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "nil connector")
		}
		platform := c.Platform()
		if _, exists := index[platform]; exists {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate connector for platform %q", platform))
		}
		index[platform] = c
	}
	return &Registry{connectors: index}, nil
}

// Get returns the connector for the platform.
func (r *Registry) Get(platform enums.Platform) (Connector, error) {
	c, ok := r.connectors[platform]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no connector registered for platform %q", platform))
	}
	return c, nil
}

// Platforms lists the registered platforms.
func (r *Registry) Platforms() []enums.Platform {
	platforms := make([]enums.Platform, 0, len(r.connectors))
	for p := range r.connectors {
		platforms = append(platforms, p)
	}
	return platforms
}

// classifyStatus maps an HTTP status to the shared error taxonomy.
func classifyStatus(status int) enums.ErrorCategory {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return enums.ErrorCategoryAuth
	case status == http.StatusTooManyRequests:
		return enums.ErrorCategoryRateLimited
	case status >= 400 && status < 500:
		return enums.ErrorCategoryPermanent
	default:
		return enums.ErrorCategoryTransient
	}
}

// transportResult converts a transport-level failure into a Result. Timeouts
// and cancellations count as transient.
func transportResult(err error) Result {
	code := "transport_error"
	if errors.Is(err, context.DeadlineExceeded) {
		code = "timeout"
	}
	return Result{
		Success:     false,
		ErrorCode:   code,
		Category:    enums.ErrorCategoryTransient,
		RawResponse: err.Error(),
	}
}
