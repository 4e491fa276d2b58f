package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/identity"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/config"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
)

const googleCollectPath = "/mp/collect"

// GoogleConnector delivers events to the GA4 Measurement Protocol.
type GoogleConnector struct {
	cfg    config.GoogleConnectorConfig
	client Doer
}

// NewGoogleConnector validates credentials and builds the connector.
func NewGoogleConnector(cfg config.GoogleConnectorConfig, client Doer) (*GoogleConnector, error) {
	if cfg.MeasurementID == "" || cfg.APISecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "google measurement id and api secret are required")
	}
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "http client is required")
	}
	return &GoogleConnector{cfg: cfg, client: client}, nil
}

// Platform identifies this connector.
func (c *GoogleConnector) Platform() enums.Platform {
	return enums.PlatformGoogle
}

type googlePayload struct {
	ClientID string         `json:"client_id"`
	UserData map[string]any `json:"user_data,omitempty"`
	Events   []googleEvent  `json:"events"`
}

type googleEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// Deliver posts the event to the collect endpoint. Measurement Protocol
// replies with an empty 2xx on acceptance, so classification is status-based.
func (c *GoogleConnector) Deliver(ctx context.Context, event conversion.NormalizedEvent) Result {
	body, err := json.Marshal(c.mapEvent(event))
	if err != nil {
		return Result{
			Success:     false,
			ErrorCode:   "encode_payload",
			Category:    enums.ErrorCategoryPermanent,
			RawResponse: err.Error(),
		}
	}

	endpoint := fmt.Sprintf("%s%s?measurement_id=%s&api_secret=%s",
		c.cfg.BaseURL, googleCollectPath,
		url.QueryEscape(c.cfg.MeasurementID), url.QueryEscape(c.cfg.APISecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{
			Success:     false,
			ErrorCode:   "build_request",
			Category:    enums.ErrorCategoryPermanent,
			RawResponse: err.Error(),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return transportResult(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{
			Success:     true,
			StatusCode:  resp.StatusCode,
			RawResponse: string(raw),
		}
	}

	return Result{
		Success:     false,
		StatusCode:  resp.StatusCode,
		ErrorCode:   fmt.Sprintf("http_%d", resp.StatusCode),
		Category:    classifyStatus(resp.StatusCode),
		RawResponse: string(raw),
	}
}

func (c *GoogleConnector) mapEvent(event conversion.NormalizedEvent) googlePayload {
	userData := map[string]any{}
	if hash, ok := event.Identity.Hashed[identity.FieldEmail]; ok {
		userData["sha256_email_address"] = hash
	}
	if hash, ok := event.Identity.Hashed[identity.FieldPhone]; ok {
		userData["sha256_phone_number"] = hash
	}

	// The browser client id carries the GA session when present; fall back to
	// the stable event identity so duplicate uploads stay correlated.
	clientID := event.Identity.Plain[identity.FieldBrowserID]
	if clientID == "" {
		clientID = event.TenantID.String() + "." + event.EventID
	}

	params := map[string]any{
		"currency":       event.Currency.String(),
		"value":          event.Value.InexactFloat64(),
		"transaction_id": event.EventID,
	}

	return googlePayload{
		ClientID: clientID,
		UserData: userData,
		Events: []googleEvent{{
			Name:   event.EventName,
			Params: params,
		}},
	}
}
