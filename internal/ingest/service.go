package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/dedupe"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/dispatch"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/tenants"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
)

// Dispatch modes. Inline runs the state machine synchronously; queue hands
// the normalized event to the async worker. Both converge on the same
// dispatcher.
const (
	ModeInline = "inline"
	ModeQueue  = "queue"
)

// Dispatcher runs the delivery state machine.
type Dispatcher interface {
	Dispatch(ctx context.Context, event conversion.NormalizedEvent) (dispatch.Outcome, error)
}

// Publisher hands a normalized event to the async dispatch path.
type Publisher interface {
	Publish(ctx context.Context, event conversion.NormalizedEvent) error
}

// SettingsResolver returns the effective tenant/platform configuration.
type SettingsResolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID, platform enums.Platform) (tenants.Settings, error)
}

// PlatformReceipt is the per-platform acknowledgment returned to the
// submitter.
type PlatformReceipt struct {
	Platform          enums.Platform `json:"platform"`
	DedupeKey         string         `json:"dedupe_key"`
	MatchQualityScore int            `json:"match_quality_score"`
}

// Receipt is the synchronous submission response. Delivery outcomes are
// observable only through the logs and the DLQ, never here.
type Receipt struct {
	Accepted bool              `json:"accepted"`
	Results  []PlatformReceipt `json:"results"`
}

// ServiceParams groups dependencies for the ingest service.
type ServiceParams struct {
	Dispatcher Dispatcher
	Publisher  Publisher
	Resolver   SettingsResolver
	Logger     *logger.Logger
	Mode       string
	Now        func() time.Time
}

// Service accepts raw submissions and routes normalized events to delivery.
type Service interface {
	Submit(ctx context.Context, raw conversion.RawEvent) (Receipt, error)
}

type service struct {
	dispatcher Dispatcher
	publisher  Publisher
	resolver   SettingsResolver
	logg       *logger.Logger
	mode       string
	now        func() time.Time
}

// NewService builds the ingest service. Inline mode needs a dispatcher,
// queue mode a publisher.
func NewService(params ServiceParams) (Service, error) {
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settings resolver is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	switch params.Mode {
	case ModeInline:
		if params.Dispatcher == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "inline mode requires a dispatcher")
		}
	case ModeQueue:
		if params.Publisher == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "queue mode requires a publisher")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispatch mode must be inline or queue")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		dispatcher: params.Dispatcher,
		publisher:  params.Publisher,
		resolver:   params.Resolver,
		logg:       params.Logger,
		mode:       params.Mode,
		now:        now,
	}, nil
}

// Submit validates, normalizes per platform, stamps dedupe keys, and routes
// to delivery. Malformed input is the only rejection path; platform-side
// failures never surface here.
func (s *service) Submit(ctx context.Context, raw conversion.RawEvent) (Receipt, error) {
	if err := raw.Validate(); err != nil {
		return Receipt{}, err
	}

	ctx = s.logg.WithTenantID(ctx, raw.TenantID.String())
	ctx = s.logg.WithEventID(ctx, raw.EventID)

	receipt := Receipt{Accepted: true, Results: make([]PlatformReceipt, 0, len(raw.Platforms))}

	for _, name := range raw.Platforms {
		platform, err := enums.ParsePlatform(name)
		if err != nil {
			return Receipt{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported platform")
		}

		settings, err := s.resolver.Resolve(ctx, raw.TenantID, platform)
		if err != nil {
			return Receipt{}, err
		}

		event, err := conversion.Normalize(raw, platform, settings.Weights, s.now())
		if err != nil {
			return Receipt{}, err
		}

		key, err := dedupe.Key(settings.DedupeStrategy, event)
		if err != nil {
			return Receipt{}, err
		}
		event.DedupeKey = key

		receipt.Results = append(receipt.Results, PlatformReceipt{
			Platform:          platform,
			DedupeKey:         key,
			MatchQualityScore: event.MatchQuality,
		})

		if err := s.route(ctx, event); err != nil {
			return Receipt{}, err
		}
	}

	return receipt, nil
}

func (s *service) route(ctx context.Context, event conversion.NormalizedEvent) error {
	if s.mode == ModeQueue {
		if err := s.publisher.Publish(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish conversion event")
		}
		return nil
	}

	// Inline: the submitter already holds an accepted receipt, so delivery
	// failures are logged, never returned.
	if _, err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.logg.Error(ctx, "inline dispatch failed", err)
	}
	return nil
}
