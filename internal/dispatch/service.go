package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/connector"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/dedupe"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/tenants"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/metrics"
)

// LogStore is the append-only delivery log surface.
type LogStore interface {
	Append(ctx context.Context, entry *models.DeliveryLog) error
}

// DeadLetterSink receives events whose delivery cannot proceed.
type DeadLetterSink interface {
	Enqueue(ctx context.Context, event conversion.NormalizedEvent, reason string, category enums.ErrorCategory, retryCount, maxRetries int) error
}

// SettingsResolver returns the effective tenant/platform configuration.
type SettingsResolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID, platform enums.Platform) (tenants.Settings, error)
}

// Outcome is the terminal result of dispatching one event.
type Outcome struct {
	Status   enums.DeliveryStatus
	Result   connector.Result
	Attempts int
}

// ServiceParams groups dependencies for the dispatcher.
type ServiceParams struct {
	Logs             LogStore
	Dedupe           dedupe.Store
	Connectors       *connector.Registry
	DeadLetters      DeadLetterSink
	Resolver         SettingsResolver
	Metrics          *metrics.DeliveryMetrics
	Logger           *logger.Logger
	ConnectorTimeout time.Duration

	// Sleep and Now are injectable for tests; nil picks the real clock.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Service runs the per-event delivery state machine. Concurrent dispatches
// share no in-process state; the dedupe store is the only cross-process
// synchronization point and is always claimed before the outbound call.
type Service struct {
	logs             LogStore
	dedupeStore      dedupe.Store
	connectors       *connector.Registry
	deadLetters      DeadLetterSink
	resolver         SettingsResolver
	deliveryMetrics  *metrics.DeliveryMetrics
	logg             *logger.Logger
	connectorTimeout time.Duration
	sleep            func(ctx context.Context, d time.Duration) error
	now              func() time.Time
}

// NewService builds the dispatcher with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "log store is required")
	}
	if params.Dedupe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dedupe store is required")
	}
	if params.Connectors == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "connector registry is required")
	}
	if params.DeadLetters == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dead letter sink is required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settings resolver is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	if params.ConnectorTimeout <= 0 {
		params.ConnectorTimeout = 10 * time.Second
	}
	sleep := params.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logs:             params.Logs,
		dedupeStore:      params.Dedupe,
		connectors:       params.Connectors,
		deadLetters:      params.DeadLetters,
		resolver:         params.Resolver,
		deliveryMetrics:  params.Metrics,
		logg:             params.Logger,
		connectorTimeout: params.ConnectorTimeout,
		sleep:            sleep,
		now:              now,
	}, nil
}

// Dispatch runs one event through claim, delivery, and retry until a terminal
// state. The dedupe key must already be stamped on the event.
func (s *Service) Dispatch(ctx context.Context, event conversion.NormalizedEvent) (Outcome, error) {
	if event.DedupeKey == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "event has no dedupe key")
	}

	ctx = s.logg.WithTenantID(ctx, event.TenantID.String())
	ctx = s.logg.WithPlatform(ctx, event.Platform.String())
	ctx = s.logg.WithEventID(ctx, event.EventID)

	settings, err := s.resolver.Resolve(ctx, event.TenantID, event.Platform)
	if err != nil {
		return Outcome{}, err
	}

	// The lookup is deterministic, so resolve it before claiming: an
	// unregistered platform must not burn the dedupe claim.
	conn, err := s.connectors.Get(event.Platform)
	if err != nil {
		return Outcome{}, err
	}

	claimed, err := s.dedupeStore.TryClaim(ctx, event.TenantID, event.Platform, event.DedupeKey, settings.DedupeTTL)
	if err != nil {
		return Outcome{}, err
	}
	if !claimed {
		// Expected duplicate signal: handled, not an error.
		if err := s.appendLog(ctx, event, 1, enums.DeliveryStatusDeduplicated, connector.Result{}, 0); err != nil {
			return Outcome{}, err
		}
		s.deliveryMetrics.IncDeduplicated(event.Platform.String())
		s.logg.Info(ctx, "event deduplicated")
		return Outcome{Status: enums.DeliveryStatusDeduplicated, Attempts: 0}, nil
	}

	policy := Policy{
		MaxRetries:  settings.MaxRetries,
		BackoffBase: settings.BackoffBase,
		BackoffCap:  settings.BackoffCap,
	}

	for attempt := 1; ; attempt++ {
		result, latency := s.deliverOnce(ctx, conn, event)

		status := enums.DeliveryStatusDelivered
		if !result.Success {
			status = enums.DeliveryStatusFailed
		}
		if err := s.appendLog(ctx, event, attempt, status, result, latency); err != nil {
			return Outcome{}, err
		}
		s.deliveryMetrics.ObserveAttempt(event.Platform.String(), string(status), latency)

		if result.Success {
			s.logg.Info(ctx, "event delivered")
			return Outcome{Status: enums.DeliveryStatusDelivered, Result: result, Attempts: attempt}, nil
		}

		if !result.Category.Retryable() {
			// Auth and validation failures need operator intervention, not backoff.
			if err := s.deadLetters.Enqueue(ctx, event, result.ErrorCode, enums.ErrorCategoryPermanent, 0, settings.MaxRetries); err != nil {
				return Outcome{}, err
			}
			s.deliveryMetrics.IncDeadLetter(event.Platform.String(), string(result.Category))
			return Outcome{Status: enums.DeliveryStatusFailed, Result: result, Attempts: attempt}, nil
		}

		action := policy.NextAction(attempt, result.Category)
		if !action.Retry {
			if err := s.deadLetters.Enqueue(ctx, event, result.ErrorCode, result.Category, attempt, settings.MaxRetries); err != nil {
				return Outcome{}, err
			}
			s.deliveryMetrics.IncDeadLetter(event.Platform.String(), string(result.Category))
			s.logg.Warn(ctx, "retry budget exhausted")
			return Outcome{Status: enums.DeliveryStatusFailed, Result: result, Attempts: attempt}, nil
		}

		if err := s.sleep(ctx, action.Delay); err != nil {
			// The claim is already held and the attempt is logged; parking the
			// event in the DLQ keeps it recoverable when the caller goes away
			// mid-backoff. The enqueue runs detached from the dead context.
			dlqCtx := context.WithoutCancel(ctx)
			if dlqErr := s.deadLetters.Enqueue(dlqCtx, event, result.ErrorCode, result.Category, attempt, settings.MaxRetries); dlqErr != nil {
				return Outcome{}, dlqErr
			}
			s.deliveryMetrics.IncDeadLetter(event.Platform.String(), string(result.Category))
			s.logg.Warn(ctx, "retry wait cancelled, event parked in dead letter queue")
			return Outcome{Status: enums.DeliveryStatusFailed, Result: result, Attempts: attempt}, nil
		}
	}
}

// Redeliver re-enters the state machine at the delivering step for a DLQ
// replay. The original claim is still held, so dedupe is skipped, and a
// single attempt is made; the caller owns entry status transitions.
func (s *Service) Redeliver(ctx context.Context, event conversion.NormalizedEvent, attempt int) connector.Result {
	ctx = s.logg.WithTenantID(ctx, event.TenantID.String())
	ctx = s.logg.WithPlatform(ctx, event.Platform.String())
	ctx = s.logg.WithEventID(ctx, event.EventID)

	conn, err := s.connectors.Get(event.Platform)
	if err != nil {
		return connector.Result{
			Success:     false,
			ErrorCode:   "no_connector",
			Category:    enums.ErrorCategoryPermanent,
			RawResponse: err.Error(),
		}
	}

	result, latency := s.deliverOnce(ctx, conn, event)
	status := enums.DeliveryStatusDelivered
	if !result.Success {
		status = enums.DeliveryStatusFailed
	}
	if err := s.appendLog(ctx, event, attempt, status, result, latency); err != nil {
		s.logg.Error(ctx, "append redelivery log", err)
	}
	s.deliveryMetrics.ObserveAttempt(event.Platform.String(), string(status), latency)
	return result
}

func (s *Service) deliverOnce(ctx context.Context, conn connector.Connector, event conversion.NormalizedEvent) (connector.Result, time.Duration) {
	callCtx, cancel := context.WithTimeout(ctx, s.connectorTimeout)
	defer cancel()

	start := s.now()
	result := conn.Deliver(callCtx, event)
	return result, s.now().Sub(start)
}

type responseSummary struct {
	StatusCode int    `json:"status_code,omitempty"`
	TraceID    string `json:"trace_id,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Body       string `json:"body,omitempty"`
}

func (s *Service) appendLog(ctx context.Context, event conversion.NormalizedEvent, attempt int, status enums.DeliveryStatus, result connector.Result, latency time.Duration) error {
	entry := &models.DeliveryLog{
		TenantID:      event.TenantID,
		Platform:      event.Platform,
		EventID:       event.EventID,
		EventName:     event.EventName,
		DedupeKey:     event.DedupeKey,
		AttemptNumber: attempt,
		Status:        status,
		LatencyMS:     latency.Milliseconds(),
		MatchQuality:  event.MatchQuality,
		Value:         event.Value,
		Currency:      event.Currency,
		AttemptedAt:   s.now().UTC(),
	}
	if status == enums.DeliveryStatusDeduplicated {
		entry.AttemptNumber = 1
	}
	if result.Category != "" && !result.Success {
		category := result.Category
		entry.ErrorCategory = &category
	}
	if result.ErrorCode != "" {
		code := result.ErrorCode
		entry.ErrorCode = &code
	}
	if result.PlatformTraceID != "" {
		trace := result.PlatformTraceID
		entry.PlatformTraceID = &trace
	}
	if result.StatusCode != 0 || result.RawResponse != "" {
		summary := responseSummary{
			StatusCode: result.StatusCode,
			TraceID:    result.PlatformTraceID,
			ErrorCode:  result.ErrorCode,
			Body:       truncate(result.RawResponse, 2048),
		}
		if payload, err := json.Marshal(summary); err == nil {
			entry.ResponseSummary = payload
		}
	}

	if err := s.logs.Append(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append delivery log")
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
