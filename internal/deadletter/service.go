package deadletter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/connector"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
)

// Store is the persistence surface the service depends on.
type Store interface {
	Insert(ctx context.Context, entry *models.DeadLetter) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DeadLetter, error)
	ListPending(ctx context.Context, tenantID uuid.UUID, platform *enums.Platform, cursor string, limit int) ([]models.DeadLetter, string, error)
	ListReprocessable(ctx context.Context, limit int) ([]models.DeadLetter, error)
	MarkRetrying(ctx context.Context, id uuid.UUID) error
	MarkRecovered(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkAbandoned(ctx context.Context, id uuid.UUID) error
	RecordFailure(ctx context.Context, id uuid.UUID, reason string, category enums.ErrorCategory, at time.Time) error
}

// Redeliverer re-enters the dispatcher at the delivering step. The original
// dedupe claim is still held, so no re-check happens.
type Redeliverer interface {
	Redeliver(ctx context.Context, event conversion.NormalizedEvent, attempt int) connector.Result
}

// Queue is the write-only enqueue surface. The dispatcher depends on this
// alone, which keeps construction acyclic: queue, then dispatcher, then the
// full service with the dispatcher as redeliverer.
type Queue struct {
	store Store
	logg  *logger.Logger
	now   func() time.Time
}

// NewQueue builds the enqueue-only surface over the store.
func NewQueue(store Store, logg *logger.Logger) (*Queue, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dead letter store is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Queue{store: store, logg: logg, now: time.Now}, nil
}

// Enqueue records an event whose delivery cannot proceed without intervention
// or a later replay.
func (q *Queue) Enqueue(ctx context.Context, event conversion.NormalizedEvent, reason string, category enums.ErrorCategory, retryCount, maxRetries int) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode event for dead letter")
	}

	now := q.now().UTC()
	entry := &models.DeadLetter{
		TenantID:        event.TenantID,
		Platform:        event.Platform,
		EventID:         event.EventID,
		EventData:       payload,
		FailureReason:   reason,
		FailureCategory: category,
		RetryCount:      retryCount,
		MaxRetries:      maxRetries,
		Status:          enums.DeadLetterStatusPending,
		FirstFailureAt:  now,
		LastFailureAt:   now,
	}
	if err := q.store.Insert(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert dead letter entry")
	}

	ctx = q.logg.WithTenantID(ctx, event.TenantID.String())
	ctx = q.logg.WithPlatform(ctx, event.Platform.String())
	q.logg.Warn(ctx, "event routed to dead letter queue")
	return nil
}

// ServiceParams groups dependencies for the dead letter service.
type ServiceParams struct {
	Queue       *Queue
	Redeliverer Redeliverer
	Now         func() time.Time
}

// Service exposes the operator recovery surface over the dead letter queue.
type Service interface {
	Enqueue(ctx context.Context, event conversion.NormalizedEvent, reason string, category enums.ErrorCategory, retryCount, maxRetries int) error
	ListPending(ctx context.Context, tenantID uuid.UUID, platform *enums.Platform, cursor string, limit int) (PageDTO, error)
	Reprocess(ctx context.Context, entryID uuid.UUID) (connector.Result, error)
	Abandon(ctx context.Context, entryID uuid.UUID) error
	ReplayBatch(ctx context.Context, limit int) (recovered int, failed int, err error)
}

type service struct {
	*Queue
	redeliverer Redeliverer
	now         func() time.Time
}

// NewService builds the dead letter service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Queue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dead letter queue is required")
	}
	if params.Redeliverer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redeliverer is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		Queue:       params.Queue,
		redeliverer: params.Redeliverer,
		now:         now,
	}, nil
}

// ListPending returns the pending entries for a tenant.
func (s *service) ListPending(ctx context.Context, tenantID uuid.UUID, platform *enums.Platform, cursor string, limit int) (PageDTO, error) {
	if tenantID == uuid.Nil {
		return PageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}

	entries, nextCursor, err := s.store.ListPending(ctx, tenantID, platform, cursor, limit)
	if err != nil {
		return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending dead letters")
	}

	page := PageDTO{Entries: make([]EntryDTO, 0, len(entries)), NextCursor: nextCursor}
	for _, entry := range entries {
		page.Entries = append(page.Entries, toEntryDTO(entry))
	}
	return page, nil
}

// Reprocess replays one entry through the dispatcher's delivering step.
func (s *service) Reprocess(ctx context.Context, entryID uuid.UUID) (connector.Result, error) {
	entry, err := s.loadActionable(ctx, entryID)
	if err != nil {
		return connector.Result{}, err
	}

	var event conversion.NormalizedEvent
	if err := json.Unmarshal(entry.EventData, &event); err != nil {
		return connector.Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode dead letter event data")
	}

	if err := s.store.MarkRetrying(ctx, entry.ID); err != nil {
		return connector.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark entry retrying")
	}

	result := s.redeliverer.Redeliver(ctx, event, entry.RetryCount+1)
	now := s.now().UTC()

	if result.Success {
		if err := s.store.MarkRecovered(ctx, entry.ID, now); err != nil {
			return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark entry recovered")
		}
		return result, nil
	}

	reason := result.ErrorCode
	if reason == "" {
		reason = "reprocess failed"
	}
	if err := s.store.RecordFailure(ctx, entry.ID, reason, result.Category, now); err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record reprocess failure")
	}
	return result, nil
}

// Abandon is the explicit operator decision to stop retrying an entry.
func (s *service) Abandon(ctx context.Context, entryID uuid.UUID) error {
	entry, err := s.loadActionable(ctx, entryID)
	if err != nil {
		return err
	}
	if err := s.store.MarkAbandoned(ctx, entry.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark entry abandoned")
	}
	return nil
}

// ReplayBatch reprocesses pending entries that still have retry budget. Used
// by the scheduled replay job.
func (s *service) ReplayBatch(ctx context.Context, limit int) (int, int, error) {
	entries, err := s.store.ListReprocessable(ctx, limit)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reprocessable dead letters")
	}

	recovered, failed := 0, 0
	for _, entry := range entries {
		result, err := s.Reprocess(ctx, entry.ID)
		if err != nil {
			s.logg.Error(ctx, "dead letter replay failed", err)
			failed++
			continue
		}
		if result.Success {
			recovered++
		} else {
			failed++
		}
	}
	return recovered, failed, nil
}

func (s *service) loadActionable(ctx context.Context, entryID uuid.UUID) (*models.DeadLetter, error) {
	if entryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}
	entry, err := s.store.FindByID(ctx, entryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "dead letter entry not found")
	}
	if entry.Status.Terminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "dead letter entry is already terminal")
	}
	return entry, nil
}
