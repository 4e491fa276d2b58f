package cron

import (
	"context"
	"fmt"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
)

const (
	defaultSweepBatchSize = 1000
	maxSweepPasses        = 50
)

type DedupeSweepJobParams struct {
	Logger    *logger.Logger
	Sweeper   dedupeSweeper
	BatchSize int
}

type dedupeSweeper interface {
	SweepExpired(ctx context.Context, batchSize int) (int64, error)
}

// NewDedupeSweepJob clears expired Postgres dedupe claims in batches. Redis
// claims expire on their own, so the job is only registered for the Postgres
// backend.
func NewDedupeSweepJob(params DedupeSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("dedupe sweeper required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &dedupeSweepJob{
		logg:      params.Logger,
		sweeper:   params.Sweeper,
		batchSize: batchSize,
	}, nil
}

type dedupeSweepJob struct {
	logg      *logger.Logger
	sweeper   dedupeSweeper
	batchSize int
}

func (j *dedupeSweepJob) Name() string { return "dedupe-sweep" }

func (j *dedupeSweepJob) Run(ctx context.Context) error {
	var total int64
	for pass := 0; pass < maxSweepPasses; pass++ {
		removed, err := j.sweeper.SweepExpired(ctx, j.batchSize)
		if err != nil {
			return fmt.Errorf("dedupe sweep: %w", err)
		}
		total += removed
		if removed < int64(j.batchSize) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"batch_size":   j.batchSize,
		"rows_deleted": total,
	})
	j.logg.Info(logCtx, "dedupe sweep complete")
	return nil
}
