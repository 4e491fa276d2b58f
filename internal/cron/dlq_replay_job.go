package cron

import (
	"context"
	"fmt"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
)

const defaultReplayBatchSize = 25

type DLQReplayJobParams struct {
	Logger    *logger.Logger
	Replayer  dlqReplayer
	BatchSize int
}

type dlqReplayer interface {
	ReplayBatch(ctx context.Context, limit int) (int, int, error)
}

// NewDLQReplayJob re-attempts a batch of pending dead letters that still have
// retry budget. Entries that keep failing stay pending with a bumped retry
// count until an operator abandons them.
func NewDLQReplayJob(params DLQReplayJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Replayer == nil {
		return nil, fmt.Errorf("dead letter replayer required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultReplayBatchSize
	}
	return &dlqReplayJob{
		logg:      params.Logger,
		replayer:  params.Replayer,
		batchSize: batchSize,
	}, nil
}

type dlqReplayJob struct {
	logg      *logger.Logger
	replayer  dlqReplayer
	batchSize int
}

func (j *dlqReplayJob) Name() string { return "dlq-replay" }

func (j *dlqReplayJob) Run(ctx context.Context) error {
	recovered, failed, err := j.replayer.ReplayBatch(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("dlq replay: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"batch_size": j.batchSize,
		"recovered":  recovered,
		"failed":     failed,
	})
	j.logg.Info(logCtx, "dlq replay complete")
	return nil
}
