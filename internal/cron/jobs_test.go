package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
)

type fakeSweeper struct {
	batches []int64
	calls   int
	sizes   []int
	err     error
}

func (f *fakeSweeper) SweepExpired(_ context.Context, batchSize int) (int64, error) {
	f.calls++
	f.sizes = append(f.sizes, batchSize)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	removed := f.batches[0]
	f.batches = f.batches[1:]
	return removed, nil
}

func TestDedupeSweepJobDrainsFullBatches(t *testing.T) {
	sweeper := &fakeSweeper{batches: []int64{100, 100, 37}}
	job, err := NewDedupeSweepJob(DedupeSweepJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Sweeper:   sweeper,
		BatchSize: 100,
	})
	if err != nil {
		t.Fatalf("NewDedupeSweepJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.calls != 3 {
		t.Fatalf("expected 3 sweep passes, got %d", sweeper.calls)
	}
	for _, size := range sweeper.sizes {
		if size != 100 {
			t.Fatalf("expected batch size 100, got %d", size)
		}
	}
}

func TestDedupeSweepJobPropagatesErrors(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("boom")}
	job, err := NewDedupeSweepJob(DedupeSweepJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewDedupeSweepJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeRollup struct {
	days []time.Time
	rows int
	err  error
}

func (f *fakeRollup) RollupDay(_ context.Context, day time.Time) (int, error) {
	f.days = append(f.days, day)
	if f.err != nil {
		return 0, f.err
	}
	return f.rows, nil
}

func TestStatsRollupJobCoversLookbackWindow(t *testing.T) {
	now := time.Date(2026, 1, 31, 15, 30, 0, 0, time.UTC)
	rollup := &fakeRollup{rows: 2}
	job, err := NewStatsRollupJob(StatsRollupJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		Stats:        rollup,
		LookbackDays: 1,
		Now:          func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewStatsRollupJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rollup.days) != 2 {
		t.Fatalf("expected 2 rollup days, got %d", len(rollup.days))
	}
	today := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	if !rollup.days[0].Equal(today) {
		t.Fatalf("expected first day %s, got %s", today, rollup.days[0])
	}
	if !rollup.days[1].Equal(today.AddDate(0, 0, -1)) {
		t.Fatalf("expected second day %s, got %s", today.AddDate(0, 0, -1), rollup.days[1])
	}
}

func TestStatsRollupJobPropagatesErrors(t *testing.T) {
	job, err := NewStatsRollupJob(StatsRollupJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Stats:  &fakeRollup{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewStatsRollupJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeReplayer struct {
	limit     int
	recovered int
	failed    int
	err       error
}

func (f *fakeReplayer) ReplayBatch(_ context.Context, limit int) (int, int, error) {
	f.limit = limit
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.recovered, f.failed, nil
}

func TestDLQReplayJobUsesConfiguredBatchSize(t *testing.T) {
	replayer := &fakeReplayer{recovered: 3, failed: 1}
	job, err := NewDLQReplayJob(DLQReplayJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Replayer:  replayer,
		BatchSize: 10,
	})
	if err != nil {
		t.Fatalf("NewDLQReplayJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if replayer.limit != 10 {
		t.Fatalf("expected batch size 10, got %d", replayer.limit)
	}
}

func TestDLQReplayJobPropagatesErrors(t *testing.T) {
	job, err := NewDLQReplayJob(DLQReplayJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Replayer: &fakeReplayer{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewDLQReplayJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
