package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
	"go.uber.org/multierr"
)

const defaultRollupLookbackDays = 1

type StatsRollupJobParams struct {
	Logger       *logger.Logger
	Stats        statsRollup
	LookbackDays int
	Now          func() time.Time
}

type statsRollup interface {
	RollupDay(ctx context.Context, day time.Time) (int, error)
}

// NewStatsRollupJob recomputes daily stats for the current day plus the
// lookback window. Recomputing a day replaces its rows, so late-arriving
// attempts from yesterday are folded in on the next run.
func NewStatsRollupJob(params StatsRollupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stats == nil {
		return nil, fmt.Errorf("stats service required")
	}
	lookback := params.LookbackDays
	if lookback < 0 {
		lookback = defaultRollupLookbackDays
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &statsRollupJob{
		logg:     params.Logger,
		stats:    params.Stats,
		lookback: lookback,
		now:      now,
	}, nil
}

type statsRollupJob struct {
	logg     *logger.Logger
	stats    statsRollup
	lookback int
	now      func() time.Time
}

func (j *statsRollupJob) Name() string { return "stats-rollup" }

func (j *statsRollupJob) Run(ctx context.Context) error {
	today := j.now().UTC().Truncate(24 * time.Hour)
	written := 0
	var errs []error
	for offset := 0; offset <= j.lookback; offset++ {
		day := today.AddDate(0, 0, -offset)
		rows, err := j.stats.RollupDay(ctx, day)
		if err != nil {
			errs = append(errs, fmt.Errorf("stats rollup for %s: %w", day.Format("2006-01-02"), err))
			continue
		}
		written += rows
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"lookback_days": j.lookback,
		"rows_written":  written,
		"failed_days":   len(errs),
	})
	j.logg.Info(logCtx, "stats rollup complete")
	return multierr.Combine(errs...)
}
