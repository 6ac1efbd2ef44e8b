// Package jobs holds the scheduled units of pipeline work: the nightly
// snapshot update, the weekly rebalance, and the optional collection of
// fresh run files.
package jobs

import (
	"context"
	"fmt"

	"github.com/nickpio/top-earning-parser/internal/pipeline"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// DailyUpdateJob runs the daily stages: ingest every pruned run file
// and rebuild the rolling feature table.
type DailyUpdateJob struct {
	pipeline *pipeline.Pipeline
	logger   *logger.Logger
}

func NewDailyUpdateJob(p *pipeline.Pipeline, log *logger.Logger) *DailyUpdateJob {
	return &DailyUpdateJob{
		pipeline: p,
		logger:   log,
	}
}

// Name returns the job name.
func (j *DailyUpdateJob) Name() string {
	return "daily_update"
}

// Schedule returns the cron schedule: 02:30 daily, after collection.
func (j *DailyUpdateJob) Schedule() string {
	return "0 30 2 * * *"
}

// Run executes the daily update.
func (j *DailyUpdateJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled daily update")

	result, err := j.pipeline.Run(ctx, pipeline.RunConfig{})
	if err != nil {
		return fmt.Errorf("daily update: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"snapshots": result.SnapshotRows,
		"features":  result.FeatureRows,
	}).Info("Scheduled daily update completed")
	return nil
}
