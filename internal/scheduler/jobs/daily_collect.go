package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/internal/ingest"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// DailyCollectJob fetches the day's top-earning payload into a pruned
// run file, ahead of the daily update. Only registered when the
// collector is enabled in config.
type DailyCollectJob struct {
	collector *ingest.Collector
	logger    *logger.Logger
}

func NewDailyCollectJob(col *ingest.Collector, log *logger.Logger) *DailyCollectJob {
	return &DailyCollectJob{
		collector: col,
		logger:    log,
	}
}

// Name returns the job name.
func (j *DailyCollectJob) Name() string {
	return "daily_collect"
}

// Schedule returns the cron schedule: 02:00 daily, before the update.
func (j *DailyCollectJob) Schedule() string {
	return "0 0 2 * * *"
}

// Run collects today's run file.
func (j *DailyCollectJob) Run(ctx context.Context) error {
	date := contracts.NormalizeDate(time.Now().UTC())

	path, err := j.collector.CollectDaily(ctx, date)
	if err != nil {
		return fmt.Errorf("daily collect: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"date": contracts.FormatDate(date),
		"path": path,
	}).Info("Scheduled collection completed")
	return nil
}
