package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/internal/indexparams"
	"github.com/nickpio/top-earning-parser/internal/pipeline"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// WeeklyRebalanceJob runs the full pipeline with a rebalance as of the
// trigger day. The cron day-of-week comes from the rebalance_weekday
// parameter, so the vintage always lands on the configured weekday.
type WeeklyRebalanceJob struct {
	pipeline *pipeline.Pipeline
	schedule string
	logger   *logger.Logger
}

func NewWeeklyRebalanceJob(p *pipeline.Pipeline, params indexparams.RebalanceParams, log *logger.Logger) *WeeklyRebalanceJob {
	weekday, err := params.Weekday()
	if err != nil {
		// Parameters are validated at load time, so this is a
		// programming error; fall back rather than panic in a daemon.
		log.WithError(err).Warn("Invalid rebalance weekday, falling back to Monday")
		weekday = time.Monday
	}

	return &WeeklyRebalanceJob{
		pipeline: p,
		schedule: fmt.Sprintf("0 0 3 * * %s", cronWeekday(weekday)),
		logger:   log,
	}
}

// Name returns the job name.
func (j *WeeklyRebalanceJob) Name() string {
	return "weekly_rebalance"
}

// Schedule returns the cron schedule: 03:00 on the rebalance weekday.
func (j *WeeklyRebalanceJob) Schedule() string {
	return j.schedule
}

// Run executes the daily stages plus the weekly rebalance dated today.
func (j *WeeklyRebalanceJob) Run(ctx context.Context) error {
	rebalanceDate := contracts.NormalizeDate(time.Now().UTC())
	j.logger.WithField("rebalance_date", contracts.FormatDate(rebalanceDate)).
		Info("Starting scheduled weekly rebalance")

	result, err := j.pipeline.Run(ctx, pipeline.RunConfig{
		Rebalance:     true,
		RebalanceDate: rebalanceDate,
	})
	if err != nil {
		return fmt.Errorf("weekly rebalance: %w", err)
	}

	fields := map[string]interface{}{
		"rebalance_date": contracts.FormatDate(rebalanceDate),
	}
	if result.Rebalance != nil {
		fields["constituents"] = len(result.Rebalance.Members)
		if result.Rebalance.Index != nil {
			fields["index_points"] = len(result.Rebalance.Index.Points)
		}
	}
	j.logger.WithFields(fields).Info("Scheduled weekly rebalance completed")
	return nil
}

// cronWeekday renders a weekday as the cron day-of-week token.
func cronWeekday(d time.Weekday) string {
	return strings.ToUpper(d.String()[:3])
}
