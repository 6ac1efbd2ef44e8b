package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nickpio/top-earning-parser/internal/indexparams"
	"github.com/nickpio/top-earning-parser/pkg/config"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{
		Env:       "development",
		LogLevel:  "error",
		LogFormat: "json",
	})
}

func TestDailyUpdateJobIdentity(t *testing.T) {
	j := NewDailyUpdateJob(nil, testLogger())
	assert.Equal(t, "daily_update", j.Name())
	assert.Equal(t, "0 30 2 * * *", j.Schedule())
}

func TestDailyCollectJobIdentity(t *testing.T) {
	j := NewDailyCollectJob(nil, testLogger())
	assert.Equal(t, "daily_collect", j.Name())
	assert.Equal(t, "0 0 2 * * *", j.Schedule())
}

func TestWeeklyRebalanceSchedule(t *testing.T) {
	tests := []struct {
		weekday string
		want    string
	}{
		{"monday", "0 0 3 * * MON"},
		{"friday", "0 0 3 * * FRI"},
		{"sunday", "0 0 3 * * SUN"},
	}
	for _, tt := range tests {
		params := indexparams.Default().Rebalance
		params.RebalanceWeekday = tt.weekday

		j := NewWeeklyRebalanceJob(nil, params, testLogger())
		assert.Equal(t, tt.want, j.Schedule(), tt.weekday)
		assert.Equal(t, "weekly_rebalance", j.Name())
	}
}

func TestWeeklyRebalanceScheduleFallsBackToMonday(t *testing.T) {
	params := indexparams.Default().Rebalance
	params.RebalanceWeekday = "someday"

	j := NewWeeklyRebalanceJob(nil, params, testLogger())
	assert.Equal(t, "0 0 3 * * MON", j.Schedule())
}
