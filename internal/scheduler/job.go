package scheduler

import (
	"context"
	"time"
)

// Job is a unit of pipeline work the scheduler can trigger. Names must
// be unique within one scheduler.
type Job interface {
	Name() string

	// Schedule is a cron expression with a seconds field, for example
	// "0 30 2 * * *" for 02:30 every day.
	Schedule() string

	Run(ctx context.Context) error
}

// JobResult records one execution of a job.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory is a bounded log of recent results for one job, newest
// last.
type JobHistory struct {
	Results []JobResult
}

const historyLimit = 100

// AddResult appends a result, dropping the oldest beyond the cap.
func (h *JobHistory) AddResult(r JobResult) {
	h.Results = append(h.Results, r)
	if excess := len(h.Results) - historyLimit; excess > 0 {
		h.Results = h.Results[excess:]
	}
}

// GetLatestResults returns up to n of the newest results, oldest first.
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n < 0 {
		n = 0
	}
	if n > len(h.Results) {
		n = len(h.Results)
	}
	return h.Results[len(h.Results)-n:]
}

// latest returns the newest result, or nil when none are recorded.
func (h *JobHistory) latest() *JobResult {
	if len(h.Results) == 0 {
		return nil
	}
	return &h.Results[len(h.Results)-1]
}

// tally counts recorded successes and failures.
func (h *JobHistory) tally() (succeeded, failed int) {
	for _, r := range h.Results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
