// Package scheduler runs the pipeline jobs on cron schedules. The
// pipeline assumes serialized access to the store, so a job that is
// still running when its next trigger fires is skipped, not queued.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// Scheduler owns the registered jobs, their cron entries and their
// execution history.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger

	mu      sync.RWMutex
	jobs    map[string]Job
	history map[string]*JobHistory
	active  map[string]struct{}

	maxRetries int
	retryDelay time.Duration
}

// New creates a scheduler with second-resolution cron parsing.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		log:        log.WithField("module", "scheduler"),
		jobs:       make(map[string]Job),
		history:    make(map[string]*JobHistory),
		active:     make(map[string]struct{}),
		maxRetries: 3,
		retryDelay: time.Minute,
	}
}

// AddJob registers a job under its cron schedule.
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %s already exists", name)
	}

	if _, err := s.cron.AddFunc(job.Schedule(), func() { s.runJob(job) }); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.history[name] = &JobHistory{}

	s.log.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("job registered")
	return nil
}

// Start begins triggering jobs on their schedules.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop halts the schedule and waits for any running job to finish.
func (s *Scheduler) Stop() {
	s.log.Info("stopping scheduler")
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunJob runs a registered job immediately, outside its schedule, and
// waits for it to finish.
func (s *Scheduler) RunJob(name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	return s.runJob(job)
}

// runJob executes a job under the retry policy and records the result.
// Returns nil when the run is dropped because the previous one is
// still going.
func (s *Scheduler) runJob(job Job) error {
	name := job.Name()
	if !s.begin(name) {
		s.log.WithField("job", name).Warn("previous run still in progress, skipping")
		return nil
	}
	defer s.end(name)

	log := s.log.WithField("job", name)
	log.Info("job started")

	start := time.Now()
	err := s.attempt(job)

	result := JobResult{
		JobName:   name,
		StartTime: start,
		EndTime:   time.Now(),
		Success:   err == nil,
	}
	result.Duration = result.EndTime.Sub(result.StartTime)
	if err != nil {
		result.Error = err.Error()
	}
	s.record(result)

	if err != nil {
		log.WithError(err).Error("job failed after all retries")
		return err
	}
	log.WithField("duration", result.Duration.String()).Info("job completed")
	return nil
}

// attempt runs the job up to maxRetries+1 times, pausing retryDelay
// between tries.
func (s *Scheduler) attempt(job Job) error {
	var lastErr error
	for try := 0; try <= s.maxRetries; try++ {
		if try > 0 {
			time.Sleep(s.retryDelay)
		}
		if lastErr = job.Run(context.Background()); lastErr == nil {
			return nil
		}
		s.log.WithFields(map[string]interface{}{
			"job":     job.Name(),
			"attempt": try + 1,
			"error":   lastErr.Error(),
		}).Warn("job run failed")
	}
	return lastErr
}

func (s *Scheduler) begin(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.active[name]; busy {
		return false
	}
	s.active[name] = struct{}{}
	return true
}

func (s *Scheduler) end(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, name)
}

func (s *Scheduler) record(r JobResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.history[r.JobName]; ok {
		h.AddResult(r)
	}
}

// GetJobHistory returns the recorded results for one job.
func (s *Scheduler) GetJobHistory(name string) (*JobHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.history[name]
	if !ok {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return h, nil
}

// GetAllJobs returns the registered job names, sorted.
func (s *Scheduler) GetAllJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JobStats summarizes the recorded history of one job.
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}

// GetJobStats returns statistics for every registered job.
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.history))
	for name, h := range s.history {
		succeeded, failed := h.tally()
		js := JobStats{
			JobName:      name,
			Schedule:     s.jobs[name].Schedule(),
			TotalRuns:    succeeded + failed,
			SuccessCount: succeeded,
			FailureCount: failed,
		}
		if js.TotalRuns > 0 {
			js.SuccessRate = float64(succeeded) / float64(js.TotalRuns)
		}
		if last := h.latest(); last != nil {
			t := last.StartTime
			js.LastRun = &t
			if last.Success {
				js.LastSuccess = &t
			} else {
				js.LastFailure = &t
			}
		}
		stats[name] = js
	}
	return stats
}
