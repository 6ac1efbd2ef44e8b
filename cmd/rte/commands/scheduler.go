package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nickpio/top-earning-parser/internal/scheduler"
	"github.com/nickpio/top-earning-parser/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Scheduler management",
	Long: `Runs the cron scheduler as a daemon, or inspects and triggers
its jobs:

  start   run the daemon until interrupted
  list    show the registered jobs and their schedules
  run     trigger one job immediately and wait for it
  status  show per-job execution statistics`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		Long: `Starts the scheduler and blocks until SIGINT or SIGTERM.

Jobs: daily_update (02:30 UTC, ingest plus features), weekly_rebalance
(03:00 UTC on the configured weekday, full pipeline), and daily_collect
(02:00 UTC, only when the collector is enabled).`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job execution statistics",
		RunE:  showJobStats,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== RTE-100 Scheduler ===")
	fmt.Println()

	sched, c, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("scheduler setup: %w", err)
	}
	defer c.Close()

	sched.Start()
	printJobTable(sched)
	fmt.Println()
	fmt.Println("Ctrl+C stops the daemon.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println()
	fmt.Println("Stopping...")
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, c, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("scheduler setup: %w", err)
	}
	defer c.Close()

	printJobTable(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	name := args[0]

	sched, c, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("scheduler setup: %w", err)
	}
	defer c.Close()

	fmt.Printf("Triggering %s...\n", name)
	if err := sched.RunJob(name); err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	fmt.Printf("Job %s finished\n", name)
	return nil
}

func showJobStats(cmd *cobra.Command, args []string) error {
	sched, c, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("scheduler setup: %w", err)
	}
	defer c.Close()

	stats := sched.GetJobStats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		st := stats[name]
		fmt.Printf("%s  (schedule %s)\n", name, st.Schedule)
		fmt.Printf("  runs %d, ok %d, failed %d, success rate %.1f%%\n",
			st.TotalRuns, st.SuccessCount, st.FailureCount, st.SuccessRate*100)
		fmt.Printf("  last run %s, last success %s, last failure %s\n",
			fmtWhen(st.LastRun), fmtWhen(st.LastSuccess), fmtWhen(st.LastFailure))
		fmt.Println()
	}
	return nil
}

func printJobTable(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	fmt.Println("Jobs on schedule:")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  %-18s %s\n", name, stats[name].Schedule)
	}
}

func fmtWhen(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05")
}

// initScheduler wires the shared components and registers the jobs.
func initScheduler(ctx context.Context) (*scheduler.Scheduler, *components, error) {
	c, err := initComponents(ctx)
	if err != nil {
		return nil, nil, err
	}

	jobList := []scheduler.Job{
		jobs.NewDailyUpdateJob(c.pipeline, c.log),
		jobs.NewWeeklyRebalanceJob(c.pipeline, c.params.Rebalance, c.log),
	}
	if c.cfg.Collector.Enabled {
		collector, err := newCollector(c.cfg, c.log)
		if err != nil {
			c.Close()
			return nil, nil, err
		}
		jobList = append(jobList, jobs.NewDailyCollectJob(collector, c.log))
	}

	sched := scheduler.New(c.log)
	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			c.Close()
			return nil, nil, err
		}
	}
	return sched, c, nil
}
