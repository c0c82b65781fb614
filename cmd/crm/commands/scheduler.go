package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/crmgeek/backend/internal/scheduler"
	"github.com/wonny/crmgeek/backend/internal/scheduler/jobs"
	"github.com/wonny/crmgeek/backend/pkg/redis"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Housekeeping jobs",
}

var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the job scheduler until interrupted",
	RunE:  runSchedulerStart,
}

var schedulerRunCmd = &cobra.Command{
	Use:     "run [job]",
	Short:   "Run one job now (workspace_sweep, dataset_snapshot)",
	Args:    cobra.ExactArgs(1),
	Example: `  go run ./cmd/crm scheduler run workspace_sweep`,
	RunE:    runSchedulerJob,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd, schedulerRunCmd)
}

// newScheduler registers the housekeeping jobs
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sc := a.cfg.Scheduler
	s := scheduler.New(a.log, scheduler.Options{
		MaxRetries: sc.MaxRetries,
		RetryDelay: 30 * time.Second,
		JobTimeout: sc.JobTimeout,
	})

	list := []scheduler.Job{
		jobs.NewWorkspaceSweepJob(a.workspaces, sc.WorkspaceMaxAge, sc.SweepSchedule, a.log),
		jobs.NewDatasetSnapshotJob(a.facts, redis.NewCache(a.redis, "crm"), sc.SnapshotPath, sc.SnapshotSchedule, a.log),
	}
	for _, j := range list {
		if err := s.AddJob(j); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}
	s.Start()
	fmt.Printf("✅ Scheduler running jobs: %v\n", s.GetAllJobs())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	s.Stop()
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}

	result, err := s.RunNow(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s completed in %.2fs (%d attempt(s))\n", result.JobName, result.Duration.Seconds(), result.Attempts)
	return nil
}
