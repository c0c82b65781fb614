package jobs

import (
	"context"
	"time"

	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// Sweeper removes stale per-request workspaces
type Sweeper interface {
	Sweep(olderThan time.Duration) (int, error)
}

// WorkspaceSweepJob deletes forecast workspaces left behind by crashed or
// kept-artifact runs
type WorkspaceSweepJob struct {
	sweeper  Sweeper
	maxAge   time.Duration
	schedule string
	logger   *logger.Logger
}

// NewWorkspaceSweepJob creates a new workspace sweep job
func NewWorkspaceSweepJob(sweeper Sweeper, maxAge time.Duration, schedule string, log *logger.Logger) *WorkspaceSweepJob {
	return &WorkspaceSweepJob{
		sweeper:  sweeper,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *WorkspaceSweepJob) Name() string {
	return "workspace_sweep"
}

// Schedule returns the cron schedule
func (j *WorkspaceSweepJob) Schedule() string {
	return j.schedule
}

// Run executes the sweep
func (j *WorkspaceSweepJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled workspace sweep")

	count, err := j.sweeper.Sweep(j.maxAge)
	if err != nil {
		return err
	}

	if count > 0 {
		j.logger.WithField("removed", count).Info("Workspace sweep completed")
	}

	return nil
}
