package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"assettracker-backend/internal/config"
	"assettracker-backend/internal/jobs"
	"assettracker-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a scheduler with every job from cfg registered. An invalid cron
// spec is an error.
func NewScheduler(jobRunner *jobs.JobRunner, cfg config.SchedulerConfig) (*Scheduler, error) {
	// UTC with seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}
	if err := s.registerJobs(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs(cfg config.SchedulerConfig) error {
	entries := []struct {
		name string
		spec string
		fn   func() error
	}{
		{jobs.JobReconcileAssignments, cfg.ReconcileAssignments, s.jobs.ReconcileAssignments},
		{jobs.JobRefreshInventory, cfg.RefreshInventoryGauges, s.jobs.RefreshInventoryGauges},
	}
	for _, e := range entries {
		// The runner logs failures itself.
		run := e.fn
		if _, err := s.cron.AddFunc(e.spec, func() { _ = run() }); err != nil {
			return fmt.Errorf("register %s job (%q): %w", e.name, e.spec, err)
		}
		logger.Info("Registered cron job", "job", e.name, "spec", e.spec)
	}
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// JobCount returns the number of registered jobs
func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}
