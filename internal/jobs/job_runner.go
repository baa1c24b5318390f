package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/repository"
)

const (
	JobReconcileAssignments = "reconcile-assignments"
	JobRefreshInventory     = "refresh-inventory"

	jobTimeout = 5 * time.Minute
)

// Gauges receives job results. *metrics.Metrics satisfies it.
type Gauges interface {
	SetInventory(assets, requests map[string]int)
	SetViolations(byKind map[string]int)
	RecordJob(job string, duration time.Duration, success bool)
}

type noopGauges struct{}

func (noopGauges) SetInventory(map[string]int, map[string]int) {}
func (noopGauges) SetViolations(map[string]int)                {}
func (noopGauges) RecordJob(string, time.Duration, bool)       {}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store  repository.Store
	gauges Gauges
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store repository.Store, gauges Gauges) *JobRunner {
	if gauges == nil {
		gauges = noopGauges{}
	}
	return &JobRunner{
		store:  store,
		gauges: gauges,
	}
}

// runWithRecovery wraps job execution with panic recovery and a timeout
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
			jr.gauges.RecordJob(jobName, time.Since(start), false)
			return
		}
		logger.JobRun(jobName, time.Since(start), err)
		jr.gauges.RecordJob(jobName, time.Since(start), err == nil)
	}()

	logger.Info("Starting job", "job", jobName)
	return jobFunc(ctx)
}

// ReconcileAssignments is the entry point for the assignment audit. Failures are
// already logged; the error lets one-shot runs report them.
func (jr *JobRunner) ReconcileAssignments() error {
	return jr.runWithRecovery(JobReconcileAssignments, func(ctx context.Context) error {
		_, err := jr.Reconcile(ctx)
		return err
	})
}

// RefreshInventoryGauges is the entry point for the inventory gauges
func (jr *JobRunner) RefreshInventoryGauges() error {
	return jr.runWithRecovery(JobRefreshInventory, func(ctx context.Context) error {
		_, err := jr.RefreshInventory(ctx)
		return err
	})
}

// RunAll runs every job once (for manual execution), even after one fails.
func (jr *JobRunner) RunAll() error {
	return errors.Join(
		jr.ReconcileAssignments(),
		jr.RefreshInventoryGauges(),
	)
}
