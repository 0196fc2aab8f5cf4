package scheduler

import (
	"context"
	"fmt"
	"time"

	"budgee-insights/src/batch"
)

// BatchRunner is satisfied by *batch.Runner.
type BatchRunner interface {
	Run(ctx context.Context, opts batch.Options) (batch.Report, error)
}

// BatchJob re-runs the feature and persona batch. Complete user/windows are
// skipped unless Options.Force is set, so each tick retries earlier failures.
type BatchJob struct {
	runner  BatchRunner
	opts    batch.Options
	timeout time.Duration
	// AfterRun, when set, is called after every run that stored results.
	AfterRun func(batch.Report)
}

func NewBatchJob(runner BatchRunner, opts batch.Options, timeout time.Duration) *BatchJob {
	return &BatchJob{runner: runner, opts: opts, timeout: timeout}
}

func (j *BatchJob) Name() string {
	return "persona_batch"
}

func (j *BatchJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	report, err := j.runner.Run(ctx, j.opts)
	if err != nil {
		return err
	}
	if j.AfterRun != nil && report.Processed > 0 {
		j.AfterRun(report)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d user/windows failed", report.Failed, report.Processed+report.Failed)
	}
	return nil
}
