package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/semaphore"
)

// Runner executes submitted jobs in the background, at most maxConcurrent at
// a time, each under its own timeout. Jobs are independent: one job's failure
// never affects another.
type Runner struct {
	pipeline *Pipeline
	sem      *semaphore.Weighted
	timeout  time.Duration
	logger   arbor.ILogger

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a runner. maxConcurrent below 1 is treated as 1; a
// non-positive timeout disables the per-job deadline.
func NewRunner(p *Pipeline, maxConcurrent int, timeout time.Duration, logger arbor.ILogger) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	base, cancel := context.WithCancel(context.Background())
	return &Runner{
		pipeline: p,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		timeout:  timeout,
		logger:   logger,
		base:     base,
		cancel:   cancel,
	}
}

// Submit schedules job id and returns immediately. The job keeps running
// after the submitting request is gone.
func (r *Runner) Submit(id string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.sem.Acquire(r.base, 1); err != nil {
			r.logger.Warn().Str("job_id", id).Msg("Runner stopped before job started")
			_ = r.pipeline.fail(context.Background(), id, &StageError{Stage: "queue", Message: "server shutting down"})
			return
		}
		defer r.sem.Release(1)

		ctx := r.base
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		if _, err := r.pipeline.Run(ctx, id); err != nil {
			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				r.logger.Error().Err(err).Str("job_id", id).Msg("Job could not run")
			}
		}
	}()
}

// Wait blocks until every submitted job and its persistence call finish.
func (r *Runner) Wait() {
	r.wg.Wait()
	r.pipeline.Wait()
}

// Shutdown waits for running jobs until ctx expires, then cancels them.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}
