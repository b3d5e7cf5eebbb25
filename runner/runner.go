// Package runner dispatches the task queue against the session pool with
// bounded concurrency and aggregates outcomes into a RunReport.
package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/lookout/config"
	"github.com/use-agent/lookout/models"
	"github.com/use-agent/lookout/retry"
	"github.com/use-agent/lookout/session"
)

// Pool supplies exclusive browser sessions to in-flight attempts.
// *session.Provider implements it; tests substitute fakes.
type Pool interface {
	Acquire(ctx context.Context) (*session.Session, error)
	Release(s *session.Session, healthy bool)
}

// Action composes navigation and extraction for one attempt at one task,
// using the exclusively held session.
type Action func(ctx context.Context, s *session.Session, task *models.Task) (*models.Record, error)

// Runner processes a task queue. Each in-flight task holds exactly one
// session for the duration of one attempt; concurrency is bounded by a
// semaphore so resource growth never exceeds the pool.
type Runner struct {
	pool   Pool
	coord  *retry.Coordinator
	action Action
	cfg    config.RunnerConfig
}

// New creates a Runner.
func New(pool Pool, coord *retry.Coordinator, action Action, cfg config.RunnerConfig) *Runner {
	return &Runner{pool: pool, coord: coord, action: action, cfg: cfg}
}

// Run processes every task to a terminal status and returns the report.
//
// A fatal error (dead browser, broken config) stops dispatch: in-flight
// tasks get a bounded grace period, undispatched tasks are reported as
// failed with zero attempts, and the run-level error flag is set. External
// cancellation through ctx behaves the same way with a RUN_CANCELED cause.
func (r *Runner) Run(ctx context.Context, tasks []*models.Task) *models.RunReport {
	report := models.NewRunReport()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu         sync.Mutex
		finalized  bool
		abortCause *models.ErrorDetail
		wg         sync.WaitGroup
	)
	sem := make(chan struct{}, r.cfg.Concurrency)

	for _, task := range tasks {
		task.Defaults()

		wg.Add(1)
		go func(task *models.Task) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				return
			}
			defer func() { <-sem }()

			if runCtx.Err() != nil {
				return
			}

			record, err := r.coord.Do(runCtx, task, func(attemptCtx context.Context) (*models.Record, error) {
				return r.attemptWithSession(attemptCtx, task)
			})

			result := &models.TaskResult{
				TaskID:   task.ID,
				URL:      task.URL,
				Status:   task.Status,
				Attempts: task.Attempts,
				Record:   record,
			}
			if err != nil {
				result.Cause = models.DetailOf(err)
			}

			mu.Lock()
			if !finalized {
				report.Add(result)
				if err != nil && models.Fatal(err) && abortCause == nil {
					abortCause = models.DetailOf(err)
					slog.Error("fatal failure, aborting run",
						"task", task.ID, "cause", abortCause.Code)
					cancel()
				}
			}
			mu.Unlock()
		}(task)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-runCtx.Done():
		// Aborted: let in-flight tasks wind down within the grace period,
		// then finalize without them. Their sessions are torn down by the
		// provider's own shutdown.
		select {
		case <-done:
		case <-time.After(r.cfg.GracePeriod):
			slog.Warn("grace period elapsed with tasks still in flight")
		}
	}

	mu.Lock()
	finalized = true
	if abortCause == nil && ctx.Err() != nil {
		abortCause = &models.ErrorDetail{
			Code:    models.ErrCodeCanceled,
			Message: "run canceled before completion",
		}
	}
	r.fillUnfinished(report, tasks, abortCause)
	report.Finalize(abortCause)
	mu.Unlock()

	slog.Info("run finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"aborted", report.Aborted,
	)
	return report
}

// attemptWithSession checks a session out for exactly one attempt and
// guarantees its return on every exit path. Any attempt failure counts
// against the session's health so degraded tabs get recycled. The attempt
// counter is bumped only once a session is actually held: a task whose
// acquisition failed reports zero attempts.
func (r *Runner) attemptWithSession(ctx context.Context, task *models.Task) (*models.Record, error) {
	s, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	task.Attempts++

	record, err := r.action(ctx, s, task)
	r.pool.Release(s, err == nil)
	return record, err
}

// AbortedReport builds a finalized report for a run that could not start at
// all, typically because the browser never launched: every task is reported
// failed with zero attempts and the given cause as the run-level abort cause.
func AbortedReport(tasks []*models.Task, cause *models.ErrorDetail) *models.RunReport {
	report := models.NewRunReport()
	for _, task := range tasks {
		task.Defaults()
		task.Status = models.StatusFailed
		report.Add(&models.TaskResult{
			TaskID: task.ID,
			URL:    task.URL,
			Status: models.StatusFailed,
			Cause:  cause,
		})
	}
	report.Finalize(cause)
	return report
}

// fillUnfinished records a terminal failed result for every task the abort
// left without one. Zero attempts marks a task as never attempted.
func (r *Runner) fillUnfinished(report *models.RunReport, tasks []*models.Task, cause *models.ErrorDetail) {
	for _, task := range tasks {
		if _, ok := report.Results[task.ID]; ok {
			continue
		}
		if !task.Status.Terminal() {
			task.Status = models.StatusFailed
		}
		c := cause
		if c == nil {
			c = &models.ErrorDetail{
				Code:    models.ErrCodeCanceled,
				Message: "task abandoned at run shutdown",
			}
		}
		report.Add(&models.TaskResult{
			TaskID:   task.ID,
			URL:      task.URL,
			Status:   models.StatusFailed,
			Attempts: task.Attempts,
			Cause:    c,
		})
	}
}
