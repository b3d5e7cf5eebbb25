// Package retry wraps one task's navigation+extraction attempts with bounded
// retries and exponential backoff. It owns the task's state machine:
// pending → attempting → {succeeded | retrying → attempting | failed}.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/lookout/config"
	"github.com/use-agent/lookout/models"
)

// Attempt composes navigation and extraction for one try at one task. The
// attempt owns the task's attempt counter: it bumps task.Attempts once it
// actually holds a session, so a failure to even check one out does not
// consume the counter.
type Attempt func(ctx context.Context) (*models.Record, error)

// Coordinator retries transient failures up to the configured attempt budget
// with exponential backoff. Permanent failure classes report immediately.
type Coordinator struct {
	cfg config.RetryConfig
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg config.RetryConfig) *Coordinator {
	return &Coordinator{cfg: cfg}
}

// Do drives the task to a terminal status. On success the record is returned
// and the task is marked succeeded; on permanent failure, attempt exhaustion,
// or cancellation the task is marked failed and the classified error returned.
func (c *Coordinator) Do(ctx context.Context, task *models.Task, attempt Attempt) (*models.Record, error) {
	task.Status = models.StatusInProgress

	var lastErr error
	for tries := 1; tries <= c.cfg.MaxAttempts; tries++ {
		record, err := attempt(ctx)
		if err == nil {
			task.Status = models.StatusSucceeded
			return record, nil
		}
		lastErr = err

		if models.Fatal(err) || !models.Retryable(err) {
			break
		}
		if tries == c.cfg.MaxAttempts {
			break
		}

		delay := c.backoff(tries)
		slog.Debug("transient failure, backing off",
			"task", task.ID, "attempt", task.Attempts, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			task.Status = models.StatusFailed
			return nil, models.Categorize(ctx.Err(), "run canceled during backoff")
		}
	}

	task.Status = models.StatusFailed
	return nil, lastErr
}

// backoff computes the delay before the next attempt: base doubled per
// completed attempt, bounded by the cap. attempts is >= 1.
func (c *Coordinator) backoff(attempts int) time.Duration {
	delay := c.cfg.BackoffBase
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= c.cfg.BackoffCap {
			return c.cfg.BackoffCap
		}
	}
	if delay > c.cfg.BackoffCap {
		delay = c.cfg.BackoffCap
	}
	return delay
}
