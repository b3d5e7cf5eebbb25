// Package watch repeatedly sweeps the configured targets, classifies what
// each one shows, and raises notifications when something genuinely new
// appears. Streak gating and fingerprint-based change detection keep a
// flapping target from paging anyone twice for the same content.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/lookout/config"
	"github.com/use-agent/lookout/fingerprint"
	"github.com/use-agent/lookout/models"
	"github.com/use-agent/lookout/notify"
	"github.com/use-agent/lookout/runner"
	"github.com/use-agent/lookout/state"
)

// Alerter delivers watch events. *notify.Notifier implements it; tests
// substitute a recording fake.
type Alerter interface {
	Send(event *notify.Event)
}

// Watcher owns the sweep loop and the per-target observation logic.
type Watcher struct {
	runner   *runner.Runner
	tasks    []*models.Task
	store    *state.Store
	notifier Alerter
	cfg      config.WatchConfig

	// sweepMu serialises sweeps: the interval loop and a manual /check must
	// not contend for the same sessions.
	sweepMu sync.Mutex
}

// New creates a Watcher over the given targets.
func New(r *runner.Runner, tasks []*models.Task, store *state.Store, notifier Alerter, cfg config.WatchConfig) *Watcher {
	return &Watcher{runner: r, tasks: tasks, store: store, notifier: notifier, cfg: cfg}
}

// Loop sweeps immediately, then at every interval tick until ctx is done.
func (w *Watcher) Loop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("watch loop stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs every target through the pipeline once and folds the outcomes
// into the persisted watch state.
func (w *Watcher) Sweep(ctx context.Context) *models.RunReport {
	w.sweepMu.Lock()
	defer w.sweepMu.Unlock()

	report := w.runner.Run(ctx, w.freshTasks())

	if err := w.store.SetReport(report); err != nil {
		slog.Warn("failed to persist run report", "error", err)
	}

	for _, task := range w.tasks {
		if result, ok := report.Results[task.ID]; ok {
			w.observe(task, result)
		}
	}

	if report.Aborted && report.AbortCause != nil {
		w.notifier.Send(&notify.Event{
			Type:    "run.aborted",
			Message: fmt.Sprintf("⚠️ lookout sweep aborted: %s", report.AbortCause.Message),
			Data:    report.AbortCause,
		})
	}
	return report
}

// freshTasks clones the targets so per-run mutable fields (status, attempt
// count) start clean every sweep.
func (w *Watcher) freshTasks() []*models.Task {
	tasks := make([]*models.Task, len(w.tasks))
	for i, t := range w.tasks {
		clone := *t
		clone.Attempts = 0
		clone.Status = models.StatusPending
		tasks[i] = &clone
	}
	return tasks
}

// observe folds one task outcome into the target's remembered state and
// decides whether to notify.
//
// Notification rules, in order:
//   - login_required: immediate credential alert, streak reset.
//   - has_activity: alert only after StreakMin consecutive positive
//     observations AND a material content change AND not the first ever
//     observation (unless configured otherwise).
//   - anything else: remember, stay quiet.
func (w *Watcher) observe(task *models.Task, result *models.TaskResult) {
	prev := w.store.Target(task.ID)
	now := time.Now().UTC()
	firstRun := prev.LastChecked == nil

	next := state.TargetState{
		LastFingerprint:    prev.LastFingerprint,
		LastDOMFingerprint: prev.LastDOMFingerprint,
		LastChecked:        &now,
	}

	if result.Status != models.StatusSucceeded || result.Record == nil {
		next.LastStatus = StatusError
		next.Streak = 0
		if result.Cause != nil && result.Cause.Code == models.ErrCodeExtraction {
			// Structural mismatch: the page renders but no longer matches
			// the extraction map. Worth a human look, not a retry.
			w.notifier.Send(&notify.Event{
				Type:     "target.layout_changed",
				TargetID: task.ID,
				Message: fmt.Sprintf("⚠️ <b>%s</b>: page structure no longer matches the extraction rules (%s)",
					task.ID, result.Cause.Message),
				Data: result.Cause,
			})
		}
		w.persist(task.ID, next)
		return
	}

	record := result.Record
	status := Classify(record.Content, task.Watch)
	fp := fingerprint.Text(record.Content)

	var domFp uint64
	if task.Capture == "html" {
		domFp = fingerprint.DOM(record.Content)
	}

	changed := status != StatusUnknown &&
		fingerprint.Changed(prev.LastFingerprint, fp, w.cfg.ChangeThreshold)

	streak := 0
	if status == StatusHasActivity {
		streak = prev.Streak + 1
	}

	next.LastStatus = status
	next.Streak = streak
	// An unknown page keeps the previous fingerprint so one flaky render
	// can't mask a real change on the next sweep.
	if status != StatusUnknown {
		next.LastFingerprint = fp
		if domFp != 0 {
			next.LastDOMFingerprint = domFp
		}
	}

	switch {
	case status == StatusLoginRequired:
		w.notifier.Send(&notify.Event{
			Type:     "target.login_required",
			TargetID: task.ID,
			Message: fmt.Sprintf("⚠️ <b>%s</b>: session looks expired, update the cookie for %s",
				task.ID, task.URL),
		})

	case status == StatusHasActivity &&
		streak >= w.cfg.StreakMin &&
		changed &&
		(w.cfg.NotifyOnFirstRun || !firstRun):
		w.notifier.Send(&notify.Event{
			Type:     "target.activity",
			TargetID: task.ID,
			Message: fmt.Sprintf("🔔 <b>%s</b>: new activity detected, take a look: %s",
				task.ID, task.URL),
			Data: record.Fields,
		})
	}

	slog.Info("target observed",
		"target", task.ID,
		"status", status,
		"changed", changed,
		"streak", streak,
		"firstRun", firstRun,
	)
	w.persist(task.ID, next)
}

func (w *Watcher) persist(id string, ts state.TargetState) {
	if err := w.store.UpdateTarget(id, ts); err != nil {
		slog.Warn("failed to persist target state", "target", id, "error", err)
	}
}
