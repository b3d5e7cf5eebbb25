package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/lookout/api"
	"github.com/use-agent/lookout/config"
	"github.com/use-agent/lookout/extract"
	"github.com/use-agent/lookout/models"
	"github.com/use-agent/lookout/nav"
	"github.com/use-agent/lookout/notify"
	"github.com/use-agent/lookout/retry"
	"github.com/use-agent/lookout/runner"
	"github.com/use-agent/lookout/session"
	"github.com/use-agent/lookout/state"
	"github.com/use-agent/lookout/watch"
)

func main() {
	// ── 1. Load and validate configuration ──────────────────────────
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("lookout starting",
		"mode", cfg.Mode,
		"targets", cfg.TargetsFile,
		"poolSize", cfg.Browser.PoolSize,
		"concurrency", cfg.Runner.Concurrency,
	)

	// ── 3. Load targets (fail fast on any invalid entry) ────────────
	tasks, err := config.LoadTargets(cfg.TargetsFile, cfg)
	if err != nil {
		slog.Error("failed to load targets", "error", err)
		os.Exit(1)
	}
	slog.Info("targets loaded", "count", len(tasks))

	// ── 4. Initialise session provider (launches browser) ───────────
	provider, err := session.NewProvider(cfg.Browser)
	if err != nil {
		slog.Error("failed to initialise session provider", "error", err)
		if cfg.Mode != "watch" {
			// A run that never got a browser still owes its caller a report:
			// every task failed at zero attempts, with the launch error as
			// the abort cause.
			report := runner.AbortedReport(tasks, models.DetailOf(err))
			if werr := writeReport(cfg, report); werr != nil {
				slog.Error("failed to write report", "error", werr)
			}
		}
		os.Exit(1)
	}

	// ── 5. Wire the pipeline: nav → extract under retry ─────────────
	controller := nav.NewController(cfg.Nav, cfg.Browser.Proxy)
	engine := extract.NewEngine()

	action := func(ctx context.Context, s *session.Session, task *models.Task) (*models.Record, error) {
		pageState, err := controller.Run(ctx, s, task)
		if err != nil {
			return nil, err
		}
		return engine.Extract(pageState, task)
	}

	coord := retry.NewCoordinator(cfg.Retry)
	run := runner.New(provider, coord, action, cfg.Runner)

	var code int
	switch cfg.Mode {
	case "watch":
		code = watchMode(cfg, run, tasks, provider)
	default:
		code = runMode(cfg, run, tasks)
	}

	// Drain the pool and kill Chrome before exiting; os.Exit skips defers.
	provider.Close()
	os.Exit(code)
}

// runMode processes the queue once, writes the report, and returns the exit
// code under the strict policy: 0 only when every task succeeded and nothing
// aborted.
func runMode(cfg *config.Config, run *runner.Runner, tasks []*models.Task) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report := run.Run(ctx, tasks)

	if err := writeReport(cfg, report); err != nil {
		slog.Error("failed to write report", "error", err)
		return 1
	}

	slog.Info("run finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"aborted", report.Aborted,
	)
	return report.ExitCode()
}

// writeReport serialises the run report to the configured output path, or to
// stdout when none is set.
func writeReport(cfg *config.Config, report *models.RunReport) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if cfg.OutputPath != "" {
		if err := os.WriteFile(cfg.OutputPath, out, 0644); err != nil {
			return fmt.Errorf("write report to %s: %w", cfg.OutputPath, err)
		}
		return nil
	}
	fmt.Println(string(out))
	return nil
}

// watchMode starts the sweep loop and the control API, then blocks until a
// shutdown signal arrives or the server dies. Returns the process exit code;
// the caller still owns browser teardown, so this never calls os.Exit.
func watchMode(cfg *config.Config, run *runner.Runner, tasks []*models.Task, provider *session.Provider) int {
	store := state.Open(cfg.StateFile)
	notifier := notify.New(cfg.Notify)
	watcher := watch.New(run, tasks, store, notifier, cfg.Watch)

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		watcher.Loop(loopCtx)
	}()

	startTime := time.Now()
	router := api.NewRouter(provider, watcher, store, cfg, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	code := 0
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("HTTP server error", "error", err)
		code = 1
	}

	// Stop accepting requests, then stop sweeping. An in-flight sweep gets a
	// bounded window to drain before the browser goes down.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	cancelLoop()
	select {
	case <-loopDone:
		slog.Info("watch loop drained")
	case <-time.After(cfg.Runner.GracePeriod):
		slog.Warn("watch loop did not drain in time")
	}

	slog.Info("lookout stopped")
	return code
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
