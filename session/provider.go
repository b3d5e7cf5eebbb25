// Package session owns the browser process lifecycle and the pool of tabs
// handed out to in-flight tasks. The browser launches once at provider start
// and dies once at provider stop; everything in between is pool discipline.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/lookout/config"
	"github.com/use-agent/lookout/models"
)

// Provider launches the headless browser and manages the session pool.
// It is safe for concurrent use.
type Provider struct {
	browser   *rod.Browser
	pool      *Pool
	cfg       config.BrowserConfig
	startTime time.Time
}

// NewProvider launches a headless browser and initialises the session pool.
// A launch or connect failure is fatal and surfaces as SESSION_FATAL.
func NewProvider(cfg config.BrowserConfig) (*Provider, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// Container-friendly and detection-unfriendly flag set.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeSessionFatal,
			"failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewRunError(models.ErrCodeSessionFatal,
			"failed to connect to browser", err)
	}

	p := &Provider{
		browser:   browser,
		cfg:       cfg,
		startTime: time.Now(),
	}
	p.pool = NewPool(cfg.PoolSize,
		func() (*rod.Page, error) {
			return browser.Page(proto.TargetCreateTarget{})
		},
		func(page *rod.Page) {
			_ = page.Close()
		},
	)
	slog.Info("session pool ready", "capacity", cfg.PoolSize)

	return p, nil
}

// Acquire checks a session out of the pool.
func (p *Provider) Acquire(ctx context.Context) (*Session, error) {
	return p.pool.Acquire(ctx)
}

// Release returns a session; unhealthy sessions are discarded and replaced
// lazily on the next Acquire.
func (p *Provider) Release(s *Session, healthy bool) {
	p.pool.Release(s, healthy)
}

// Stats returns a snapshot of the pool's current state.
func (p *Provider) Stats() models.PoolStats {
	return models.PoolStats{
		Capacity: p.cfg.PoolSize,
		Live:     p.pool.Size(),
		Active:   p.pool.Active(),
	}
}

// Uptime reports how long the provider has been running.
func (p *Provider) Uptime() time.Duration {
	return time.Since(p.startTime)
}

// Close drains the pool and kills the browser process. Call on shutdown to
// prevent zombie Chrome processes.
func (p *Provider) Close() {
	slog.Info("session provider shutting down: draining pool")
	p.pool.Close()
	slog.Info("session provider shutting down: closing browser")
	p.browser.MustClose()
	slog.Info("session provider shutdown complete")
}
