// Package nav drives one unit of work through navigation and readiness
// waiting, turning a task into a PageState snapshot. It owns no state beyond
// the session it is handed for the duration of one attempt.
package nav

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/lookout/config"
	"github.com/use-agent/lookout/models"
	"github.com/use-agent/lookout/session"
	"github.com/ysmood/gson"
)

// Controller performs one navigation attempt per call. Safe for concurrent
// use across sessions; it never shares mutable state between invocations.
type Controller struct {
	cfg     config.NavConfig
	fetcher *httpFetcher
}

// NewController creates a Controller. The proxy applies to the HTTP fetch
// path only; browser sessions inherit theirs from the launcher.
func NewController(cfg config.NavConfig, proxy string) *Controller {
	return &Controller{
		cfg:     cfg,
		fetcher: newHTTPFetcher(proxy),
	}
}

// Run navigates the task's target, waits for its readiness condition, and
// enforces the task's status acceptance policy on the result. Exceeding the
// attempt deadline maps to NAV_TIMEOUT, never an indefinite hang.
func (c *Controller) Run(ctx context.Context, s *session.Session, task *models.Task) (*models.PageState, error) {
	timeout := time.Duration(task.Timeout) * time.Second
	if timeout <= 0 || timeout > c.cfg.MaxTimeout {
		timeout = c.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		state *models.PageState
		err   error
	)
	switch task.FetchMode {
	case "http":
		state, err = c.fetcher.fetch(ctx, task)
	case "auto":
		state, err = c.fetcher.fetch(ctx, task)
		if err != nil {
			slog.Debug("http fetch failed, escalating to browser",
				"task", task.ID, "error", err)
			state, err = c.runBrowser(ctx, s, task)
		}
	default:
		state, err = c.runBrowser(ctx, s, task)
	}
	if err != nil {
		return nil, err
	}

	if !task.Accepts(state.StatusCode) {
		msg := fmt.Sprintf("target answered %d, outside the accepted statuses", state.StatusCode)
		// Overload and server-side failures are worth another attempt;
		// anything else rejected by policy is permanent.
		if state.StatusCode == 429 || state.StatusCode >= 500 {
			return nil, models.NewRunError(models.ErrCodeNetwork, msg, nil)
		}
		return nil, models.NewRunError(models.ErrCodeBadStatus, msg, nil)
	}
	return state, nil
}

// runBrowser is the rod-based path.
//
// Ordering constraints:
//   - stealth JS and cookies must be installed before Navigate; they only
//     apply to navigations that happen after them.
//   - the request-idle waiter must be registered before Navigate or it misses
//     in-flight requests and reports idle instantly.
//   - cleanup navigates the ORIGINAL page reference (no request context) to
//     about:blank so it succeeds even after the attempt deadline expired.
func (c *Controller) runBrowser(ctx context.Context, s *session.Session, task *models.Task) (*models.PageState, error) {
	page := s.Page

	defer func() {
		if err := page.Navigate("about:blank"); err != nil {
			slog.Warn("cleanup: failed to blank session page", "session", s.ID, "error", err)
		}
	}()

	if task.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without it",
				"task", task.ID, "error", err)
		}
	}

	if len(task.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(task.Headers),
		}.Call(page)
	}

	if task.Cookie != "" {
		domain := task.CookieDomain
		secure := true
		if u, err := url.Parse(task.URL); err == nil {
			if domain == "" {
				domain = u.Hostname()
			}
			secure = u.Scheme != "http"
		}
		for _, cookie := range ParseCookieString(task.Cookie, domain, secure) {
			_, _ = proto.NetworkSetCookie{
				Name:   cookie.Name,
				Value:  cookie.Value,
				Domain: cookie.Domain,
				Path:   cookie.Path,
				Secure: cookie.Secure,
			}.Call(page)
		}
	}

	p := page.Context(ctx)

	// Registered before Navigate so the idle wait sees every request.
	var waitIdle func()
	if task.Readiness == "idle" {
		waitIdle = p.WaitRequestIdle(c.cfg.IdleWindow, nil, nil, nil)
	}

	if err := p.Navigate(task.URL); err != nil {
		return nil, models.Categorize(err, "navigation to target failed")
	}

	ready := c.awaitReadiness(ctx, p, task, waitIdle)
	if err := ctx.Err(); err != nil {
		return nil, models.Categorize(err, "readiness wait exceeded attempt deadline")
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, models.Categorize(err, "failed to snapshot page HTML")
	}

	state := &models.PageState{
		HTML:        rawHTML,
		Ready:       ready,
		StatusCode:  readStatusCode(p),
		Title:       evalStringOrEmpty(p, `() => document.title`),
		FinalURL:    evalStringOrEmpty(p, `() => window.location.href`),
		FetchMethod: "browser",
	}
	if state.FinalURL == "" {
		state.FinalURL = task.URL
	}
	return state, nil
}

// awaitReadiness blocks until the task's readiness condition holds or its
// window closes. It returns whether the condition was actually reached;
// best-effort conditions (idle, stable) proceed with the current DOM when
// they fail to converge, matching how a human gives up waiting on a spinner.
func (c *Controller) awaitReadiness(ctx context.Context, p *rod.Page, task *models.Task, waitIdle func()) bool {
	switch task.Readiness {
	case "idle":
		if waitIdle != nil {
			waitIdle()
		}
		return ctx.Err() == nil

	case "selector":
		// Leave a margin of the attempt budget for the snapshot itself.
		wait := readinessWindow(ctx)
		if err := p.Timeout(wait).WaitElementsMoreThan(task.WaitSelector, 0); err != nil {
			slog.Debug("wait selector did not appear, snapshotting anyway",
				"task", task.ID, "selector", task.WaitSelector, "error", err)
			return false
		}
		return true

	case "delay":
		select {
		case <-time.After(time.Duration(task.DelayMs) * time.Millisecond):
			return true
		case <-ctx.Done():
			return false
		}

	default: // "stable"
		if err := p.WaitDOMStable(c.cfg.IdleWindow, 0.1); err != nil {
			slog.Debug("DOM did not stabilise, snapshotting anyway",
				"task", task.ID, "error", err)
			return false
		}
		return true
	}
}

// readinessWindow returns the attempt time remaining minus a snapshot margin.
func readinessWindow(ctx context.Context) time.Duration {
	const margin = 2 * time.Second
	deadline, ok := ctx.Deadline()
	if !ok {
		return 20 * time.Second
	}
	w := time.Until(deadline) - margin
	if w < time.Second {
		w = time.Second
	}
	return w
}

// readStatusCode pulls the main document's HTTP status from the performance
// timeline. No CDP event listeners needed, so it cannot conflict with other
// Network-domain users; 0 means the browser would not say.
func readStatusCode(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (used for optional metadata).
func evalStringOrEmpty(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
