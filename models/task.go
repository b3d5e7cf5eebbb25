package models

import "time"

// TaskStatus is the lifecycle state of a task within one run.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusSucceeded  TaskStatus = "succeeded"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status is final for the run.
func (s TaskStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// FieldRule describes how one record field is pulled out of a rendered page.
type FieldRule struct {
	// Selector is the CSS selector locating the field. Required.
	Selector string `json:"selector"`

	// Attr reads the named attribute instead of the element text.
	Attr string `json:"attr,omitempty"`

	// List collects every match instead of the first one.
	List bool `json:"list,omitempty"`

	// Required marks the field as mandatory; a missing required field fails
	// extraction for the whole task.
	Required bool `json:"required,omitempty"`
}

// WatchRules configures status classification for watch mode.
// Marker matching is case-insensitive substring search over the captured
// content, mirroring how humans eyeball a rendered page.
type WatchRules struct {
	// PositiveMarkers indicate activity worth notifying about.
	PositiveMarkers []string `json:"positive_markers,omitempty"`

	// NegativeMarkers indicate an explicit "nothing here" page.
	NegativeMarkers []string `json:"negative_markers,omitempty"`

	// LoginMarkers indicate the session cookie has expired.
	LoginMarkers []string `json:"login_markers,omitempty"`
}

// Task is one unit of automation work: a target page plus the options for
// navigating it and the rules for extracting from it.
type Task struct {
	// ID identifies the task in reports and watch state. Defaults to the
	// target hostname when the config leaves it blank.
	ID string `json:"id"`

	// URL is the target page. Required.
	URL string `json:"url"`

	// FetchMode selects the transport: "browser" (default), "http" for
	// static pages, or "auto" to try HTTP first and escalate to the browser.
	FetchMode string `json:"fetch_mode,omitempty"`

	// Readiness selects the page-ready signal for the browser path:
	// "idle" (network idle, default), "stable" (DOM stable),
	// "selector" (WaitSelector present), or "delay" (fixed pause).
	Readiness string `json:"readiness,omitempty"`

	// WaitSelector is the CSS selector for readiness "selector".
	WaitSelector string `json:"wait_selector,omitempty"`

	// DelayMs is the pause for readiness "delay".
	DelayMs int `json:"delay_ms,omitempty"`

	// Timeout bounds one attempt end to end, in seconds.
	Timeout int `json:"timeout,omitempty"`

	// Stealth enables anti-bot-detection evasions.
	Stealth bool `json:"stealth,omitempty"`

	// Cookie is a raw "name=value; name2=value2" cookie string, injected
	// for the target's registrable domain before navigation.
	Cookie string `json:"cookie,omitempty"`

	// CookieDomain overrides the domain the cookie string is scoped to.
	CookieDomain string `json:"cookie_domain,omitempty"`

	// Headers are extra HTTP headers applied to the navigation.
	Headers map[string]string `json:"headers,omitempty"`

	// AcceptStatuses lists HTTP statuses treated as success. Empty means
	// any 2xx or 3xx.
	AcceptStatuses []int `json:"accept_statuses,omitempty"`

	// Fields maps record field names to extraction rules.
	Fields map[string]FieldRule `json:"fields,omitempty"`

	// ContentSelector scopes content capture to one element; empty captures
	// the whole document body.
	ContentSelector string `json:"content_selector,omitempty"`

	// Capture selects the captured-content format: "text" (default),
	// "markdown", "html", or "none".
	Capture string `json:"capture,omitempty"`

	// Watch holds the watch-mode classification rules for this target.
	Watch *WatchRules `json:"watch,omitempty"`

	// Attempts counts attempts consumed so far. Managed by the retry
	// coordinator; zero before the first attempt.
	Attempts int `json:"-"`

	// Status is the task's lifecycle state within the current run.
	Status TaskStatus `json:"-"`
}

// Defaults applies default values to unset fields.
func (t *Task) Defaults() {
	if t.FetchMode == "" {
		t.FetchMode = "browser"
	}
	if t.Readiness == "" {
		t.Readiness = "idle"
	}
	if t.Timeout == 0 {
		t.Timeout = 30
	}
	if t.Capture == "" {
		t.Capture = "text"
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
}

// Accepts reports whether the page status code passes this task's policy.
// A zero status (capture unavailable) is accepted: the page rendered.
func (t *Task) Accepts(statusCode int) bool {
	if statusCode == 0 {
		return true
	}
	if len(t.AcceptStatuses) == 0 {
		return statusCode >= 200 && statusCode < 400
	}
	for _, s := range t.AcceptStatuses {
		if s == statusCode {
			return true
		}
	}
	return false
}

// PageState is the transient result of one navigation attempt. It lives only
// for the duration of the attempt and is never persisted.
type PageState struct {
	// FinalURL is the URL after redirects.
	FinalURL string

	// StatusCode is the HTTP status of the main document, 0 when the
	// browser could not surface one.
	StatusCode int

	// Ready reports whether the configured readiness condition was reached
	// (as opposed to proceeding with a partially loaded DOM).
	Ready bool

	// HTML is the rendered document snapshot.
	HTML string

	// Title is the document title.
	Title string

	// FetchMethod records the transport used: "browser" or "http".
	FetchMethod string
}

// Record is the immutable structured output of one succeeded task.
type Record struct {
	// TaskID is the provenance link back to the task that produced it.
	TaskID string `json:"task_id"`

	// SourceURL is the final URL the fields were extracted from.
	SourceURL string `json:"source_url"`

	// FetchedAt is when the page snapshot was taken.
	FetchedAt time.Time `json:"fetched_at"`

	// StatusCode is the HTTP status of the snapshot.
	StatusCode int `json:"status_code"`

	// Fields holds the extracted values. Scalar rules yield strings,
	// list rules yield []string.
	Fields map[string]any `json:"fields"`

	// Content is the captured page content in the task's capture format.
	// Empty when capture is "none".
	Content string `json:"content,omitempty"`

	// Title is the document title at capture time.
	Title string `json:"title,omitempty"`
}
