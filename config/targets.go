package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/lookout/models"
)

// TargetsFile is the on-disk shape of the targets configuration.
type TargetsFile struct {
	Targets []*models.Task `json:"targets"`
}

var validFetchModes = map[string]bool{"browser": true, "http": true, "auto": true}
var validReadiness = map[string]bool{"idle": true, "stable": true, "selector": true, "delay": true}
var validCapture = map[string]bool{"text": true, "markdown": true, "html": true, "none": true}

// LoadTargets reads and validates the targets file. Every problem it can
// detect is reported up front as CONFIG_INVALID so nothing fails deep inside
// an attempt: URLs must parse, enumerated options must be recognized, and
// every selector (field rules, wait selectors, content scopes) must compile.
func LoadTargets(path string, cfg *Config) ([]*models.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeConfig,
			fmt.Sprintf("cannot read targets file %s", path), err)
	}

	var tf TargetsFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, models.NewRunError(models.ErrCodeConfig,
			fmt.Sprintf("targets file %s is not valid JSON", path), err)
	}
	if len(tf.Targets) == 0 {
		return nil, models.NewRunError(models.ErrCodeConfig,
			"targets file defines no targets", nil)
	}

	seen := make(map[string]bool, len(tf.Targets))
	for i, t := range tf.Targets {
		t.Defaults()
		if err := validateTarget(i, t, cfg); err != nil {
			return nil, err
		}
		if seen[t.ID] {
			return nil, configErrf("duplicate target id %q", t.ID)
		}
		seen[t.ID] = true
	}

	return tf.Targets, nil
}

// Validate checks the cross-cutting scalar configuration.
func (c *Config) Validate() error {
	if c.Mode != "run" && c.Mode != "watch" {
		return configErrf("unknown mode %q (want run or watch)", c.Mode)
	}
	if c.Browser.PoolSize < 1 {
		return configErrf("pool size must be positive, got %d", c.Browser.PoolSize)
	}
	if c.Runner.Concurrency < 1 {
		return configErrf("concurrency must be positive, got %d", c.Runner.Concurrency)
	}
	if c.Retry.MaxAttempts < 1 {
		return configErrf("max attempts must be positive, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BackoffBase <= 0 || c.Retry.BackoffCap < c.Retry.BackoffBase {
		return configErrf("backoff base %s must be positive and no greater than cap %s",
			c.Retry.BackoffBase, c.Retry.BackoffCap)
	}
	if c.Mode == "watch" && c.Watch.Interval < time.Second {
		return configErrf("check interval %s is below 1s", c.Watch.Interval)
	}
	// Concurrency above the pool size would just queue on Acquire; clamp it
	// so the report's in-flight ceiling matches reality.
	if c.Runner.Concurrency > c.Browser.PoolSize {
		c.Runner.Concurrency = c.Browser.PoolSize
	}
	return nil
}

func validateTarget(i int, t *models.Task, cfg *Config) error {
	if t.URL == "" {
		return configErrf("target %d: url is required", i)
	}
	u, err := url.Parse(t.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return configErrf("target %d: invalid url %q", i, t.URL)
	}
	if t.ID == "" {
		t.ID = u.Hostname()
	}
	if !validFetchModes[t.FetchMode] {
		return configErrf("target %s: unknown fetch_mode %q", t.ID, t.FetchMode)
	}
	if !validReadiness[t.Readiness] {
		return configErrf("target %s: unknown readiness %q", t.ID, t.Readiness)
	}
	if t.Readiness == "selector" && t.WaitSelector == "" {
		return configErrf("target %s: readiness selector needs wait_selector", t.ID)
	}
	if t.Readiness == "delay" && t.DelayMs <= 0 {
		return configErrf("target %s: readiness delay needs delay_ms > 0", t.ID)
	}
	if !validCapture[t.Capture] {
		return configErrf("target %s: unknown capture %q", t.ID, t.Capture)
	}
	if maxSec := int(cfg.Nav.MaxTimeout.Seconds()); t.Timeout > maxSec {
		t.Timeout = maxSec
	}

	// Compile every selector eagerly. cascadia.Compile is what goquery runs
	// underneath, so a selector that passes here cannot blow up mid-attempt.
	if t.WaitSelector != "" {
		if _, err := cascadia.Compile(t.WaitSelector); err != nil {
			return configErrf("target %s: wait_selector %q: %v", t.ID, t.WaitSelector, err)
		}
	}
	if t.ContentSelector != "" {
		if _, err := cascadia.Compile(t.ContentSelector); err != nil {
			return configErrf("target %s: content_selector %q: %v", t.ID, t.ContentSelector, err)
		}
	}
	for name, rule := range t.Fields {
		if rule.Selector == "" {
			return configErrf("target %s: field %s has no selector", t.ID, name)
		}
		if _, err := cascadia.Compile(rule.Selector); err != nil {
			return configErrf("target %s: field %s selector %q: %v", t.ID, name, rule.Selector, err)
		}
	}

	if len(t.Fields) == 0 && t.Capture == "none" {
		return configErrf("target %s: no fields and capture none, nothing to extract", t.ID)
	}
	return nil
}

func configErrf(format string, args ...any) *models.RunError {
	return models.NewRunError(models.ErrCodeConfig, fmt.Sprintf(format, args...), nil)
}
