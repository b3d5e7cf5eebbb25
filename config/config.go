package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Mode      string // "run" (one-shot) or "watch" (loop + API); default: "run"
	Server    ServerConfig
	Browser   BrowserConfig
	Nav       NavConfig
	Retry     RetryConfig
	Runner    RunnerConfig
	Watch     WatchConfig
	Notify    NotifyConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig

	// TargetsFile is the path of the JSON targets file.
	TargetsFile string

	// StateFile is where watch-mode state persists across restarts.
	StateFile string

	// OutputPath receives the run report; empty means stdout.
	OutputPath string
}

// ServerConfig controls the watch-mode HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the browser process and the session pool.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// PoolSize is the session pool capacity (max concurrent tabs).
	PoolSize int // default: 4

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all sessions.
	Proxy string
}

// NavConfig controls navigation behavior.
type NavConfig struct {
	// DefaultTimeout is the per-attempt deadline when a task sets none.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout caps the per-attempt deadline a task may request.
	MaxTimeout time.Duration // default: 120s

	// IdleWindow is the quiet period required by the network-idle and
	// DOM-stable readiness waits.
	IdleWindow time.Duration // default: 300ms
}

// RetryConfig controls the retry/backoff coordinator.
type RetryConfig struct {
	// MaxAttempts is the attempt budget per task.
	MaxAttempts int // default: 3

	// BackoffBase is the delay before the first retry; each retry doubles it.
	BackoffBase time.Duration // default: 1s

	// BackoffCap bounds the computed delay.
	BackoffCap time.Duration // default: 30s
}

// RunnerConfig controls task dispatch.
type RunnerConfig struct {
	// Concurrency is the number of simultaneously in-flight tasks. It is
	// clamped to the session pool size at startup.
	Concurrency int // default: 2

	// GracePeriod bounds how long in-flight tasks may run after an abort
	// before sessions are torn down.
	GracePeriod time.Duration // default: 10s
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	// Interval is the pause between sweeps.
	Interval time.Duration // default: 5m

	// StreakMin is how many consecutive positive observations are needed
	// before a notification fires.
	StreakMin int // default: 2

	// ChangeThreshold is the max fingerprint Hamming distance still treated
	// as "same content".
	ChangeThreshold int // default: 3

	// NotifyOnFirstRun fires notifications on a target's first observation.
	NotifyOnFirstRun bool // default: false
}

// NotifyConfig controls outbound notifications.
type NotifyConfig struct {
	// TelegramToken and TelegramChatID configure the Telegram channel.
	// Both empty disables it.
	TelegramToken  string
	TelegramChatID string

	// WebhookURL receives signed JSON events. Empty disables it.
	WebhookURL string

	// WebhookSecret signs webhook payloads with HMAC-SHA256.
	WebhookSecret string

	// PerMinute throttles outbound notifications.
	PerMinute float64 // default: 6
}

// AuthConfig controls API key authentication for the control API.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-identity rate limiting on the control API.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per identity.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per identity.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
// Target descriptors live in the targets file; see LoadTargets.
func Load() *Config {
	return &Config{
		Mode:        envOr("LOOKOUT_MODE", "run"),
		TargetsFile: envOr("LOOKOUT_TARGETS_FILE", "targets.json"),
		StateFile:   envOr("LOOKOUT_STATE_FILE", "state.json"),
		OutputPath:  os.Getenv("LOOKOUT_OUTPUT"),
		Server: ServerConfig{
			Host: envOr("LOOKOUT_HOST", "0.0.0.0"),
			Port: envIntOr("LOOKOUT_PORT", 8080),
			Mode: envOr("LOOKOUT_SERVER_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("LOOKOUT_HEADLESS", true),
			PoolSize:   envIntOr("LOOKOUT_POOL_SIZE", 4),
			NoSandbox:  envBoolOr("LOOKOUT_NO_SANDBOX", true),
			BrowserBin: os.Getenv("LOOKOUT_BROWSER_BIN"),
			Proxy:      os.Getenv("LOOKOUT_PROXY"),
		},
		Nav: NavConfig{
			DefaultTimeout: envDurationOr("LOOKOUT_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:     envDurationOr("LOOKOUT_MAX_TIMEOUT", 120*time.Second),
			IdleWindow:     envDurationOr("LOOKOUT_IDLE_WINDOW", 300*time.Millisecond),
		},
		Retry: RetryConfig{
			MaxAttempts: envIntOr("LOOKOUT_MAX_ATTEMPTS", 3),
			BackoffBase: envDurationOr("LOOKOUT_BACKOFF_BASE", time.Second),
			BackoffCap:  envDurationOr("LOOKOUT_BACKOFF_CAP", 30*time.Second),
		},
		Runner: RunnerConfig{
			Concurrency: envIntOr("LOOKOUT_CONCURRENCY", 2),
			GracePeriod: envDurationOr("LOOKOUT_GRACE_PERIOD", 10*time.Second),
		},
		Watch: WatchConfig{
			Interval:         envDurationOr("LOOKOUT_CHECK_INTERVAL", 5*time.Minute),
			StreakMin:        envIntOr("LOOKOUT_STREAK_MIN", 2),
			ChangeThreshold:  envIntOr("LOOKOUT_CHANGE_THRESHOLD", 3),
			NotifyOnFirstRun: envBoolOr("LOOKOUT_NOTIFY_FIRST_RUN", false),
		},
		Notify: NotifyConfig{
			TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
			TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),
			WebhookURL:     os.Getenv("LOOKOUT_WEBHOOK_URL"),
			WebhookSecret:  os.Getenv("LOOKOUT_WEBHOOK_SECRET"),
			PerMinute:      envFloatOr("LOOKOUT_NOTIFY_PER_MINUTE", 6.0),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("LOOKOUT_AUTH_ENABLED", false),
			APIKeys: envSliceOr("LOOKOUT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("LOOKOUT_RATE_RPS", 5.0),
			Burst:             envIntOr("LOOKOUT_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("LOOKOUT_LOG_LEVEL", "info"),
			Format: envOr("LOOKOUT_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
