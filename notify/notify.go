// Package notify delivers watch-mode alerts to Telegram and signed webhooks.
// Delivery is asynchronous with a retry ladder, and rate limited so a
// flapping target cannot flood the channel.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/use-agent/lookout/config"
	"golang.org/x/time/rate"
)

// Event is the payload sent to notification channels.
type Event struct {
	Type      string `json:"type"` // e.g. "target.activity", "target.login_required", "run.aborted"
	TargetID  string `json:"target_id,omitempty"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// Notifier fans one event out to every configured channel.
type Notifier struct {
	cfg     config.NotifyConfig
	limiter *rate.Limiter
	client  *http.Client
}

// New creates a Notifier. With neither Telegram nor a webhook configured it
// degrades to a no-op that logs what it would have sent.
func New(cfg config.NotifyConfig) *Notifier {
	perMinute := cfg.PerMinute
	if perMinute <= 0 {
		perMinute = 6
	}
	return &Notifier{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60.0), 2),
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

// Send delivers the event asynchronously with up to 3 retries per channel.
// Retry intervals: 1s, 5s, 30s. Events over the rate limit are dropped, not
// queued; the next sweep will regenerate anything still relevant.
func (n *Notifier) Send(event *Event) {
	if !n.configured() {
		slog.Info("notification channels not configured, skipping",
			"event", event.Type, "target", event.TargetID)
		return
	}
	if !n.limiter.Allow() {
		slog.Warn("notification rate limit hit, dropping event",
			"event", event.Type, "target", event.TargetID)
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	go n.deliverWithRetries(event)
}

func (n *Notifier) configured() bool {
	return (n.cfg.TelegramToken != "" && n.cfg.TelegramChatID != "") || n.cfg.WebhookURL != ""
}

func (n *Notifier) deliverWithRetries(event *Event) {
	delays := []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

	telegramPending := n.cfg.TelegramToken != "" && n.cfg.TelegramChatID != ""
	webhookPending := n.cfg.WebhookURL != ""

	for attempt, delay := range delays {
		if delay > 0 {
			time.Sleep(delay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)

		if telegramPending {
			if err := n.deliverTelegram(ctx, event.Message); err != nil {
				slog.Warn("telegram delivery failed",
					"event", event.Type, "attempt", attempt+1, "error", err)
			} else {
				telegramPending = false
			}
		}
		if webhookPending {
			if err := n.deliverWebhook(ctx, event); err != nil {
				slog.Warn("webhook delivery failed",
					"url", n.cfg.WebhookURL, "event", event.Type,
					"attempt", attempt+1, "error", err)
			} else {
				webhookPending = false
			}
		}
		cancel()

		if !telegramPending && !webhookPending {
			slog.Info("notification delivered",
				"event", event.Type, "target", event.TargetID, "attempt", attempt+1)
			return
		}
	}
	slog.Error("notification delivery exhausted all retries",
		"event", event.Type, "target", event.TargetID)
}

// deliverTelegram sends the message through the Bot API sendMessage call.
// HTML parse mode matches the markup used in watch alerts.
func (n *Notifier) deliverTelegram(ctx context.Context, msg string) error {
	endpoint := fmt.Sprintf(
		"https://api.telegram.org/bot%s/sendMessage?chat_id=%s&text=%s&parse_mode=HTML",
		n.cfg.TelegramToken,
		url.QueryEscape(n.cfg.TelegramChatID),
		url.QueryEscape(msg),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("notify: build telegram request: %w", err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// deliverWebhook POSTs the event as JSON. The body is signed with HMAC-SHA256
// when a secret is configured. Header: X-Lookout-Signature: sha256=<hex>.
func (n *Notifier) deliverWebhook(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Lookout-Webhook/1.0")

	if n.cfg.WebhookSecret != "" {
		mac := hmac.New(sha256.New, []byte(n.cfg.WebhookSecret))
		mac.Write(body)
		req.Header.Set("X-Lookout-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
