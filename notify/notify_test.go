package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/lookout/config"
)

func TestDeliverWebhook_SignsBody(t *testing.T) {
	const secret = "hunter2"

	var gotSig atomic.Value
	var gotBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(body)
		gotSig.Store(r.Header.Get("X-Lookout-Signature"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(config.NotifyConfig{WebhookURL: srv.URL, WebhookSecret: secret})
	event := &Event{Type: "target.activity", TargetID: "board", Message: "hi", Timestamp: 1}

	if err := n.deliverWebhook(context.Background(), event); err != nil {
		t.Fatalf("delivery failed: %v", err)
	}

	body := gotBody.Load().([]byte)
	var decoded Event
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("webhook body is not JSON: %v", err)
	}
	if decoded.Type != "target.activity" || decoded.TargetID != "board" {
		t.Errorf("decoded event = %+v", decoded)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if got := gotSig.Load().(string); got != want {
		t.Errorf("signature = %q, want %q", got, want)
	}
}

func TestDeliverWebhook_NoSecretNoSignature(t *testing.T) {
	var gotSig atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig.Store(r.Header.Get("X-Lookout-Signature"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(config.NotifyConfig{WebhookURL: srv.URL})
	if err := n.deliverWebhook(context.Background(), &Event{Type: "x", Message: "y"}); err != nil {
		t.Fatalf("delivery failed: %v", err)
	}
	if got := gotSig.Load().(string); got != "" {
		t.Errorf("unexpected signature header without a secret: %q", got)
	}
}

func TestDeliverWebhook_ServerErrorReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := New(config.NotifyConfig{WebhookURL: srv.URL})
	if err := n.deliverWebhook(context.Background(), &Event{Type: "x", Message: "y"}); err == nil {
		t.Error("5xx response should be reported as an error")
	}
}

func TestSend_UnconfiguredIsNoOp(t *testing.T) {
	n := New(config.NotifyConfig{})
	// Must not panic, block, or reach the network.
	n.Send(&Event{Type: "target.activity", Message: "quiet"})
}

func TestSend_RateLimitDropsExcess(t *testing.T) {
	var delivered atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Burst of 2: the third immediate send must be dropped.
	n := New(config.NotifyConfig{WebhookURL: srv.URL, PerMinute: 1})
	for i := 0; i < 3; i++ {
		n.Send(&Event{Type: "target.activity", Message: "m"})
	}

	// Async delivery: give the goroutines a moment.
	deadline := time.Now().Add(2 * time.Second)
	for delivered.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	if got := delivered.Load(); got != 2 {
		t.Errorf("delivered %d events, want 2 (burst) with the rest dropped", got)
	}
}
