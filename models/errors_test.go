package models

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestRunError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewRunError(ErrCodeNetwork, "navigating to target", inner)

	if !errors.Is(err, inner) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
	if err.Error() == "" {
		t.Error("error string should not be empty")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"run error", NewRunError(ErrCodeNavTimeout, "deadline", nil), ErrCodeNavTimeout},
		{"wrapped run error", fmt.Errorf("attempt 2: %w", NewRunError(ErrCodeExtraction, "missing field", nil)), ErrCodeExtraction},
		{"plain error", errors.New("boom"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{ErrCodeNavTimeout, true},
		{ErrCodeNetwork, true},
		{ErrCodeSessionUnhealthy, true},
		{ErrCodeExtraction, false},
		{ErrCodeBadStatus, false},
		{ErrCodeSessionFatal, false},
		{ErrCodeConfig, false},
		{ErrCodeCanceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := NewRunError(tt.code, "x", nil)
			if got := Retryable(err); got != tt.want {
				t.Errorf("Retryable(%s) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestFatal(t *testing.T) {
	if !Fatal(NewRunError(ErrCodeSessionFatal, "browser gone", nil)) {
		t.Error("SESSION_FATAL should be fatal")
	}
	if !Fatal(NewRunError(ErrCodeConfig, "bad selector", nil)) {
		t.Error("CONFIG_INVALID should be fatal")
	}
	if Fatal(NewRunError(ErrCodeNavTimeout, "slow page", nil)) {
		t.Error("NAV_TIMEOUT should not be fatal")
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, ErrCodeNavTimeout},
		{"wrapped deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), ErrCodeNavTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
		{"other", errors.New("dns failure"), ErrCodeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.err, "msg")
			if CodeOf(got) != tt.want {
				t.Errorf("Categorize() code = %q, want %q", CodeOf(got), tt.want)
			}
		})
	}
}

func TestDetailOf_PreservesCode(t *testing.T) {
	d := DetailOf(NewRunError(ErrCodeBadStatus, "got 503", nil))
	if d.Code != ErrCodeBadStatus {
		t.Errorf("detail code = %q, want %q", d.Code, ErrCodeBadStatus)
	}

	d = DetailOf(errors.New("raw"))
	if d.Code != ErrCodeInternal {
		t.Errorf("plain error detail code = %q, want %q", d.Code, ErrCodeInternal)
	}
}
