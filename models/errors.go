package models

import (
	"context"
	"errors"
	"fmt"
)

// Error codes used in run reports, API responses, and internal error handling.
const (
	ErrCodeSessionFatal     = "SESSION_FATAL"
	ErrCodeSessionUnhealthy = "SESSION_UNHEALTHY"
	ErrCodeNavTimeout       = "NAV_TIMEOUT"
	ErrCodeNetwork          = "NETWORK_ERROR"
	ErrCodeExtraction       = "EXTRACT_FAILED"
	ErrCodeBadStatus        = "UNACCEPTABLE_STATUS"
	ErrCodeConfig           = "CONFIG_INVALID"
	ErrCodeCanceled         = "RUN_CANCELED"
	ErrCodeInternal         = "INTERNAL_ERROR"

	// Control API only.
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeNotFound     = "NOT_FOUND"
)

// ErrorDetail is the structured error shape used in reports and API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunError is the internal error type carrying a classification code.
// It implements the error interface and supports wrapping via Unwrap.
type RunError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *RunError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError creates a new RunError.
func NewRunError(code, message string, err error) *RunError {
	return &RunError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to a report-facing ErrorDetail.
func (e *RunError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf extracts the classification code from any error. Errors that are not
// RunErrors are reported as INTERNAL_ERROR.
func CodeOf(err error) string {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return ErrCodeInternal
}

// DetailOf converts any error into an ErrorDetail, preserving the code when
// the error is a RunError.
func DetailOf(err error) *ErrorDetail {
	var re *RunError
	if errors.As(err, &re) {
		return re.ToDetail()
	}
	return &ErrorDetail{Code: ErrCodeInternal, Message: err.Error()}
}

// Retryable reports whether an attempt that failed with err may be retried.
// Timeouts, network-level failures, and unhealthy sessions are transient;
// extraction mismatches, rejected status codes, configuration problems, and
// fatal browser failures are permanent.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case ErrCodeNavTimeout, ErrCodeNetwork, ErrCodeSessionUnhealthy:
		return true
	default:
		return false
	}
}

// Fatal reports whether err must abort the whole run rather than fail one task.
func Fatal(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeSessionFatal || code == ErrCodeConfig
}

// Categorize wraps a raw navigation error into a typed RunError so the retry
// coordinator can classify it. Context expiry maps to NAV_TIMEOUT; everything
// else is treated as a network-level failure.
func Categorize(err error, msg string) *RunError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewRunError(ErrCodeNavTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return NewRunError(ErrCodeCanceled, msg, err)
	default:
		return NewRunError(ErrCodeNetwork, msg, err)
	}
}
