package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

var (
	// ErrNotConfigured means no API credential is set. Never retried.
	ErrNotConfigured = errors.New("model API key not configured")
	// ErrRateLimited means the provider kept answering 429 after all retries.
	ErrRateLimited = errors.New("model rate limited")
	// ErrTransient means connection or timeout failures outlasted all retries.
	ErrTransient = errors.New("model unreachable")
	// ErrEmptyResponse means the provider answered without content.
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// APIError is a non-success HTTP status from the model provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model API returned status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) IsRateLimit() bool   { return e.StatusCode == http.StatusTooManyRequests }
func (e *APIError) IsClientError() bool { return e.StatusCode >= 400 && e.StatusCode < 500 }
func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 }

// Overloaded reports whether the provider said the model is at capacity.
func (e *APIError) Overloaded() bool {
	return strings.Contains(strings.ToLower(e.Message), "overloaded")
}

// RetryExhaustedError wraps the last failure once retries run out.
type RetryExhaustedError struct {
	Attempts int
	Last     error
	kind     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", e.kind, e.Attempts, e.Last)
}

// Is lets callers match ErrRateLimited or ErrTransient.
func (e *RetryExhaustedError) Is(target error) bool {
	return target == e.kind
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// TransientError marks a failure worth retrying that is not a rate limit.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient model error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// isRateLimit reports whether err is a 429 from the provider.
func isRateLimit(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsRateLimit()
}

// isOverloaded reports whether the provider is out of capacity for a model.
func isOverloaded(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.IsRateLimit() || apiErr.Overloaded())
}

func isTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// classifyTransport decides whether a transport failure is transient.
// Cancellation of the caller's own context is never transient.
func classifyTransport(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.As(err, &netErr),
		errors.As(err, &urlErr),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, context.DeadlineExceeded):
		return &TransientError{Err: err}
	}
	return err
}
