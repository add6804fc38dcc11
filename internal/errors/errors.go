// Package errors defines the error taxonomy for endpoint fetches. The four
// per-endpoint errors are skippable: the orchestrator logs them and moves on
// to the next endpoint. Everything else fails the whole job.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError reports an admission rejection from the rate limiter.
// It is never retried; the endpoint is skipped for this run.
type RateLimitError struct {
	Reason string
	Wait   time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Wait > 0 {
		return fmt.Sprintf("rate limit exceeded (%s), retry in %s", e.Reason, e.Wait.Round(time.Second))
	}
	return fmt.Sprintf("rate limit exceeded (%s)", e.Reason)
}

// HTTPError reports a response with status >= 400. The body is captured for
// diagnostics. HTTP errors are terminal for the attempt and never retried.
type HTTPError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, truncate(e.Body, 200))
}

// TransportError wraps a transport-level failure (timeout, connection refused,
// DNS). Transport errors are the only retriable failures.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TransportExhaustedError reports that the retry budget ran out.
type TransportExhaustedError struct {
	Attempts int
	Err      error
}

func (e *TransportExhaustedError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransportExhaustedError) Unwrap() error {
	return e.Err
}

// DecodeError reports a response body that could not be decoded as its
// declared content type. Never substitutes a default value.
type DecodeError struct {
	ContentType string
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.ContentType, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ConfigError reports a configuration load or validation failure.
type ConfigError struct {
	Name string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("configuration %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError wraps a message into a ConfigError for the named config.
func NewConfigError(name, format string, args ...any) *ConfigError {
	return &ConfigError{Name: name, Err: fmt.Errorf(format, args...)}
}

// IsRateLimit reports whether err is an admission rejection.
func IsRateLimit(err error) bool {
	var target *RateLimitError
	return errors.As(err, &target)
}

// IsHTTP reports whether err is an HTTP status error.
func IsHTTP(err error) bool {
	var target *HTTPError
	return errors.As(err, &target)
}

// IsTransport reports whether err is a retriable transport failure.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsSkippable reports whether the orchestrator should skip the endpoint and
// continue the job rather than failing it.
func IsSkippable(err error) bool {
	var (
		rate      *RateLimitError
		http      *HTTPError
		exhausted *TransportExhaustedError
		decode    *DecodeError
	)
	return errors.As(err, &rate) ||
		errors.As(err, &http) ||
		errors.As(err, &exhausted) ||
		errors.As(err, &decode)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
