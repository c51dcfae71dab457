package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors for the transport failure classes the caller can act on.
// All of them abort the current turn; none of them corrupt session history.
var (
	// ErrRateLimited maps HTTP 429 and quota exhaustion.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnauthorized maps HTTP 401/403 and invalid API keys.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNetwork maps connectivity failures and server-side 5xx errors.
	ErrNetwork = errors.New("network error")
)

// APIError represents an API error with HTTP status code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code onto the sentinel taxonomy so callers can use
// errors.Is without inspecting codes.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == 429:
		return ErrRateLimited
	case e.StatusCode == 401 || e.StatusCode == 403:
		return ErrUnauthorized
	case e.StatusCode >= 500:
		return ErrNetwork
	}
	return nil
}

// ClassifyError wraps a raw transport error with the matching sentinel.
// Errors already carrying a sentinel pass through unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNetwork) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case containsAny(msg, "429") || strings.Contains(lower, "rate limit") || strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	case containsAny(msg, "401", "403") || strings.Contains(lower, "api key") || strings.Contains(msg, "PERMISSION_DENIED") || strings.Contains(msg, "UNAUTHENTICATED"):
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s", ErrNetwork, msg)
	}

	networkPatterns := []string{
		"500", "502", "503", "504",
		"connection refused",
		"connection reset",
		"no such host",
		"timeout",
		"unavailable",
		"eof",
		"tls handshake",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w: %s", ErrNetwork, msg)
		}
	}

	return err
}

// IsRetryable reports whether a classified error is worth retrying.
// Rate limits and network failures are transient; auth failures are not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
