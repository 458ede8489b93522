// Package apierr provides the error sentinels and retry loop shared by the
// HTTP-facing packages. Responses are classified into these sentinels at the
// transport boundary so callers can branch with errors.Is.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for remote access failures.
var (
	// ErrNetwork is returned once a request could not be completed, either
	// because the transport failed or because retries were exhausted.
	ErrNetwork = errors.New("network error")

	// ErrServerError indicates a transient 5xx response (retryable).
	ErrServerError = errors.New("server error")

	// ErrClientError indicates a 4xx response. Never retried.
	ErrClientError = errors.New("client error")

	// ErrNotFound indicates a 404. Also matches ErrClientError.
	ErrNotFound = errors.New("not found")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrTransport marks a failure below HTTP (DNS, connection reset, TLS).
	ErrTransport = errors.New("transport failure")
)

// retryableStatus lists the status codes worth another attempt.
var retryableStatus = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// ClassifyStatus maps a non-2xx HTTP status to a wrapped sentinel.
// It returns nil for 2xx and 3xx codes.
func ClassifyStatus(code int) error {
	switch {
	case code < 400:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("HTTP %d: %w: %w", code, ErrClientError, ErrNotFound)
	case code < 500:
		return fmt.Errorf("HTTP %d: %w", code, ErrClientError)
	case retryableStatus[code]:
		return fmt.Errorf("HTTP %d: %w", code, ErrServerError)
	default:
		// 501, 505... are server faults that another attempt will not fix.
		return fmt.Errorf("HTTP %d: %w", code, ErrNetwork)
	}
}

// IsRetryable reports whether err warrants another attempt.
// Transient 5xx responses, timeouts and transport failures are retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrClientError) {
		return false
	}
	return errors.Is(err, ErrServerError) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransport)
}
