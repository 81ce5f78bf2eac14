package outline

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError represents a 429 response from the Outline API.
// RetryAfter is the server-suggested wait, zero when the header is absent.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("outline: rate limited, retry after %s", e.RetryAfter)
	}
	return "outline: rate limited"
}

// APIError represents a non-2xx, non-429 Outline API response.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("outline: API error %d on %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

// NetworkError wraps a transport-level failure (DNS, connect, timeout).
// These are transient and retried with linear backoff.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("outline: network error on %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsNetwork checks if the error is a transport-level failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsNotFound checks if the error indicates a missing remote entity.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsUnauthorized checks if the error indicates rejected credentials.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401
	}
	return false
}
