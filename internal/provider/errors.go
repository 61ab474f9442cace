package provider

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tradeengage/jobrouting/internal/domain"
)

// APIError is a provider-side request failure. Server errors and timeouts are
// retryable; client errors are not.
type APIError struct {
	Provider   domain.ProviderType
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether a later attempt could succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests
}

// RateLimitError means the provider pushed back on request volume. Always
// retryable; RetryAfter is advisory and may be zero.
type RateLimitError struct {
	Provider   domain.ProviderType
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Provider)
}

// Retryable always holds for rate limiting.
func (e *RateLimitError) Retryable() bool { return true }

// ConfigurationError means the company's provider settings are unusable.
// Retrying cannot fix it; the routing should fail permanently.
type ConfigurationError struct {
	Provider domain.ProviderType
	Message  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s configuration error: %s", e.Provider, e.Message)
}

// Retryable never holds for configuration problems.
func (e *ConfigurationError) Retryable() bool { return false }

// IsRetryable classifies a provider error. Errors without a Retryable method
// (network failures, timeouts) default to retryable.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// IsConfiguration reports whether the error is a non-recoverable
// configuration problem.
func IsConfiguration(err error) bool {
	var c *ConfigurationError
	return errors.As(err, &c)
}
