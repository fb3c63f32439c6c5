package tool

import (
	"errors"
	"strings"

	"querit-websearch/internal/domain"
)

// retryableSentinels lists domain errors that indicate transient failures.
var retryableSentinels = []error{
	domain.ErrTimeout,
	domain.ErrProviderError,
	domain.ErrRateLimit,
}

// retryablePatterns are substrings in error messages that indicate transient failures.
// Checked case-insensitively.
var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"deadline exceeded",
	"temporarily unavailable",
	"service unavailable",
	"try again",
}

// classifyToolError returns true if the error is transient and the tool call
// may succeed on retry. Returns false for nil, permanent, or unknown errors.
// Nothing in this module retries; the flag is a hint for the host.
func classifyToolError(err error) bool {
	if err == nil {
		return false
	}

	// Typed search errors decide on their own.
	var credErr *domain.CredentialError
	if errors.As(err, &credErr) {
		return false
	}
	var statusErr *domain.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var transportErr *domain.TransportError
	if errors.As(err, &transportErr) {
		return true
	}

	for _, sentinel := range retryableSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	// String-based fallback for errors without sentinel wrapping.
	lower := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}

	return false
}
