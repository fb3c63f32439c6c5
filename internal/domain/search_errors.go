package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// CredentialError reports that no API key could be resolved for a search provider.
type CredentialError struct {
	Provider string // e.g. "Querit"
	EnvVar   string // e.g. "QUERIT_API_KEY"
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s API key not found. Please set %s environment variable.", e.Provider, e.EnvVar)
}

// TransportError wraps a connection, DNS, or timeout failure raised before
// any HTTP response was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was a timeout.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// HTTPStatusError reports a response whose status code is outside 2xx.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string // truncated response body, may be empty
}

func (e *HTTPStatusError) Error() string {
	kind := "Server"
	if e.StatusCode < 500 {
		kind = "Client"
	}
	msg := fmt.Sprintf("%d %s Error: %s for url: %s", e.StatusCode, kind, http.StatusText(e.StatusCode), e.URL)
	if e.Body != "" {
		msg += " (" + e.Body + ")"
	}
	return msg
}

// Temporary reports whether the status is one a later attempt could succeed on.
func (e *HTTPStatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
