package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an unexpected response body is kept.
const maxErrorBody = 4 << 10

// Common errors returned by the client and its callers.
var (
	// ErrRetryExhausted is returned when a capped retry loop gives up.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrMissingToken is returned by New when no credential is configured.
	ErrMissingToken = errors.New("github token is required")
)

// StatusError is returned for HTTP statuses the caller does not handle.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("github %s: unexpected status %s: %s", e.Endpoint, e.Status, e.Body)
	}
	return fmt.Sprintf("github %s: unexpected status %s", e.Endpoint, e.Status)
}

// IsForbidden reports whether the status is the 403 rate-limit rejection.
func (e *StatusError) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// NewStatusError builds a StatusError from resp, consuming and closing its body.
func NewStatusError(endpoint string, resp *http.Response) *StatusError {
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return &StatusError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Status:     status,
		Body:       strings.TrimSpace(string(body)),
	}
}

// IsForbidden reports whether err wraps a 403 StatusError.
func IsForbidden(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.IsForbidden()
}
