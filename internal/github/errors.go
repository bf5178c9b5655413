package github

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents an error response from the GitHub REST API.
// Callers should prefer the predicate functions (IsNotFound, IsUnauthorized, etc.)
// to inspect errors rather than asserting on this type directly.
type APIError struct {
	operation  string
	statusCode int
	message    string
	docURL     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.operation, e.statusCode, e.message)
}

func newAPIError(operation string, statusCode int, message, docURL string) *APIError {
	return &APIError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
		docURL:     docURL,
	}
}

// StatusCode returns the HTTP status code from the response.
func (e *APIError) StatusCode() int { return e.statusCode }

// Message returns the error message GitHub sent, or the HTTP status text.
func (e *APIError) Message() string { return e.message }

// DocumentationURL returns the documentation link GitHub attached, if any.
func (e *APIError) DocumentationURL() string { return e.docURL }

// Operation returns a short description of the API call that failed.
func (e *APIError) Operation() string { return e.operation }

// IsNotFound reports whether err is an API error with HTTP 404 status.
func IsNotFound(err error) bool { return HasStatusCode(err, http.StatusNotFound) }

// IsUnauthorized reports whether err is an API error with HTTP 401 status.
func IsUnauthorized(err error) bool { return HasStatusCode(err, http.StatusUnauthorized) }

// IsGone reports whether err is an API error with HTTP 410 status. GitHub
// answers 410 for expired artifacts.
func IsGone(err error) bool { return HasStatusCode(err, http.StatusGone) }

// HasStatusCode reports whether err is an API error whose HTTP status code matches.
func HasStatusCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.statusCode == code
}
