package daemon

import (
	"errors"
	"fmt"
)

// UnreachableError indicates the daemon could not be reached at the network
// level (connection refused, timeout, TLS or DNS failure). The message carries
// the target host but never the node's bearer token.
type UnreachableError struct {
	Host  string
	Cause error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("daemon unreachable at %s: %v", e.Host, e.Cause)
}

func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// NewUnreachableError creates a new unreachable error
func NewUnreachableError(host string, cause error) *UnreachableError {
	return &UnreachableError{Host: host, Cause: cause}
}

// APIError indicates the daemon responded with a non-2xx status. The body is
// preserved (truncated) for operator diagnostics.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("daemon returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("daemon returned HTTP %d: %s", e.Status, e.Body)
}

// NewAPIError creates a new API error
func NewAPIError(status int, body string) *APIError {
	return &APIError{Status: status, Body: body}
}

// MalformedResponseError indicates the daemon claimed a JSON response that
// failed to parse, or an expected field was absent. Propagates like an
// APIError.
type MalformedResponseError struct {
	Message string
	Cause   error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed daemon response: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("malformed daemon response: %s", e.Message)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

// NewMalformedResponseError creates a new malformed response error
func NewMalformedResponseError(message string, cause error) *MalformedResponseError {
	return &MalformedResponseError{Message: message, Cause: cause}
}

// IsUnreachable reports whether err is (or wraps) an UnreachableError.
func IsUnreachable(err error) bool {
	var target *UnreachableError
	return errors.As(err, &target)
}

// IsAPIError reports whether err is (or wraps) an APIError.
func IsAPIError(err error) bool {
	var target *APIError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is an APIError with a 404 status.
func IsNotFound(err error) bool {
	var target *APIError
	return errors.As(err, &target) && target.Status == 404
}
