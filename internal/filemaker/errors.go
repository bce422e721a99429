package filemaker

import (
	"errors"
	"fmt"
)

// ErrWorkshopNotFound indicates the requested workshop number does not
// exist on the source
var ErrWorkshopNotFound = errors.New("workshop not found on source")

// ErrNotConfigured indicates the connector is missing required settings
var ErrNotConfigured = errors.New("connector is not configured")

// ErrAdminKeyMissing indicates an admin operation was attempted without
// an admin API key configured
var ErrAdminKeyMissing = errors.New("admin API key is not configured")

// ErrUnsupportedOperation indicates the active connector cannot perform
// the requested operation
var ErrUnsupportedOperation = errors.New("operation not supported by this connector")

// ErrInvalidAPIKey indicates the bridge rejected the configured API key
var ErrInvalidAPIKey = errors.New("invalid or expired bridge API key")

// TransportError wraps a failure to reach or query the source, tagged
// with the operation that failed.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("source transport error during %s: %v", e.Action, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError represents a 5xx response from the API bridge
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("bridge server error: HTTP %d", e.StatusCode)
}
