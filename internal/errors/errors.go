package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the categories a turn can hit
var (
	// ErrConfiguration - backend credentials missing, unknown backend selector or upstream non-success response
	ErrConfiguration = errors.New("configuration error")

	// ErrUnknownTool - tool name outside the catalog (surfaced as a tool event, turn continues)
	ErrUnknownTool = errors.New("unknown tool")

	// ErrArgumentDecode - malformed JSON arguments on a tool call (call skipped, turn continues)
	ErrArgumentDecode = errors.New("argument decode error")

	// ErrToolExecution - tool backend failure or rejected response shape (surfaced as a tool event)
	ErrToolExecution = errors.New("tool execution error")

	// ErrComposition - forced prose follow-up failed (best raw answer returned instead)
	ErrComposition = errors.New("composition failure")

	// ErrInvalidInput - invalid input (request validation, argument validation)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - resource not found
	ErrNotFound = errors.New("not found")

	// ErrTransient - timeout or network failure
	ErrTransient = errors.New("transient error")

	// ErrInternal - internal error
	ErrInternal = errors.New("internal error")
)

// ConfigurationError carries the backend and upstream status of a completion failure.
// Status is zero when the failure happened before any response was received.
type ConfigurationError struct {
	Backend string
	Status  int
	Reason  string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Status > 0 && e.Backend != "":
		return fmt.Sprintf("%s backend returned status %d: %s", e.Backend, e.Status, e.Reason)
	case e.Backend != "":
		return fmt.Sprintf("%s backend: %s", e.Backend, e.Reason)
	default:
		return e.Reason
	}
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// Configuration builds a ConfigurationError without upstream status
func Configuration(backend, reason string) error {
	return &ConfigurationError{Backend: backend, Reason: reason}
}

// Upstream builds a ConfigurationError for a non-success backend response
func Upstream(backend string, status int, reason string) error {
	return &ConfigurationError{Backend: backend, Status: status, Reason: reason}
}

// StatusOf returns the upstream status recorded on a ConfigurationError, or zero
func StatusOf(err error) int {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.Status
	}
	return 0
}
