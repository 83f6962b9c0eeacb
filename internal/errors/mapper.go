package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MapError maps errors raised by tool backends to the sylva taxonomy.
// Errors already carrying a sylva category are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if Category(err) != "Unknown" {
		return err
	}

	// Propagate cancellation as-is
	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timeout: %v: %w", err, ErrTransient)
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "does not exist"):
		return fmt.Errorf("%v: %w", err, ErrNotFound)

	case strings.Contains(errStr, "invalid input"), strings.Contains(errStr, "invalid request"), strings.Contains(errStr, "bad request"):
		return fmt.Errorf("%v: %w", err, ErrInvalidInput)

	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return fmt.Errorf("%v: %w", err, ErrTransient)

	case strings.Contains(errStr, "network"), strings.Contains(errStr, "connection"), strings.Contains(errStr, "unreachable"):
		return fmt.Errorf("%v: %w", err, ErrTransient)

	default:
		return fmt.Errorf("%v: %w", err, ErrToolExecution)
	}
}

// Category returns the sylva error category name for an error
func Category(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrConfiguration):
		return "ErrConfiguration"
	case errors.Is(err, ErrUnknownTool):
		return "ErrUnknownTool"
	case errors.Is(err, ErrArgumentDecode):
		return "ErrArgumentDecode"
	case errors.Is(err, ErrToolExecution):
		return "ErrToolExecution"
	case errors.Is(err, ErrComposition):
		return "ErrComposition"
	case errors.Is(err, ErrInvalidInput):
		return "ErrInvalidInput"
	case errors.Is(err, ErrNotFound):
		return "ErrNotFound"
	case errors.Is(err, ErrTransient):
		return "ErrTransient"
	case errors.Is(err, ErrInternal):
		return "ErrInternal"
	default:
		return "Unknown"
	}
}

// WrapWithCategory wraps an error with a specific sylva category, keeping the cause text
func WrapWithCategory(err error, message string, category error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %v: %w", message, err, category)
}

// UnknownTool wraps a tool name as unknown
func UnknownTool(name string) error {
	return fmt.Errorf("%s: %w", name, ErrUnknownTool)
}

// ArgumentDecode wraps error as argument decode failure
func ArgumentDecode(message string) error {
	return fmt.Errorf("%s: %w", message, ErrArgumentDecode)
}

// ToolExecution wraps error as tool execution failure
func ToolExecution(message string) error {
	return fmt.Errorf("%s: %w", message, ErrToolExecution)
}

// NotFound wraps error as not found
func NotFound(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNotFound)
}

// Internal wraps error as internal
func Internal(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInternal)
}
