package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks malformed configuration or rule definitions.
	// These are fatal at load time, before any file is touched.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks inputs that fail precondition checks.
	ErrValidation = errors.New("validation error")
	// ErrFilesystem marks per-file move failures that are recovered and counted.
	ErrFilesystem = errors.New("filesystem error")
	// ErrUndoIntegrity marks undo-log records that no longer match on-disk state.
	ErrUndoIntegrity = errors.New("undo integrity error")
	// ErrConflict marks an operation refused because another run holds the lock.
	ErrConflict = errors.New("conflicting operation")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrFilesystem
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, ": ")
}
