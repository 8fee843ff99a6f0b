package registry

import (
	"errors"
	"fmt"
)

// FatalError represents a misassembled process: the testbench and the
// registry are out of step in a way no retry can repair.
//
// Fatal conditions:
//   - A plus-arg query before arguments were ever loaded
//   - Resolving an export name no loaded model registered
//
// The registry itself never terminates the process; it surfaces the
// error and the caller decides. The CLI maps fatal errors to exit
// code 2.
type FatalError struct {
	// Code identifies the error category.
	Code FatalErrorCode

	// Message is a human-readable description.
	Message string

	// Name is the offending name when one exists, e.g. the export that
	// failed to resolve.
	Name string
}

// FatalErrorCode categorizes fatal errors.
type FatalErrorCode string

const (
	// ErrCodeArgsNotLoaded indicates a plus-arg query before any
	// arguments were stored.
	ErrCodeArgsNotLoaded FatalErrorCode = "ARGS_NOT_LOADED"

	// ErrCodeUnknownExport indicates resolution of an export name that
	// was never registered.
	ErrCodeUnknownExport FatalErrorCode = "UNKNOWN_EXPORT"
)

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (name=%s)", e.Code, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsFatal returns true if the error is a registry fatal error.
// Uses errors.As to handle wrapped errors.
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}

// NewArgsNotLoadedError creates a FatalError for a plus-arg query made
// before any arguments were stored.
func NewArgsNotLoadedError() *FatalError {
	return &FatalError{
		Code:    ErrCodeArgsNotLoaded,
		Message: "plus-arg queried before any arguments were loaded",
	}
}

// NewUnknownExportError creates a FatalError for an export name that no
// loaded model registered.
func NewUnknownExportError(name string) *FatalError {
	return &FatalError{
		Code:    ErrCodeUnknownExport,
		Message: "export function not registered by any loaded model",
		Name:    name,
	}
}
