// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Pass lifecycle errors.
var (
	// ErrPassInProgress indicates another engine pass currently holds the pass lock.
	ErrPassInProgress = errors.New("pass already in progress")

	// ErrRegistryEmpty indicates the entity registry loaded zero usable entities.
	ErrRegistryEmpty = errors.New("entity registry is empty")
)

// Lookup errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrClusterNotFound indicates a story cluster could not be found by key.
	ErrClusterNotFound = errors.New("cluster not found")

	// ErrSummaryNotFound indicates no summary exists for a cluster.
	ErrSummaryNotFound = errors.New("summary not found")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTier indicates a source tier outside the 1..3 range.
	ErrInvalidTier = errors.New("invalid source tier")
)

// Notification errors.
var (
	// ErrNotifierDisabled indicates no webhook destination is configured.
	ErrNotifierDisabled = errors.New("notifier disabled")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
