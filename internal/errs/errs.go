// Package errs defines the error taxonomy shared across the service and
// storage layers. Callers classify failures with errors.Is against the
// sentinel values; the HTTP layer maps them to status codes.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input. The operation was rejected and
	// no state changed; safe to correct and retry.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks a permission denial. Retrying with the same
	// actor will not succeed.
	ErrUnauthorized = errors.New("not authorized")

	// ErrNotFound marks an operation targeting a record that no longer
	// exists. The caller should refresh its view.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a backend or network failure. No local state
	// was mutated; the same operation may be retried.
	ErrPersistence = errors.New("storage failure")

	// ErrPartialFailure marks a bulk operation that completed for some
	// targets and failed for others.
	ErrPartialFailure = errors.New("partially completed")
)

// Validationf wraps ErrValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Unauthorizedf wraps ErrUnauthorized with a formatted reason.
func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted reason.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Persistencef wraps ErrPersistence around an underlying backend error.
func Persistencef(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
