package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrInvalidConfig indicates invalid or incomplete configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMalformedDocument indicates a document that cannot be decoded
	// into its record type
	ErrMalformedDocument = errors.New("malformed document")

	// ErrValidationFailed indicates a health check found unresolved errors.
	// This is a normal outcome, not a processing failure; it carries the
	// non-zero exit code decision to the caller.
	ErrValidationFailed = errors.New("validation failed")
)
