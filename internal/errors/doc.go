// Package errors provides error handling conventions for the llmfill CLI.
//
// It defines sentinel errors for common failure conditions, an ExitError
// type for CLI exit code handling, and exit code constants following
// standard Unix conventions.
//
// Sentinel errors allow callers to check for specific conditions with
// [errors.Is]:
//
//	if errors.Is(err, llmerrors.ErrCorruptConfig) {
//	    // fall back to defaults
//	}
package errors
