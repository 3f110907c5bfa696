package migrate

import (
	"fmt"

	"llmfill/internal/schema"
)

// UnsupportedVersionError reports a document stamped with a version newer
// than this build understands. The document must not be mutated; attempting
// a downgrade would destroy a newer format.
type UnsupportedVersionError struct {
	// Version is the version found on the document.
	Version int
	// Supported is the newest version this build can migrate to.
	Supported int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("config schema version %d is newer than supported version %d", e.Version, e.Supported)
}

// Error reports a failed migration chain: a step errored, or the document it
// produced still had unrepairable defects.
type Error struct {
	// From is the version the chain started at.
	From int
	// Reached is the last version the chain reached successfully.
	Reached int
	// Raw is the original document, untouched by the failed chain.
	Raw schema.Raw
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("migrating config from version %d: failed after reaching version %d: %v", e.From, e.Reached, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
