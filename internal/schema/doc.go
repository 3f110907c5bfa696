// Package schema defines the persisted configuration document: the untyped
// raw form as read from storage, the typed canonical form used by the rest
// of the application, the central default table, and shape validation for
// every supported schema version.
//
// The raw form is hostile input. It may be empty, carry keys from any prior
// schema version, or hold values of the wrong type. Nothing outside the
// migration boundary should work with it directly.
package schema
