// Package config owns the lifecycle of the persisted configuration: loading,
// migrating, validating, saving, and the typed accessors the rest of the
// application reads settings through.
//
// The central promise is that [Manager.Load] cannot fail. Whatever is on
// disk (nothing, a current document, an ancient one, or corrupt bytes), the
// caller always receives a usable current-version configuration. When the
// stored document cannot be brought forward, the manager serves the built-in
// defaults from memory and leaves the stored bytes exactly as they were, so
// a later version of the application (or the user, by hand) can still
// recover them.
package config
