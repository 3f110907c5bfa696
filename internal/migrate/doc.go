// Package migrate upgrades persisted configuration documents step-by-step
// to the current schema version.
//
// Each step is a pure function from the shape of one schema version to the
// next. Steps know only their source and destination shapes, never the full
// version history, so they compose across arbitrary version gaps. A step
// must be total: any document that validated at the source version comes out
// the other side, and unknown extra keys pass through untouched.
//
// The chain never mutates its input. On failure the caller still holds the
// original blob and the error reports how far the chain got.
package migrate
