package logging

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// MultiHandler fans each record out to several handlers, typically the
// terminal handler plus a rotating log file. Each sink applies its own level
// filter, so a debug-level file can coexist with a warn-level terminal.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler wraps the given handlers into one.
func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	return &MultiHandler{sinks: sinks}
}

// Enabled is true when any sink would accept the level.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every sink that accepts its level. A failing
// sink does not stop delivery to the others; errors are combined.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	for _, s := range h.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		err = errors.CombineErrors(err, s.Handle(ctx, r.Clone()))
	}
	return err
}

// WithAttrs applies the attributes to every sink.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = s.WithAttrs(attrs)
	}
	return NewMultiHandler(sinks...)
}

// WithGroup applies the group to every sink.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = s.WithGroup(name)
	}
	return NewMultiHandler(sinks...)
}
