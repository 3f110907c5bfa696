// Package logging builds the slog loggers used across the application.
// Every sink shares the same redaction rules, so API keys never reach a
// terminal, a file, or a test log.
package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"testing"
)

// Format selects the wire shape of emitted log records.
type Format string

const (
	// FormatText is the human-oriented single-line form.
	FormatText Format = "text"
	// FormatJSON emits one JSON object per record, for log shippers.
	FormatJSON Format = "json"
)

// Config describes the logger to build.
type Config struct {
	// Level is the minimum record level; lower records are dropped.
	Level slog.Level
	// Format picks text or JSON output. Anything unrecognized means text.
	Format Format
	// Output receives the records. Nil means os.Stderr.
	Output io.Writer
}

// New builds a logger from cfg. Text output goes through Handler, so it is
// colorized when the writer is a terminal and secret-bearing attributes are
// masked.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	if cfg.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(NewHandler(out, opts))
}

// NewDiscard returns a logger that drops everything. Callers that accept an
// optional logger use it instead of nil checks.
func NewDiscard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// LevelFromVerbosity maps the -v flag count to a log level: 0 warn, 1 info,
// 2 and up debug.
func LevelFromVerbosity(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelWarn
	case v == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// ForTest returns a debug-level logger writing through t.Log, so migration
// and repair chatter shows up only for failing tests or under go test -v.
func ForTest(t *testing.T) *slog.Logger {
	t.Helper()
	return New(Config{
		Level:  slog.LevelDebug,
		Format: FormatText,
		Output: testWriter{t},
	})
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	// t.Log appends its own newline.
	w.t.Log(string(bytes.TrimSuffix(p, []byte("\n"))))
	return len(p), nil
}
