package logging

import (
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// File rotation limits for --log-file output.
const (
	maxLogSizeMB  = 5
	maxLogBackups = 3
	maxLogAgeDays = 28
)

// NewFileHandler returns a JSON handler writing to a size-rotated log file.
// Rotation keeps the add-on data directory from filling with logs across
// long-lived installs.
func NewFileHandler(path string, level slog.Level) slog.Handler {
	out := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
	}
	return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
}
