// Package logging centralizes the charmbracelet/log setup used across the
// pipeline, mirroring the teacher's single shared output stream but as a
// structured logger injected through the Runtime handle rather than a
// package-level global (spec.md 9: "confine them to a Runtime handle").
package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

// New builds a logger at the given level ("debug", "info", "warn",
// "error"), writing to stderr with a timestamp and caller-friendly prefix.
func New(level string) *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
	l.SetLevel(parseLevel(level))
	return l
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
