package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to out at the named level ("debug", "info",
// "warn", "error"; anything else is info) using the named format.
func New(out io.Writer, level, format string) *logrus.Logger {
	log := logrus.New()
	log.Out = out
	log.Formatter = NewFormatter(format)
	log.Level = ParseLevel(level)
	return log
}

// NewFormatter returns a JSON formatter for "json" and a text formatter
// otherwise.
func NewFormatter(format string) logrus.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return &logrus.JSONFormatter{}
	default:
		return &logrus.TextFormatter{FullTimestamp: true}
	}
}

func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "error":
		return logrus.ErrorLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Discard returns a logger that drops everything. Used when no logger is
// configured.
func Discard() *logrus.Logger {
	return New(io.Discard, "error", "")
}
