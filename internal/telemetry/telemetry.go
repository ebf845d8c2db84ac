// Package telemetry wires the process-wide structured logger (spec.md
// ambient stack §2.2), grounded on the structured-logging style the pack
// uses in xsdhy-clothing (logrus with component-scoped entries).
package telemetry

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger constructs the shared logger. level is a logrus level name
// ("debug", "info", "warn", "error"); an unrecognised value falls back to
// info.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.JSONFormatter{})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// Component returns a logger entry scoped to name, the field every fetch,
// TOFU, and MCP-shim log line carries.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}
