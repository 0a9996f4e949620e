// Package logging assembles structured slog loggers and formatting helpers used
// across callqa.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so coordinator and client code
// can tag log lines with submission IDs, backend file IDs, and correlation IDs.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
//
// Log output goes to stderr and the log file; stdout is left to command output
// so JSON results stay machine readable.
package logging
