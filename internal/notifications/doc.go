// Package notifications pushes submission outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers publish unconditionally. Observer adapts a Service into an upload
// coordinator observer that fires once per terminal outcome.
package notifications
