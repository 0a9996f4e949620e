// Package services defines shared utilities consumed by the upload
// coordinator and the backend integrations.
//
// Key responsibilities:
//   - Context helpers that stamp submission IDs, backend file IDs, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures as
//     validation, transport, authentication, remote failure, or timeout.
//
// Subpackages hold the HTTP clients for external systems (qaapi for the
// evaluation backend).
package services
