// Package history keeps a local SQLite log of audio submissions.
//
// Each coordinator transition is upserted by local submission id, so the log
// survives the process and backs `callqa history` and `callqa status`.
// Records whose polling timed out keep their backend file id and can be
// refreshed later with ApplyStatus.
package history
