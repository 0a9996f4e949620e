// Package transcript models the diarized transcription returned by the
// backend and derives read-only views from it: speaker turns, per-speaker word
// counts, and m:ss offsets for display.
package transcript
