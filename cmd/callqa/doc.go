// Package main hosts the callqa CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into calls against the
// call-quality backend: audio submission with live progress, status checks,
// transcription, evaluation, and session management. It centralizes config
// resolution, logger setup, and client construction so subcommands only deal
// with presentation.
//
// Behaviour lives in the internal packages; commands here stay declarative.
package main
