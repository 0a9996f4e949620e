// Package preflight provides readiness checks for the local state and the
// evaluation backend that callqa depends on.
//
// The CLI "callqa doctor" command runs RunAll and prints one line per check.
// Backend checks are skipped when no backend is supplied.
package preflight
