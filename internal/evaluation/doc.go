// Package evaluation holds the canonical, read-only evaluation model: the
// per-criterion Item, the overall Result with its 70% pass threshold, and the
// helpers that fold the backend's free-form status labels and technical
// criterion keys into stable values for display.
//
// Scoring itself happens server-side; Percentage exists only to fill in a
// score the backend omitted.
package evaluation
