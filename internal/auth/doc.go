// Package auth resolves the bearer token attached to authenticated backend
// requests.
//
// Tokens come from an explicit value (config or CALLQA_TOKEN) or from the
// session file written by `callqa login`. Callers depend on the TokenProvider
// interface so tests can inject a StaticToken instead of touching disk.
package auth
