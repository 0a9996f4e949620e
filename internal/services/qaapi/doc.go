// Package qaapi is the HTTP client for the call-quality backend.
//
// It covers audio submission and status polling, transcription, automatic
// evaluation, stored call items, carteiras, login, the per-agent report
// endpoints (ranking, summary, calls, worst criterion, KPIs, trend), and the
// AI suggestion endpoints. Authenticated endpoints draw a bearer token from an
// auth.TokenProvider and fail with auth.ErrTokenMissing before touching the
// network when none is available. Non-2xx responses surface as *HTTPError
// wrapped with a services marker; nothing is retried.
package qaapi
