// Package upload coordinates the client side of an audio submission.
//
// A Coordinator takes one recording from selection through upload to the
// backend and then polls the backend until the evaluation is ready, the
// backend reports a failure, or the attempt budget runs out. Duplicate
// uploads short-circuit to the earlier evaluation without polling.
//
// Polling is a wait-then-request loop, so status requests never overlap.
// Remove cancels any in-flight work and waits for the loop to exit; responses
// that arrive for a removed submission are dropped.
package upload
