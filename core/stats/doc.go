// Package stats tracks per-user usage sessions in a rolling time window.
//
// A visit either extends the client's active session (its last_visit falls inside the
// window) or opens a new one. The read-then-write runs under a per-client lock held by
// the store, so concurrent deliveries from the same user never open two sessions.
package stats
