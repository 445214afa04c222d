// Package session holds one live AI conversation per Telegram user.
//
// The [Store] is the only component that mutates the user→conversation
// mapping. State is volatile: it lives for the process lifetime and is
// evicted only by an explicit reset. There is no automatic expiry or size
// bound — growth is observable via [Store.Len].
//
// # Concurrency
//
// Store is safe for concurrent use. Construction is serialized per user id
// (per-key sync.Once), so rapid-fire first messages from one user converge
// on a single backend session instead of race-constructing two. Distinct
// users never block on each other's construction.
package session
