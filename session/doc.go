// Package session provides Redis-backed session persistence and a compact
// binary session codec for authentication hot paths.
//
// # Lifecycle
//
// A session is Active from [Store.Save] until either its sliding window
// elapses (Expired, detected lazily by [Store.Touch]) or it is removed by
// [Store.Delete] (Revoked). Neither terminal state can transition back to
// Active; re-authentication creates a new token.
//
// # Binary encoding
//
// Sessions are stored as a versioned binary blob. The last-activity
// timestamp occupies the final 8 bytes at a fixed offset, which lets the
// Touch Lua script check the sliding window and rewrite the timestamp in
// place without a round trip — one atomic script per validation.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model.
// It does not verify credentials, evaluate permissions, or write audit
// entries — those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import accessguard or permission (no upward imports).
//   - Perform application-level authorization decisions.
//   - Store credential material in [Session] fields.
package session
