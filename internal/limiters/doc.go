// Package limiters provides the Redis-backed login lockout tracker.
//
// # Keys
//
//   - "alf:<username>" — consecutive-failure counter with a rolling-window TTL.
//   - "alk:<username>" — lock marker whose TTL is the remaining lockout time.
//
// The lock marker is written with SET NX, so when concurrent failed attempts
// race past the threshold exactly one of them observes the lock transition
// and emits the lockout event. Counter increments use INCR, which is atomic
// per key, so parallel failures never under-count.
//
// # Architecture boundaries
//
// The limiter owns its Redis key namespace and counting policy. Consequences
// (audit entries, error mapping) are decided by the Engine.
//
// # What this package must NOT do
//
//   - Import accessguard or any sibling internal package.
//   - Consult the credential store — locked attempts must never reach it.
package limiters
