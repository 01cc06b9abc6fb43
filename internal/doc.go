// Package internal contains helper utilities that are intentionally private
// to accessguard, including secure session token generation.
//
// # Sub-packages
//
//   - limiters — the Redis-backed login lockout tracker
//   - stores — the Redis-backed reference credential store
//
// # What this package must NOT do
//
//   - Export types that appear in the public accessguard API.
//   - Be imported by any package outside the accessguard module.
package internal
