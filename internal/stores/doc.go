// Package stores provides the Redis-backed credential store for account
// records.
//
// # Design
//
// Each account is persisted as a versioned JSON blob keyed by normalized
// username. Creation uses SET NX so duplicate usernames lose the race
// cleanly. Mutations (role change, password change, deactivation) use
// WATCH/MULTI optimistic transactions with bounded retry on contention.
// Accounts are deactivated, never deleted: the record and its audit trail
// outlive the account's usefulness.
//
// # Architecture boundaries
//
// This package owns account persistence and concurrency control. It does
// NOT hash passwords, evaluate permissions, enforce lockouts, or make
// authentication decisions — those responsibilities belong to the Engine
// and its sibling packages.
//
// # What this package must NOT do
//
//   - Import accessguard or any sibling internal package.
//   - Store or log plaintext passwords. PasswordHash is always a PHC string.
//   - Compare secrets; verification happens in the password package.
package stores
