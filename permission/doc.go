// Package permission provides the operation registry, the 64-bit operation
// mask, and the role catalog consulted on every authorization check.
//
// # Model
//
// Operations (create, read, update, delete, export, import, manage_users) are
// assigned stable bit positions by [Registry.Register]. Each role in the
// [Catalog] holds an operation [Mask64] plus three tag sets: data-access
// categories (the literal "all" grants every category), report types, and
// granted sensitive-data categories. Authorization is a pure lookup —
// [Catalog.Authorize] consults no session state, so results are deterministic
// for a given (role, operation, category) triple.
//
// # Fail-closed policy
//
// Unknown roles, unregistered operations, and categories outside the role's
// set all produce a denied [Decision]. There is no permissive fallback.
//
// # Architecture boundaries
//
// This package is a pure in-memory lookup structure with no I/O. The catalog
// is frozen at engine build time; per-request paths only read it.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import accessguard or session (no upward imports).
//   - Mutate role definitions after [Catalog.Freeze].
package permission
