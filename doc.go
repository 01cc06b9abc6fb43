// Package accessguard is an embeddable access-control core: credential
// verification with brute-force lockout, bounded-lifetime sessions,
// role-based permissions, field-level redaction, and an audit trail.
//
// # Overview
//
// The [Engine] is the single entry point. Build one with [NewBuilder],
// wiring a Redis client, a permission catalog, and an audit sink, then
// drive it through Login, ValidateSession, Logout, Authorize, Redact and
// ListAuditEntries. All engine methods are safe for concurrent use.
//
// # Security model
//
// Authentication is deny-by-default: a login succeeds only with a known,
// active account, a verified password, and no standing lockout. Failed
// attempts are counted per account; crossing the threshold locks the
// account for a fixed cooldown, and further attempts during the cooldown
// are rejected without touching stored credentials. Authorization is also
// deny-by-default: unknown roles, unknown operations, and ungranted
// categories all deny, and sensitive fields are redacted unless the role
// holds an explicit grant.
//
// # Audit
//
// Security-relevant events (logins, failures, lockouts, data access,
// denials, logouts, expiries) are appended to the configured [AuditSink]
// through an asynchronous dispatcher that never blocks the hot path and
// never drops entries silently.
package accessguard
