package accessguard

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned for a bad username/password pair.
	// Unknown account, wrong password, and deactivated account all map
	// here so callers cannot probe which usernames exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a brute-force lockout is in
	// effect. Use [AsAccountLocked] to recover the retry-after hint.
	ErrAccountLocked = errors.New("account locked")
	// ErrSessionNotFound is returned for tokens with no live session:
	// never issued, revoked, or physically expired out of the store.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when the session's inactivity window
	// has elapsed.
	ErrSessionExpired = errors.New("session expired")
	// ErrPermissionDenied is returned when an authorization check denies.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrAccountExists is returned when creating an account whose
	// username is already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is returned by account administration calls for
	// unknown usernames.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountRoleInvalid is returned for roles absent from the
	// permission catalog.
	ErrAccountRoleInvalid = errors.New("invalid account role")
	// ErrAccountDisabled is returned by account administration calls when
	// the target account has been deactivated.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAuditUnavailable is returned when audit entries cannot be read
	// back from the log.
	ErrAuditUnavailable = errors.New("audit log unavailable")
	// ErrBackendUnavailable wraps infrastructure failures (Redis down,
	// script errors). It is never returned for a policy decision.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrEngineClosed is returned by all engine methods after Close.
	ErrEngineClosed = errors.New("engine closed")
)

// AccountLockedError carries the remaining cooldown on a locked account.
// It unwraps to [ErrAccountLocked].
type AccountLockedError struct {
	Username   string
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked: retry after %s", e.RetryAfter.Round(time.Second))
}

// Unwrap lets errors.Is match [ErrAccountLocked].
func (e *AccountLockedError) Unwrap() error {
	return ErrAccountLocked
}

// AsAccountLocked extracts the lockout detail from err, if present.
func AsAccountLocked(err error) (*AccountLockedError, bool) {
	var locked *AccountLockedError
	if errors.As(err, &locked) {
		return locked, true
	}
	return nil, false
}
