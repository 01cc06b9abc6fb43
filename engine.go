package accessguard

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Shannon1980/accessguard/internal"
	"github.com/Shannon1980/accessguard/internal/limiters"
	"github.com/Shannon1980/accessguard/internal/stores"
	"github.com/Shannon1980/accessguard/password"
	"github.com/Shannon1980/accessguard/permission"
	"github.com/Shannon1980/accessguard/redact"
	"github.com/Shannon1980/accessguard/session"
)

// Engine is the access-control core. Build one with [NewBuilder]; all
// methods are safe for concurrent use.
type Engine struct {
	config      Config
	registry    *permission.Registry
	catalog     *permission.Catalog
	filter      *redact.Filter
	sessions    *session.Store
	lockout     *limiters.LockoutLimiter
	credentials CredentialStore
	hasher      *password.Hasher
	audit       *auditDispatcher
	auditLog    AuditLister
	metrics     *Metrics
	closed      atomic.Bool
}

// dummyHash is verified against when the account does not exist, so the
// unknown-username path costs the same as a wrong password.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=2$AAAAAAAAAAAAAAAAAAAAAA$al9jM0ZkSU5XcVJNdVFXaGRmTXlaRlRkS1RjVnJsZjA"

// Close stops the audit dispatcher after draining queued entries. The
// engine rejects all calls afterwards.
func (e *Engine) Close() {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.audit.Close()
}

func (e *Engine) checkOpen() error {
	if e == nil || e.closed.Load() {
		return ErrEngineClosed
	}
	return nil
}

// Login verifies a username/password pair and issues a session token.
//
// Failures return [ErrInvalidCredentials] regardless of whether the
// account exists, is deactivated, or the password is wrong. Crossing the
// failure threshold, or attempting while locked, returns an
// [AccountLockedError]. Every attempt is audited.
//
// Login may return an error when input validation, dependency calls, or
// security checks fail.
func (e *Engine) Login(ctx context.Context, username, pass string) (*LoginResult, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	username = stores.NormalizeUsername(username)
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	locked, retryAfter, err := e.lockout.IsLocked(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if locked {
		e.metrics.Inc(MetricLoginLockedOut)
		e.auditLoginFailure(ctx, username, ErrAccountLocked)
		return nil, &AccountLockedError{Username: username, RetryAfter: retryAfter}
	}

	acct, err := e.credentials.Get(ctx, username)
	switch {
	case errors.Is(err, stores.ErrAccountNotFound):
		// Equalize timing with the known-account path.
		_, _ = e.hasher.Verify(pass, dummyHash)
		return nil, e.failLogin(ctx, username, ErrInvalidCredentials)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if !acct.Active {
		_, _ = e.hasher.Verify(pass, dummyHash)
		return nil, e.failLogin(ctx, username, ErrAccountDisabled)
	}

	ok, err := e.hasher.Verify(pass, acct.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !ok {
		return nil, e.failLogin(ctx, username, ErrInvalidCredentials)
	}

	if err := e.lockout.Reset(ctx, username); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if e.config.Password.UpgradeOnLogin {
		e.maybeUpgradeHash(ctx, username, pass, acct.PasswordHash)
	}

	token, err := internal.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	now := time.Now().Unix()
	sess := &session.Session{
		Token:        token.String(),
		Username:     acct.Username,
		Role:         acct.Role,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := e.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.metrics.Inc(MetricSessionCreated)
	e.emitAudit(ctx, AuditLoginSuccess, username, true, nil, map[string]string{
		"role": acct.Role,
	})

	return &LoginResult{
		Token:     sess.Token,
		Username:  acct.Username,
		Role:      acct.Role,
		AccountID: acct.ID,
	}, nil
}

// failLogin records a failed attempt, audits it, and installs a lockout
// when this attempt crosses the threshold.
func (e *Engine) failLogin(ctx context.Context, username string, cause error) error {
	triggered, lockErr := e.lockout.RecordFailure(ctx, username)
	if lockErr != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, lockErr)
	}

	e.metrics.Inc(MetricLoginFailure)
	e.auditLoginFailure(ctx, username, cause)

	if triggered {
		e.metrics.Inc(MetricLockoutTriggered)
		e.emitAudit(ctx, AuditLockoutTriggered, username, false, ErrAccountLocked, map[string]string{
			"cooldown": e.config.Lockout.Duration.String(),
		})
		return &AccountLockedError{Username: username, RetryAfter: e.config.Lockout.Duration}
	}

	return ErrInvalidCredentials
}

func (e *Engine) maybeUpgradeHash(ctx context.Context, username, pass, currentHash string) {
	needs, err := e.hasher.NeedsRehash(currentHash)
	if err != nil || !needs {
		return
	}
	newHash, err := e.hasher.Hash(pass)
	if err != nil {
		return
	}
	// Best effort. A conflicting concurrent update wins and the old hash
	// stays valid.
	_, _ = e.credentials.Update(ctx, username, func(acct *Account) error {
		if acct.PasswordHash != currentHash {
			return stores.ErrUpdateConflict
		}
		acct.PasswordHash = newHash
		return nil
	})
}

// ValidateSession checks a token and, when the session is live, refreshes
// its inactivity window and returns the session snapshot.
//
// A token that was never issued, was revoked, or aged out of the store
// entirely returns [ErrSessionNotFound]. A session whose inactivity window
// elapsed returns [ErrSessionExpired] and is audited as such. The two are
// equivalent for callers: re-authenticate.
func (e *Engine) ValidateSession(ctx context.Context, token string) (*SessionInfo, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	start := time.Now()
	sess, err := e.sessions.Touch(ctx, token)
	switch {
	case errors.Is(err, session.ErrNotFound):
		e.metrics.Inc(MetricValidateFailure)
		return nil, ErrSessionNotFound
	case errors.Is(err, session.ErrExpired):
		e.metrics.Inc(MetricValidateFailure)
		e.metrics.Inc(MetricSessionExpired)
		var username string
		if sess != nil {
			username = sess.Username
		}
		e.emitAudit(ctx, AuditSessionExpired, username, false, ErrSessionExpired, nil)
		return nil, ErrSessionExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metrics.Inc(MetricValidateSuccess)
	e.metrics.Observe(MetricValidateLatency, time.Since(start))

	return &SessionInfo{
		Token:        sess.Token,
		Username:     sess.Username,
		Role:         sess.Role,
		CreatedAt:    sess.CreatedAt,
		LastActivity: sess.LastActivity,
	}, nil
}

// Logout revokes a session. Revoking a missing, expired, or already
// revoked token succeeds: logout is idempotent and a token can never
// validate after it.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	// Peek only for audit attribution; failure to read is not failure
	// to revoke.
	username := ""
	if sess, err := e.sessions.Peek(ctx, token); err == nil {
		username = sess.Username
	}

	if err := e.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metrics.Inc(MetricSessionRevoked)
	e.emitAudit(ctx, AuditLogout, username, true, nil, nil)
	return nil
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the live registry for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// AuditDropped reports audit entries lost to fallback overflow.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// AuditErrors surfaces persistent audit append failures. Listening is
// optional; an ignored channel never blocks the dispatcher.
func (e *Engine) AuditErrors() <-chan error {
	return e.audit.Errors()
}

// FlushAuditFallback retries delivery of parked audit entries.
func (e *Engine) FlushAuditFallback() {
	e.audit.FlushFallback()
}
