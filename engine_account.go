package accessguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Shannon1980/accessguard/internal/stores"
	"github.com/Shannon1980/accessguard/permission"
)

// requireManageUsers validates the actor's session and checks the
// manage_users operation. The denial is audited.
func (e *Engine) requireManageUsers(ctx context.Context, actorToken string) (*SessionInfo, error) {
	info, err := e.ValidateSession(ctx, actorToken)
	if err != nil {
		return nil, err
	}

	decision := e.catalog.Authorize(info.Role, permission.OpManageUsers, permission.CategoryAll)
	if !decision.Allowed {
		e.metrics.Inc(MetricAuthorizeDenied)
		e.emitAudit(ctx, AuditPermissionDenied, info.Username, false, ErrPermissionDenied, map[string]string{
			"operation": permission.OpManageUsers,
			"reason":    decision.Reason,
		})
		return nil, ErrPermissionDenied
	}
	return info, nil
}

// CreateAccount provisions a new account. The actor needs the
// manage_users operation; the role must exist in the catalog; the
// username must be free.
func (e *Engine) CreateAccount(ctx context.Context, actorToken, username, pass, role string) (*AccountView, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	actor, err := e.requireManageUsers(ctx, actorToken)
	if err != nil {
		return nil, err
	}

	if _, ok := e.catalog.Lookup(role); !ok {
		return nil, ErrAccountRoleInvalid
	}

	hash, err := e.hasher.Hash(pass)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	acct := &Account{
		ID:           uuid.NewString(),
		Username:     stores.NormalizeUsername(username),
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	switch err := e.credentials.Create(ctx, acct); {
	case errors.Is(err, stores.ErrAccountExists):
		return nil, ErrAccountExists
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metrics.Inc(MetricAccountCreated)
	e.emitAudit(ctx, AuditAccountCreated, acct.Username, true, nil, map[string]string{
		"actor": actor.Username,
		"role":  role,
	})

	return accountView(acct), nil
}

// UpdateAccountRole changes an account's role. Live sessions keep their
// login-time role snapshot unless RevokeSessionsOnRoleChange is set, in
// which case every session of the target user is revoked.
func (e *Engine) UpdateAccountRole(ctx context.Context, actorToken, username, role string) (*AccountView, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	actor, err := e.requireManageUsers(ctx, actorToken)
	if err != nil {
		return nil, err
	}

	if _, ok := e.catalog.Lookup(role); !ok {
		return nil, ErrAccountRoleInvalid
	}

	acct, err := e.credentials.Update(ctx, username, func(acct *Account) error {
		if !acct.Active {
			return ErrAccountDisabled
		}
		acct.Role = role
		return nil
	})
	if err != nil {
		return nil, mapAccountError(err)
	}

	if e.config.Security.RevokeSessionsOnRoleChange {
		if _, err := e.sessions.DeleteAllForUser(ctx, acct.Username); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	e.metrics.Inc(MetricAccountRoleChanged)
	e.emitAudit(ctx, AuditAccountRoleChanged, acct.Username, true, nil, map[string]string{
		"actor":    actor.Username,
		"new_role": role,
		"revoked":  fmt.Sprintf("%t", e.config.Security.RevokeSessionsOnRoleChange),
	})

	return accountView(acct), nil
}

// DeactivateAccount disables logins for an account and revokes all of its
// live sessions. The record is kept; deactivation is reversible only
// through the credential store directly.
func (e *Engine) DeactivateAccount(ctx context.Context, actorToken, username string) (*AccountView, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	actor, err := e.requireManageUsers(ctx, actorToken)
	if err != nil {
		return nil, err
	}

	acct, err := e.credentials.Deactivate(ctx, username)
	if err != nil {
		return nil, mapAccountError(err)
	}

	if _, err := e.sessions.DeleteAllForUser(ctx, acct.Username); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metrics.Inc(MetricAccountDeactivated)
	e.emitAudit(ctx, AuditAccountDeactivated, acct.Username, true, nil, map[string]string{
		"actor": actor.Username,
	})

	return accountView(acct), nil
}

// ChangePassword lets a session owner change their own password after
// re-proving the current one. Other sessions of the user stay live; use
// LogoutAllForUser to cut them.
func (e *Engine) ChangePassword(ctx context.Context, token, oldPass, newPass string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	info, err := e.ValidateSession(ctx, token)
	if err != nil {
		return err
	}

	acct, err := e.credentials.Get(ctx, info.Username)
	if err != nil {
		return mapAccountError(err)
	}

	ok, err := e.hasher.Verify(oldPass, acct.PasswordHash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !ok {
		e.emitAudit(ctx, AuditPasswordChanged, info.Username, false, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	newHash, err := e.hasher.Hash(newPass)
	if err != nil {
		return err
	}

	if _, err := e.credentials.Update(ctx, info.Username, func(acct *Account) error {
		acct.PasswordHash = newHash
		return nil
	}); err != nil {
		return mapAccountError(err)
	}

	e.metrics.Inc(MetricPasswordChanged)
	e.emitAudit(ctx, AuditPasswordChanged, info.Username, true, nil, nil)
	return nil
}

// LogoutAllForUser revokes every live session of the target user. The
// actor needs the manage_users operation.
func (e *Engine) LogoutAllForUser(ctx context.Context, actorToken, username string) (int, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}

	actor, err := e.requireManageUsers(ctx, actorToken)
	if err != nil {
		return 0, err
	}

	removed, err := e.sessions.DeleteAllForUser(ctx, stores.NormalizeUsername(username))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metrics.Inc(MetricLogoutAll)
	e.emitAudit(ctx, AuditLogoutAll, stores.NormalizeUsername(username), true, nil, map[string]string{
		"actor":   actor.Username,
		"revoked": fmt.Sprintf("%d", removed),
	})

	return removed, nil
}

// GetAccount returns the credential-free view of an account. The actor
// needs the manage_users operation.
func (e *Engine) GetAccount(ctx context.Context, actorToken, username string) (*AccountView, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	if _, err := e.requireManageUsers(ctx, actorToken); err != nil {
		return nil, err
	}

	acct, err := e.credentials.Get(ctx, username)
	if err != nil {
		return nil, mapAccountError(err)
	}
	return accountView(acct), nil
}

func mapAccountError(err error) error {
	switch {
	case errors.Is(err, stores.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, ErrAccountDisabled):
		return ErrAccountDisabled
	case err != nil:
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	default:
		return nil
	}
}
