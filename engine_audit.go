package accessguard

import (
	"context"
	"errors"
)

// Audit error codes recorded on failed entries.
const (
	auditErrInvalidCredentials = "invalid_credentials"
	auditErrAccountLocked      = "account_locked"
	auditErrAccountDisabled    = "account_disabled"
	auditErrAccountNotFound    = "account_not_found"
	auditErrSessionNotFound    = "session_not_found"
	auditErrSessionExpired     = "session_expired"
	auditErrPermissionDenied   = "permission_denied"
	auditErrUnavailable        = "backend_unavailable"
	auditErrInternal           = "internal_error"
)

func auditErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrPermissionDenied):
		return auditErrPermissionDenied
	case errors.Is(err, ErrBackendUnavailable), errors.Is(err, ErrAuditUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) emitAudit(ctx context.Context, action, username string, success bool, err error, details map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	entry := newAuditEntry(action, username, success)
	entry.IP = clientIPFromContext(ctx)
	entry.RequestID = requestIDFromContext(ctx)
	entry.Error = auditErrorCode(err)
	entry.Details = details

	e.audit.Emit(ctx, entry)
}

func (e *Engine) auditLoginFailure(ctx context.Context, username string, cause error) {
	e.emitAudit(ctx, AuditLoginFailure, username, false, cause, nil)
}
