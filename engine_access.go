package accessguard

import (
	"context"
	"fmt"

	"github.com/Shannon1980/accessguard/permission"
	"github.com/Shannon1980/accessguard/redact"
)

// Authorize validates the session token, then checks whether the session's
// role may perform operation on the data category. The decision carries a
// denial reason; a denied decision is a normal return, not an error.
// Allowed checks are audited as data access, denied checks as permission
// denials.
func (e *Engine) Authorize(ctx context.Context, token, operation, category string) (permission.Decision, error) {
	if err := e.checkOpen(); err != nil {
		return permission.Decision{}, err
	}

	info, err := e.ValidateSession(ctx, token)
	if err != nil {
		return permission.Decision{}, err
	}

	decision := e.catalog.Authorize(info.Role, operation, category)
	details := map[string]string{
		"role":      info.Role,
		"operation": operation,
		"category":  category,
	}

	if decision.Allowed {
		e.metrics.Inc(MetricAuthorizeAllowed)
		e.emitAudit(ctx, AuditDataAccess, info.Username, true, nil, details)
	} else {
		e.metrics.Inc(MetricAuthorizeDenied)
		details["reason"] = decision.Reason
		e.emitAudit(ctx, AuditPermissionDenied, info.Username, false, ErrPermissionDenied, details)
	}

	return decision, nil
}

// Redact validates the session token and returns a copy of record with
// every sensitive field the session's role is not granted replaced by the
// redaction placeholder. The source record is never modified; unknown
// roles see every tagged field masked.
func (e *Engine) Redact(ctx context.Context, token string, record redact.Record) (redact.Record, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	info, err := e.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	out := e.filter.Apply(record, info.Role)

	var masked uint64
	for field, value := range out {
		if value == redact.Placeholder && record[field] != redact.Placeholder {
			masked++
		}
	}
	e.metrics.Add(MetricFieldsRedacted, masked)

	return out, nil
}

// RedactAll applies [Engine.Redact] semantics to a slice of records with a
// single session validation.
func (e *Engine) RedactAll(ctx context.Context, token string, records []redact.Record) ([]redact.Record, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	info, err := e.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	return e.filter.ApplyAll(records, info.Role), nil
}

// ListAuditEntries reads the audit trail. The caller's session must hold
// the manage_users operation; everyone else is denied and the denial is
// itself audited. Requires a sink that implements [AuditLister].
func (e *Engine) ListAuditEntries(ctx context.Context, token string, filter AuditFilter) ([]AuditEntry, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	info, err := e.ValidateSession(ctx, token)
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

	if e.auditLog == nil {
		return nil, fmt.Errorf("%w: sink does not support reads", ErrAuditUnavailable)
	}

	return e.auditLog.List(ctx, filter)
}
