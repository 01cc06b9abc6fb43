package internaldefs

import (
	accessguard "github.com/Shannon1980/accessguard"
)

// CounterDef binds an engine counter to its stable exported name.
type CounterDef struct {
	ID   accessguard.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its stable exported name.
type HistogramDef struct {
	ID   accessguard.MetricID
	Name string
	Help string
}

// CounterDefs enumerates every exported counter in a fixed order.
var CounterDefs = []CounterDef{
	{ID: accessguard.MetricLoginSuccess, Name: "accessguard_login_success_total", Help: "Successful login attempts."},
	{ID: accessguard.MetricLoginFailure, Name: "accessguard_login_failure_total", Help: "Failed login attempts."},
	{ID: accessguard.MetricLockoutTriggered, Name: "accessguard_lockout_triggered_total", Help: "Brute-force lockouts installed."},
	{ID: accessguard.MetricLoginLockedOut, Name: "accessguard_login_locked_out_total", Help: "Logins rejected during a lockout cooldown."},
	{ID: accessguard.MetricSessionCreated, Name: "accessguard_session_created_total", Help: "Sessions issued."},
	{ID: accessguard.MetricSessionExpired, Name: "accessguard_session_expired_total", Help: "Sessions found expired at validation."},
	{ID: accessguard.MetricSessionRevoked, Name: "accessguard_session_revoked_total", Help: "Sessions revoked by logout."},
	{ID: accessguard.MetricValidateSuccess, Name: "accessguard_validate_success_total", Help: "Successful session validations."},
	{ID: accessguard.MetricValidateFailure, Name: "accessguard_validate_failure_total", Help: "Validations of missing or revoked tokens."},
	{ID: accessguard.MetricAuthorizeAllowed, Name: "accessguard_authorize_allowed_total", Help: "Authorization checks that allowed."},
	{ID: accessguard.MetricAuthorizeDenied, Name: "accessguard_authorize_denied_total", Help: "Authorization checks that denied."},
	{ID: accessguard.MetricFieldsRedacted, Name: "accessguard_fields_redacted_total", Help: "Record fields masked by redaction."},
	{ID: accessguard.MetricAccountCreated, Name: "accessguard_account_created_total", Help: "Accounts created."},
	{ID: accessguard.MetricAccountRoleChanged, Name: "accessguard_account_role_changed_total", Help: "Account role updates."},
	{ID: accessguard.MetricAccountDeactivated, Name: "accessguard_account_deactivated_total", Help: "Account deactivations."},
	{ID: accessguard.MetricPasswordChanged, Name: "accessguard_password_changed_total", Help: "Successful password changes."},
	{ID: accessguard.MetricLogoutAll, Name: "accessguard_logout_all_total", Help: "Bulk session revocations."},
	{ID: accessguard.MetricAuditRetried, Name: "accessguard_audit_retried_total", Help: "Audit appends that needed a retry."},
	{ID: accessguard.MetricAuditFallback, Name: "accessguard_audit_fallback_total", Help: "Audit entries parked on the fallback queue."},
	{ID: accessguard.MetricAuditDropped, Name: "accessguard_audit_overflow_total", Help: "Audit entries lost to fallback overflow."},
}

// HistogramDefs enumerates every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: accessguard.MetricValidateLatency, Name: "accessguard_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, Prometheus style.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters legal in
// OTel instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form both
// exporters emit.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
