package accessguard

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Shannon1980/accessguard/permission"
	"github.com/Shannon1980/accessguard/redact"
)

func payrollSchema() redact.Schema {
	return redact.Schema{
		"salary":       permission.SensitiveSalary,
		"ssn":          permission.SensitivePersonalInfo,
		"home_address": permission.SensitivePersonalInfo,
		"budget":       permission.SensitiveFinancialData,
	}
}

func newAccessEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEngine(t, nil)
	env.engine.filter = redact.NewFilter(payrollSchema(), env.engine.catalog)
	env.seedAccount(t, "root", "admin-pass1", permission.RoleAdmin)
	env.seedAccount(t, "mona", "manager-pw1", permission.RoleManager)
	env.seedAccount(t, "vicky", "viewer-pw19", permission.RoleViewer)
	return env
}

func TestAuthorizeManagerCannotDelete(t *testing.T) {
	env := newAccessEnv(t)
	ctx := context.Background()
	res := env.login(t, "mona", "manager-pw1")

	decision, err := env.engine.Authorize(ctx, res.Token, permission.OpDelete, "employees")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if decision.Allowed {
		t.Fatal("manager delete was allowed")
	}
	if decision.Reason != permission.DenyOperation {
		t.Fatalf("unexpected reason %q", decision.Reason)
	}

	entry := env.waitForAudit(t, AuditPermissionDenied, "mona")
	if entry.Details["operation"] != permission.OpDelete {
		t.Fatalf("unexpected audit entry %+v", entry)
	}

	// The same session still reads fine afterwards.
	decision, err = env.engine.Authorize(ctx, res.Token, permission.OpRead, "employees")
	if err != nil || !decision.Allowed {
		t.Fatalf("manager read denied: %+v %v", decision, err)
	}
	env.waitForAudit(t, AuditDataAccess, "mona")
}

func TestAuthorizeUnknownOperationAndCategory(t *testing.T) {
	env := newAccessEnv(t)
	ctx := context.Background()
	res := env.login(t, "vicky", "viewer-pw19")

	decision, err := env.engine.Authorize(ctx, res.Token, "teleport", "employees")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if decision.Allowed || decision.Reason != permission.DenyUnknownOperation {
		t.Fatalf("unknown operation not denied: %+v", decision)
	}

	decision, err = env.engine.Authorize(ctx, res.Token, permission.OpRead, "payroll_vault")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if decision.Allowed || decision.Reason != permission.DenyCategory {
		t.Fatalf("ungranted category not denied: %+v", decision)
	}
}

func TestAuthorizeRequiresLiveSession(t *testing.T) {
	env := newAccessEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Authorize(ctx, "bogus-token", permission.OpRead, "employees"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	res := env.login(t, "vicky", "viewer-pw19")
	if err := env.engine.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := env.engine.Authorize(ctx, res.Token, permission.OpRead, "employees"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}
}

func TestRedactPerRole(t *testing.T) {
	env := newAccessEnv(t)
	ctx := context.Background()

	record := redact.Record{
		"name":         "Dana Smith",
		"salary":       125000,
		"ssn":          "078-05-1120",
		"home_address": "12 Elm St",
		"budget":       420000.50,
	}

	adminTok := env.login(t, "root", "admin-pass1").Token
	managerTok := env.login(t, "mona", "manager-pw1").Token
	viewerTok := env.login(t, "vicky", "viewer-pw19").Token

	adminView, err := env.engine.Redact(ctx, adminTok, record)
	if err != nil {
		t.Fatalf("Redact admin: %v", err)
	}
	if !reflect.DeepEqual(adminView, record) {
		t.Fatalf("admin view altered: %+v", adminView)
	}

	managerView, err := env.engine.Redact(ctx, managerTok, record)
	if err != nil {
		t.Fatalf("Redact manager: %v", err)
	}
	if managerView["salary"] != 125000 {
		t.Fatalf("manager lost salary grant: %+v", managerView)
	}
	for _, field := range []string{"ssn", "home_address", "budget"} {
		if managerView[field] != redact.Placeholder {
			t.Fatalf("manager sees %s: %v", field, managerView[field])
		}
	}

	viewerView, err := env.engine.Redact(ctx, viewerTok, record)
	if err != nil {
		t.Fatalf("Redact viewer: %v", err)
	}
	for _, field := range []string{"salary", "ssn", "home_address", "budget"} {
		if viewerView[field] != redact.Placeholder {
			t.Fatalf("viewer sees %s: %v", field, viewerView[field])
		}
	}
	if viewerView["name"] != "Dana Smith" {
		t.Fatalf("untagged field masked: %+v", viewerView)
	}

	// The source record is untouched.
	if record["salary"] != 125000 || record["ssn"] != "078-05-1120" {
		t.Fatalf("source record mutated: %+v", record)
	}

	if got := env.engine.metrics.Value(MetricFieldsRedacted); got != 3+4 {
		t.Fatalf("fields redacted = %d, want 7", got)
	}
}

func TestRedactAll(t *testing.T) {
	env := newAccessEnv(t)
	ctx := context.Background()
	viewerTok := env.login(t, "vicky", "viewer-pw19").Token

	records := []redact.Record{
		{"name": "a", "salary": 1},
		{"name": "b", "salary": 2},
	}
	out, err := env.engine.RedactAll(ctx, viewerTok, records)
	if err != nil {
		t.Fatalf("RedactAll: %v", err)
	}
	for i, rec := range out {
		if rec["salary"] != redact.Placeholder {
			t.Fatalf("record %d salary not masked: %+v", i, rec)
		}
	}
}

func TestListAuditEntriesRequiresManageUsers(t *testing.T) {
	env := newAccessEnv(t)
	ctx := context.Background()

	adminTok := env.login(t, "root", "admin-pass1").Token
	viewerTok := env.login(t, "vicky", "viewer-pw19").Token

	if _, err := env.engine.ListAuditEntries(ctx, viewerTok, AuditFilter{}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("viewer read the audit trail: %v", err)
	}

	// Wait until the viewer's denied attempt is itself on the trail.
	env.waitForAudit(t, AuditPermissionDenied, "vicky")

	entries, err := env.engine.ListAuditEntries(ctx, adminTok, AuditFilter{Action: AuditPermissionDenied})
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("denied attempt missing from trail")
	}
	if entries[0].Username != "vicky" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
}

func TestListAuditEntriesFilters(t *testing.T) {
	env := newAccessEnv(t)
	ctx := context.Background()

	adminTok := env.login(t, "root", "admin-pass1").Token
	env.login(t, "mona", "manager-pw1")
	env.waitForAudit(t, AuditLoginSuccess, "mona")

	entries, err := env.engine.ListAuditEntries(ctx, adminTok, AuditFilter{
		Action:   AuditLoginSuccess,
		Username: "mona",
	})
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Username != "mona" {
		t.Fatalf("filter mismatch: %+v", entries)
	}

	limited, err := env.engine.ListAuditEntries(ctx, adminTok, AuditFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListAuditEntries limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit ignored: %d entries", len(limited))
	}
}
