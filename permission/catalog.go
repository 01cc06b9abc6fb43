package permission

import (
	"errors"
	"sync"
)

// Sensitive-data categories used to tag record fields for redaction.
const (
	SensitiveSalary        = "salary"
	SensitivePersonalInfo  = "personal_info"
	SensitiveFinancialData = "financial_data"
)

// CategoryAll in a role's category set grants access to every data category.
const CategoryAll = "all"

// Built-in role names. The catalog accepts arbitrary custom role names;
// these three match the default deployment.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleViewer  = "viewer"
)

// Denial reasons carried in a [Decision].
const (
	DenyUnknownRole      = "unknown role"
	DenyOperation        = "operation not permitted for role"
	DenyCategory         = "data category not permitted for role"
	DenyUnknownOperation = "operation not registered"
)

// Decision is the result of an authorization check. A denied Decision is a
// normal return value, not a fault; callers suppress the requested action and
// record the denial.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// RoleGrant describes one role's entitlements as supplied to
// [Catalog.RegisterRole]: operation names, data-access categories (the
// literal "all" grants everything), report types, and granted sensitive-data
// categories.
type RoleGrant struct {
	Operations  []string
	Categories  []string
	ReportTypes []string
	Sensitive   []string
}

// Permission is the compiled, immutable entitlement record for one role.
type Permission struct {
	Operations  Mask64
	Categories  map[string]struct{}
	ReportTypes map[string]struct{}
	Sensitive   map[string]struct{}
}

// HasCategory reports whether the role may access the given data category.
func (p *Permission) HasCategory(category string) bool {
	if _, all := p.Categories[CategoryAll]; all {
		return true
	}
	_, ok := p.Categories[category]
	return ok
}

// HasSensitive reports whether the role is granted the given sensitive-data
// category.
func (p *Permission) HasSensitive(category string) bool {
	_, ok := p.Sensitive[category]
	return ok
}

// HasReportType reports whether the role may produce the given report type.
func (p *Permission) HasReportType(reportType string) bool {
	_, ok := p.ReportTypes[reportType]
	return ok
}

// Catalog is the static role → [Permission] table. Roles are registered at
// engine build time; after [Catalog.Freeze] the catalog is immutable and all
// lookups are read-only.
type Catalog struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]*Permission
	frozen bool
}

// NewCatalog creates an empty catalog bound to the given operation registry.
func NewCatalog(registry *Registry) *Catalog {
	return &Catalog{
		registry: registry,
		roles:    make(map[string]*Permission),
	}
}

// RegisterRole compiles grant into a [Permission] and stores it under
// roleName. Every operation in the grant must already be registered.
func (c *Catalog) RegisterRole(roleName string, grant RoleGrant) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return errors.New("catalog frozen")
	}
	if roleName == "" {
		return errors.New("role name empty")
	}
	if _, exists := c.roles[roleName]; exists {
		return errors.New("role already registered")
	}

	perm := &Permission{
		Categories:  make(map[string]struct{}, len(grant.Categories)),
		ReportTypes: make(map[string]struct{}, len(grant.ReportTypes)),
		Sensitive:   make(map[string]struct{}, len(grant.Sensitive)),
	}

	for _, op := range grant.Operations {
		bit, ok := c.registry.Bit(op)
		if !ok {
			return errors.New("operation not registered: " + op)
		}
		perm.Operations = perm.Operations.Set(bit)
	}
	for _, cat := range grant.Categories {
		perm.Categories[cat] = struct{}{}
	}
	for _, rt := range grant.ReportTypes {
		perm.ReportTypes[rt] = struct{}{}
	}
	for _, s := range grant.Sensitive {
		perm.Sensitive[s] = struct{}{}
	}

	c.roles[roleName] = perm
	return nil
}

// Freeze prevents further role registrations.
func (c *Catalog) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
}

// Lookup returns the [Permission] for roleName, or false for unknown roles.
func (c *Catalog) Lookup(roleName string) (*Permission, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	perm, ok := c.roles[roleName]
	return perm, ok
}

// Count returns the number of registered roles.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.roles)
}

// Authorize checks whether role may perform operation on the given data
// category. Both the operation check and the category check must pass.
// The result depends only on the arguments and the frozen catalog.
func (c *Catalog) Authorize(role, operation, category string) Decision {
	perm, ok := c.Lookup(role)
	if !ok {
		return deny(DenyUnknownRole)
	}

	bit, ok := c.registry.Bit(operation)
	if !ok {
		return deny(DenyUnknownOperation)
	}
	if !perm.Operations.Has(bit) {
		return deny(DenyOperation)
	}

	if !perm.HasCategory(category) {
		return deny(DenyCategory)
	}

	return allow()
}

// DefaultGrants returns the role grants of the default deployment:
// administrators hold every operation and sensitive category, managers can
// modify but not delete and see salary figures only, and viewers get
// read/export access with full redaction.
func DefaultGrants() map[string]RoleGrant {
	return map[string]RoleGrant{
		RoleAdmin: {
			Operations:  []string{OpCreate, OpRead, OpUpdate, OpDelete, OpExport, OpImport, OpManageUsers},
			Categories:  []string{CategoryAll},
			ReportTypes: []string{"all_reports", "financial_summary", "employee_data", "cost_analysis"},
			Sensitive:   []string{SensitiveSalary, SensitivePersonalInfo, SensitiveFinancialData},
		},
		RoleManager: {
			Operations:  []string{OpCreate, OpRead, OpUpdate, OpExport, OpImport},
			Categories:  []string{"employees", "subcontractors", "projects", "tasks"},
			ReportTypes: []string{"financial_summary", "employee_data", "cost_analysis"},
			Sensitive:   []string{SensitiveSalary},
		},
		RoleViewer: {
			Operations:  []string{OpRead, OpExport},
			Categories:  []string{"employees", "subcontractors", "projects"},
			ReportTypes: []string{"financial_summary", "cost_analysis"},
			Sensitive:   nil,
		},
	}
}

// DefaultCatalog builds and freezes the default registry and catalog.
func DefaultCatalog() (*Registry, *Catalog, error) {
	registry := NewRegistry()
	for _, op := range DefaultOperations() {
		if _, err := registry.Register(op); err != nil {
			return nil, nil, err
		}
	}
	registry.Freeze()

	catalog := NewCatalog(registry)
	for role, grant := range DefaultGrants() {
		if err := catalog.RegisterRole(role, grant); err != nil {
			return nil, nil, err
		}
	}
	catalog.Freeze()

	return registry, catalog, nil
}
