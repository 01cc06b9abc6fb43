package accessguard

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/Shannon1980/accessguard/internal/limiters"
	"github.com/Shannon1980/accessguard/internal/stores"
	"github.com/Shannon1980/accessguard/password"
	"github.com/Shannon1980/accessguard/permission"
	"github.com/Shannon1980/accessguard/redact"
	"github.com/Shannon1980/accessguard/session"
)

// Builder assembles an [Engine]. Call [NewBuilder], chain the With methods,
// then Build exactly once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	registry *permission.Registry
	catalog  *permission.Catalog
	roles    map[string]permission.RoleGrant
	schema   redact.Schema

	credentials CredentialStore
	auditSink   AuditSink

	built bool
}

// NewBuilder creates a [Builder] seeded with [DefaultConfig].
func NewBuilder() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. The config is cloned; later
// mutation of cfg does not affect the builder.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing sessions, lockouts, and the
// default credential store. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCatalog supplies a pre-built, frozen permission catalog. Overrides
// WithRoles.
func (b *Builder) WithCatalog(registry *permission.Registry, catalog *permission.Catalog) *Builder {
	b.registry = registry
	b.catalog = catalog
	return b
}

// WithRoles supplies custom role grants. Build registers them over the
// default operation set. When neither WithRoles nor WithCatalog is used,
// the default admin/manager/viewer catalog applies.
func (b *Builder) WithRoles(roles map[string]permission.RoleGrant) *Builder {
	b.roles = roles
	return b
}

// WithRedactionSchema tags record fields with sensitive-data categories
// for [Engine.Redact]. Untagged fields always pass through.
func (b *Builder) WithRedactionSchema(schema redact.Schema) *Builder {
	b.schema = schema
	return b
}

// WithCredentialStore replaces the default Redis-backed account store.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithAuditSink sets the audit destination. Defaults to the Redis-backed
// log when auditing is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process metrics registry.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the stores, and starts the
// audit dispatcher.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	registry, catalog := b.registry, b.catalog
	if catalog == nil {
		var err error
		if b.roles != nil {
			registry, catalog, err = buildCatalog(b.roles)
		} else {
			registry, catalog, err = permission.DefaultCatalog()
		}
		if err != nil {
			return nil, err
		}
	}
	if registry == nil {
		return nil, errors.New("catalog requires its registry")
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
		Pepper:      b.config.Password.Pepper,
	})
	if err != nil {
		return nil, err
	}

	credentials := b.credentials
	if credentials == nil {
		credentials = stores.NewCredentialStore(b.redis)
	}

	sink := b.auditSink
	if sink == nil && b.config.Audit.Enabled {
		sink = NewRedisLog(b.redis, 0)
	}
	lister, _ := sink.(AuditLister)

	metrics := NewMetrics(b.config.Metrics)

	e := &Engine{
		config:      b.config,
		registry:    registry,
		catalog:     catalog,
		filter:      redact.NewFilter(b.schema, catalog),
		sessions:    session.NewStore(b.redis, b.config.Session.Timeout),
		lockout: limiters.NewLockoutLimiter(b.redis, limiters.LockoutConfig{
			MaxAttempts: b.config.Lockout.MaxAttempts,
			Duration:    b.config.Lockout.Duration,
		}),
		credentials: credentials,
		hasher:      hasher,
		metrics:     metrics,
		audit:       newAuditDispatcher(b.config.Audit, sink, metrics),
		auditLog:    lister,
	}

	b.built = true
	return e, nil
}

func buildCatalog(roles map[string]permission.RoleGrant) (*permission.Registry, *permission.Catalog, error) {
	registry := permission.NewRegistry()
	for _, op := range permission.DefaultOperations() {
		if _, err := registry.Register(op); err != nil {
			return nil, nil, err
		}
	}
	registry.Freeze()

	catalog := permission.NewCatalog(registry)
	for role, grant := range roles {
		if err := catalog.RegisterRole(role, grant); err != nil {
			return nil, nil, err
		}
	}
	catalog.Freeze()

	return registry, catalog, nil
}
