package accessguard

import (
	"errors"
	"time"
)

// Config defines engine behavior. Configure it before Build and treat it
// as immutable afterwards.
type Config struct {
	Session  SessionConfig
	Lockout  LockoutConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime.
type SessionConfig struct {
	// Timeout is the sliding inactivity window. Each successful
	// validation restarts it; a session idle for Timeout or longer is
	// expired.
	Timeout time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls the brute-force lockout.
type LockoutConfig struct {
	// MaxAttempts is the number of consecutive failures that trigger a
	// lockout. The counter resets on successful login and decays after
	// Duration with no further failures.
	MaxAttempts int
	// Duration is both the failure-counter window and the cooldown a
	// locked account must wait before logins are accepted again.
	Duration time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig controls argon2id hashing.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// Pepper is an optional server-side secret mixed into every hash.
	Pepper []byte
	// UpgradeOnLogin rehashes a verified password whose stored
	// parameters are weaker than the configured ones.
	UpgradeOnLogin bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled bool
	// BufferSize is the dispatch queue length between engine and sink.
	BufferSize int
	// AppendTimeout bounds a single sink append.
	AppendTimeout time.Duration
	// MaxRetries is how many times a failed append is retried before the
	// entry moves to the fallback queue.
	MaxRetries int
	// FallbackCapacity bounds the retry queue for entries whose appends
	// kept failing. When full, the oldest entry is dropped and counted.
	FallbackCapacity int
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process metrics registry.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds policy toggles.
type SecurityConfig struct {
	// RevokeSessionsOnRoleChange revokes all of a user's live sessions
	// when an administrator changes their role. When false, live
	// sessions keep the role snapshot taken at login until they expire.
	RevokeSessionsOnRoleChange bool
}

// DefaultConfig returns production defaults: one-hour sessions, lockout
// after 3 failures for 5 minutes, and OWASP-aligned argon2id parameters.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			Timeout: time.Hour,
		},
		Lockout: LockoutConfig{
			MaxAttempts: 3,
			Duration:    5 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Audit: AuditConfig{
			Enabled:          true,
			BufferSize:       1024,
			AppendTimeout:    2 * time.Second,
			MaxRetries:       3,
			FallbackCapacity: 4096,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			RevokeSessionsOnRoleChange: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Password.Pepper = cloneBytes(cfg.Password.Pepper)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	// Session
	if c.Session.Timeout < time.Second {
		return errors.New("Session Timeout must be >= 1s")
	}

	// Lockout
	if c.Lockout.MaxAttempts < 1 {
		return errors.New("Lockout MaxAttempts must be >= 1")
	}
	if c.Lockout.Duration < time.Second {
		return errors.New("Lockout Duration must be >= 1s")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize < 1 {
			return errors.New("Audit BufferSize must be >= 1")
		}
		if c.Audit.AppendTimeout <= 0 {
			return errors.New("Audit AppendTimeout must be > 0")
		}
		if c.Audit.MaxRetries < 0 {
			return errors.New("Audit MaxRetries must be >= 0")
		}
		if c.Audit.FallbackCapacity < 0 {
			return errors.New("Audit FallbackCapacity must be >= 0")
		}
	}

	return nil
}
