package accessguard

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Audit action kinds. Every security-relevant engine event carries exactly
// one of these.
const (
	AuditLoginSuccess       = "login_success"
	AuditLoginFailure       = "login_failure"
	AuditLockoutTriggered   = "lockout_triggered"
	AuditSessionExpired     = "session_expired"
	AuditLogout             = "logout"
	AuditLogoutAll          = "logout_all"
	AuditDataAccess         = "data_access"
	AuditPermissionDenied   = "permission_denied"
	AuditAccountCreated     = "account_created"
	AuditAccountRoleChanged = "account_role_changed"
	AuditAccountDeactivated = "account_deactivated"
	AuditPasswordChanged    = "password_changed"
)

// AuditEntry is one immutable record in the trail. Entries are created by
// the engine and never modified after append.
type AuditEntry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Username  string            `json:"username,omitempty"`
	IP        string            `json:"ip,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

func newAuditEntry(action, username string, success bool) AuditEntry {
	return AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Username:  username,
		Success:   success,
	}
}

// AuditSink receives entries from the engine's dispatcher. Append must be
// safe for concurrent use. A returned error makes the dispatcher retry and
// eventually park the entry on its fallback queue; it is never silently
// discarded.
type AuditSink interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// AuditFilter narrows [AuditLister.List] results. Zero fields match
// everything.
type AuditFilter struct {
	Username string
	Action   string
	Since    time.Time
	Until    time.Time
	// Limit bounds the result count; 0 means no bound. Entries are
	// returned oldest first.
	Limit int
}

func (f AuditFilter) matches(entry AuditEntry) bool {
	if f.Username != "" && entry.Username != f.Username {
		return false
	}
	if f.Action != "" && entry.Action != f.Action {
		return false
	}
	if !f.Since.IsZero() && entry.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && entry.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// AuditLister is implemented by sinks that support reading the trail back.
// [Engine.ListAuditEntries] requires one.
type AuditLister interface {
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// NoOpSink discards every entry.
type NoOpSink struct{}

func (NoOpSink) Append(context.Context, AuditEntry) error { return nil }

// ChannelSink forwards entries to a channel, for callers that ship the
// trail elsewhere themselves.
type ChannelSink struct {
	entries chan AuditEntry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		entries: make(chan AuditEntry, buffer),
	}
}

func (s *ChannelSink) Append(ctx context.Context, entry AuditEntry) error {
	select {
	case s.entries <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelSink) Entries() <-chan AuditEntry {
	return s.entries
}

// JSONWriterSink appends entries as JSON lines to a writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Append(_ context.Context, entry AuditEntry) error {
	if s == nil || s.writer == nil {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	_, err = s.writer.Write([]byte("\n"))
	return err
}

// MemoryLog keeps the trail in process memory. Suitable for tests and
// single-process deployments.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []AuditEntry
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(_ context.Context, entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *MemoryLog) List(_ context.Context, filter AuditFilter) ([]AuditEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]AuditEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		if !filter.matches(entry) {
			continue
		}
		out = append(out, entry)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Len reports the number of stored entries.
func (l *MemoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
