package accessguard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const auditListKey = "audit:trail"

// RedisLog persists the audit trail as a Redis list of JSON entries, in
// append order. It implements both [AuditSink] and [AuditLister].
type RedisLog struct {
	redis redis.UniversalClient
	key   string
	// maxLen caps the list with LTRIM after each append; 0 keeps
	// everything.
	maxLen int64
}

// NewRedisLog creates a Redis-backed audit log. maxLen of 0 disables
// trimming.
func NewRedisLog(rdb redis.UniversalClient, maxLen int64) *RedisLog {
	return &RedisLog{
		redis:  rdb,
		key:    auditListKey,
		maxLen: maxLen,
	}
}

func (l *RedisLog) Append(ctx context.Context, entry AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
	}

	if err := l.redis.RPush(ctx, l.key, data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
	}
	if l.maxLen > 0 {
		if err := l.redis.LTrim(ctx, l.key, -l.maxLen, -1).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
		}
	}
	return nil
}

// List reads the trail oldest first and applies filter in memory. An entry
// that no longer unmarshals is skipped rather than failing the whole read.
func (l *RedisLog) List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	raw, err := l.redis.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []AuditEntry{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
	}

	out := make([]AuditEntry, 0, len(raw))
	for _, item := range raw {
		var entry AuditEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
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
