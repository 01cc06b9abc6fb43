package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutConfig holds the lockout policy: how many consecutive failures are
// tolerated and how long a triggered lock lasts. The failure window equals
// the lockout duration, matching the counter's rolling TTL.
type LockoutConfig struct {
	MaxAttempts int
	Duration    time.Duration
}

// ErrLockoutUnavailable indicates the lockout backend is unreachable.
var ErrLockoutUnavailable = errors.New("lockout backend unavailable")

// LockoutLimiter tracks consecutive failed login attempts per username and
// enforces a temporary lock once the threshold is reached.
type LockoutLimiter struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockoutLimiter creates a lockout limiter backed by the given Redis client.
func NewLockoutLimiter(redisClient redis.UniversalClient, cfg LockoutConfig) *LockoutLimiter {
	return &LockoutLimiter{redis: redisClient, config: cfg}
}

func (l *LockoutLimiter) counterKey(username string) string {
	return "alf:" + username
}

func (l *LockoutLimiter) lockKey(username string) string {
	return "alk:" + username
}

// RecordFailure increments the failure counter for username. It returns
// triggered=true for exactly the one caller that crossed the threshold and
// installed the lock, even under concurrent failure storms.
func (l *LockoutLimiter) RecordFailure(ctx context.Context, username string) (triggered bool, err error) {
	if username == "" {
		return false, nil
	}

	count, err := l.redis.Incr(ctx, l.counterKey(username)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	if count == 1 && l.config.Duration > 0 {
		// TTL on first failure makes the counter a rolling window that
		// fully resets once the window expires.
		if err := l.redis.Expire(ctx, l.counterKey(username), l.config.Duration).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
		}
	}

	if count < int64(l.config.MaxAttempts) {
		return false, nil
	}

	// SET NX: only the first attempt at or past the threshold installs the
	// lock and reports the transition.
	installed, err := l.redis.SetNX(ctx, l.lockKey(username), time.Now().Unix(), l.config.Duration).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	return installed, nil
}

// IsLocked reports whether username is currently locked and, if so, how long
// until the lock expires.
func (l *LockoutLimiter) IsLocked(ctx context.Context, username string) (bool, time.Duration, error) {
	if username == "" {
		return false, 0, nil
	}

	ttl, err := l.redis.PTTL(ctx, l.lockKey(username)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if ttl <= 0 {
		// Missing key (-2) or key without TTL (-1): not locked.
		return false, 0, nil
	}

	return true, ttl, nil
}

// Reset clears the failure counter and any active lock for username, called
// after a successful authentication or an administrative unlock.
func (l *LockoutLimiter) Reset(ctx context.Context, username string) error {
	if username == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.counterKey(username), l.lockKey(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// FailureCount returns the current consecutive-failure count for username.
// Missing keys return zero and do not reveal account existence.
func (l *LockoutLimiter) FailureCount(ctx context.Context, username string) (int, error) {
	if username == "" {
		return 0, nil
	}

	count, err := l.redis.Get(ctx, l.counterKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return int(count), nil
}
