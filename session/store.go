package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when no record exists for a token.
var ErrNotFound = errors.New("session not found")

// ErrExpired is returned when the sliding inactivity window has elapsed.
var ErrExpired = errors.New("session expired")

const (
	touchStatusNotFound    int64 = 0
	touchStatusExpired     int64 = 1
	touchStatusRefreshed   int64 = 2
	touchStatusInvalidBlob int64 = 3
)

// touchScript validates the sliding window and refreshes last-activity in a
// single atomic step. It rewrites the trailing 8-byte timestamp in place, so
// a session deleted concurrently is never resurrected: SET only runs after
// GET found the key inside the same script execution.
const touchScript = `
local function read_be64(s, i)
  local b1 = string.byte(s, i)
  local b2 = string.byte(s, i + 1)
  local b3 = string.byte(s, i + 2)
  local b4 = string.byte(s, i + 3)
  local b5 = string.byte(s, i + 4)
  local b6 = string.byte(s, i + 5)
  local b7 = string.byte(s, i + 6)
  local b8 = string.byte(s, i + 7)
  if not b8 then
    return nil
  end
  return ((((((((b1 * 256) + b2) * 256 + b3) * 256 + b4) * 256 + b5) * 256 + b6) * 256 + b7) * 256 + b8)
end

local session_key = KEYS[1]
local token = ARGV[1]
local user_prefix = ARGV[2]
local now_unix = tonumber(ARGV[3])
local timeout_secs = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])
local packed_now = ARGV[6]

local data = redis.call("GET", session_key)
if not data then
  return {0}
end

local user_len = string.byte(data, 2)
if not user_len or user_len == 0 or #data < 2 + user_len + 17 then
  return {3}
end
local username = string.sub(data, 3, 2 + user_len)

local last = read_be64(data, #data - 7)
if not last then
  return {3}
end

if now_unix - last >= timeout_secs then
  redis.call("DEL", session_key)
  redis.call("SREM", user_prefix .. username, token)
  return {1, username}
end

local updated = string.sub(data, 1, #data - 8) .. packed_now
redis.call("SET", session_key, updated, "PX", ttl_ms)
return {2, updated}
`

var touchLua = redis.NewScript(touchScript)

const (
	sessionKeyPrefix = "as"
	userKeyPrefix    = "au:"
)

// expiredRetention keeps a logically expired record in Redis past its
// inactivity window so the next Touch can report Expired rather than
// NotFound. The distinction only matters for audit fidelity.
const expiredRetentionFactor = 2

// Store persists sessions in Redis keyed by opaque token, with a per-user
// index set for bulk revocation. All methods are safe for concurrent use.
type Store struct {
	redis   redis.UniversalClient
	timeout time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// timeout is the sliding inactivity window after which sessions expire.
func NewStore(rdb redis.UniversalClient, timeout time.Duration) *Store {
	return &Store{redis: rdb, timeout: timeout}
}

func (s *Store) key(token string) string {
	return sessionKeyPrefix + ":" + token
}

func (s *Store) userKey(username string) string {
	return userKeyPrefix + username
}

func (s *Store) physicalTTL() time.Duration {
	ttl := s.timeout * expiredRetentionFactor
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

// Save persists a session and records its token in the owner's index set.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.Token), data, s.physicalTTL())
		pipe.SAdd(ctx, s.userKey(sess.Username), sess.Token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Touch validates the session's sliding window and, when still active,
// refreshes last-activity to now and returns the updated session. An
// expired record is deleted and reported as [ErrExpired] together with a
// partial session carrying the owner's username; a missing or unreadable
// record is reported as [ErrNotFound].
//
//	Performance: 1 Redis script call.
func (s *Store) Touch(ctx context.Context, token string) (*Session, error) {
	now := time.Now()
	packed := binary.BigEndian.AppendUint64(nil, uint64(now.Unix()))

	res, err := touchLua.Run(ctx, s.redis,
		[]string{s.key(token)},
		token,
		userKeyPrefix,
		now.Unix(),
		int64(s.timeout/time.Second),
		s.physicalTTL().Milliseconds(),
		string(packed),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%w: empty script reply", ErrRedisUnavailable)
	}

	status, ok := res[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected script reply %T", ErrRedisUnavailable, res[0])
	}

	switch status {
	case touchStatusNotFound:
		return nil, ErrNotFound
	case touchStatusExpired:
		// The script read the username before deleting the record; surface it
		// so callers can attribute the expiry.
		if len(res) >= 2 {
			if username, ok := res[1].(string); ok {
				return &Session{Token: token, Username: username}, ErrExpired
			}
		}
		return nil, ErrExpired
	case touchStatusInvalidBlob:
		return nil, fmt.Errorf("%w: %v", ErrNotFound, ErrCorrupt)
	case touchStatusRefreshed:
		if len(res) < 2 {
			return nil, fmt.Errorf("%w: refresh reply missing payload", ErrRedisUnavailable)
		}
		blob, ok := res[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected payload %T", ErrRedisUnavailable, res[1])
		}
		return Decode(token, []byte(blob))
	default:
		return nil, fmt.Errorf("%w: unknown touch status %d", ErrRedisUnavailable, status)
	}
}

// Peek reads a session without refreshing its sliding window or checking
// logical expiry. Used for audit attribution on revocation paths.
func (s *Store) Peek(ctx context.Context, token string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Decode(token, data)
}

// Delete revokes a session. Deleting a missing or already expired token is
// a no-op: revocation is idempotent.
func (s *Store) Delete(ctx context.Context, token string) error {
	data, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(token, data)
	if err != nil {
		// Unreadable record: drop the key so it cannot linger.
		if delErr := s.redis.Del(ctx, s.key(token)).Err(); delErr != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, delErr)
		}
		return nil
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(token))
		pipe.SRem(ctx, s.userKey(sess.Username), token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllForUser revokes every tracked session belonging to username and
// reports how many records were removed.
//
// ATOMICITY NOTE: this reads the user's index set, then deletes. A session
// created between the two phases is not captured; it will expire naturally
// or be caught by a second call.
func (s *Store) DeleteAllForUser(ctx context.Context, username string) (int, error) {
	userKey := s.userKey(username)

	tokens, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(tokens) > 0 {
			keys := make([]string, len(tokens))
			for i, token := range tokens {
				keys[i] = s.key(token)
			}
			pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return len(tokens), nil
}

// ActiveSessionCount returns the number of tracked tokens for a user. The
// count may include records whose sliding window has elapsed but which have
// not yet been touched.
func (s *Store) ActiveSessionCount(ctx context.Context, username string) (int, error) {
	count, err := s.redis.SCard(ctx, s.userKey(username)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}
