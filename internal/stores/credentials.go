package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountExists          = errors.New("account already exists")
	ErrCredentialsUnavailable = errors.New("credential store unavailable")
	ErrUpdateConflict         = errors.New("account update conflict")
)

const (
	accountKeyPrefix     = "acct:"
	accountRecordVersion = 1
	updateRetries        = 5
)

// Account is the persisted credential record. PasswordHash is a PHC-format
// string produced by the password package; plaintext never reaches this
// struct.
type Account struct {
	Version      int    `json:"v"`
	ID           string `json:"id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	PasswordHash string `json:"password_hash"`
	Active       bool   `json:"active"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// CredentialStore persists accounts in Redis keyed by normalized username.
// All methods are safe for concurrent use.
type CredentialStore struct {
	redis redis.UniversalClient
}

// NewCredentialStore creates a [CredentialStore] backed by the given Redis
// client.
func NewCredentialStore(rdb redis.UniversalClient) *CredentialStore {
	return &CredentialStore{redis: rdb}
}

// NormalizeUsername canonicalizes a username for lookup. Two usernames that
// normalize equal name the same account.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func accountKey(username string) string {
	return accountKeyPrefix + NormalizeUsername(username)
}

// Create stores a new account. The username race is settled by SET NX:
// exactly one concurrent creator wins, the rest get [ErrAccountExists].
func (s *CredentialStore) Create(ctx context.Context, acct *Account) error {
	acct.Version = accountRecordVersion
	acct.Username = NormalizeUsername(acct.Username)
	if acct.Username == "" {
		return fmt.Errorf("%w: empty username", ErrAccountNotFound)
	}

	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCredentialsUnavailable, err)
	}

	ok, err := s.redis.SetNX(ctx, accountKey(acct.Username), data, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCredentialsUnavailable, err)
	}
	if !ok {
		return ErrAccountExists
	}
	return nil
}

// Get fetches an account by username. Deactivated accounts are returned;
// the caller decides whether Active matters for the operation at hand.
func (s *CredentialStore) Get(ctx context.Context, username string) (*Account, error) {
	data, err := s.redis.Get(ctx, accountKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrCredentialsUnavailable, err)
	}
	return decodeAccount(data)
}

// Update applies mutate to the current record inside a WATCH/MULTI
// optimistic transaction, retrying a bounded number of times on contention.
// mutate runs against a copy; returning an error aborts the update.
func (s *CredentialStore) Update(ctx context.Context, username string, mutate func(*Account) error) (*Account, error) {
	key := accountKey(username)

	var updated *Account
	txFn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("%w: %v", ErrCredentialsUnavailable, err)
		}

		acct, err := decodeAccount(data)
		if err != nil {
			return err
		}

		next := *acct
		if err := mutate(&next); err != nil {
			return err
		}
		next.Version = accountRecordVersion
		next.Username = acct.Username
		next.UpdatedAt = time.Now().Unix()

		out, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCredentialsUnavailable, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &next
		return nil
	}

	for i := 0; i < updateRetries; i++ {
		err := s.redis.Watch(ctx, txFn, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrUpdateConflict
}

// Deactivate marks the account inactive. The record stays in the store.
func (s *CredentialStore) Deactivate(ctx context.Context, username string) (*Account, error) {
	return s.Update(ctx, username, func(acct *Account) error {
		acct.Active = false
		return nil
	})
}

func decodeAccount(data []byte) (*Account, error) {
	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("%w: corrupt record: %v", ErrCredentialsUnavailable, err)
	}
	if acct.Version != accountRecordVersion {
		return nil, fmt.Errorf("%w: unsupported record version %d", ErrCredentialsUnavailable, acct.Version)
	}
	return &acct, nil
}
