package accessguard

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/Shannon1980/accessguard/internal/stores"
)

// Account is the persisted credential record: normalized username, role
// name, PHC-format password hash, active flag, and timestamps.
type Account = stores.Account

// CredentialStore is the persistence interface the [Engine] authenticates
// against. [NewBuilder] wires the Redis-backed implementation by default;
// supply your own to back accounts with a different datastore.
type CredentialStore interface {
	Create(ctx context.Context, acct *Account) error
	Get(ctx context.Context, username string) (*Account, error)
	Update(ctx context.Context, username string, mutate func(*Account) error) (*Account, error)
	Deactivate(ctx context.Context, username string) (*Account, error)
}

// NewCredentialStore returns the Redis-backed [CredentialStore] the builder
// wires by default. Exported for programs that seed or inspect accounts
// outside the engine's administration operations.
func NewCredentialStore(rdb redis.UniversalClient) CredentialStore {
	return stores.NewCredentialStore(rdb)
}

// LoginResult is returned by [Engine.Login] on success.
type LoginResult struct {
	Token     string
	Username  string
	Role      string
	AccountID string
}

// SessionInfo is returned by [Engine.ValidateSession]. Role is the snapshot
// taken at login; role changes after login do not alter live sessions
// unless session revocation on role change is enabled.
type SessionInfo struct {
	Token        string
	Username     string
	Role         string
	CreatedAt    int64
	LastActivity int64
}

// AccountView is the credential-free account projection returned by the
// administration operations.
type AccountView struct {
	ID        string
	Username  string
	Role      string
	Active    bool
	CreatedAt int64
	UpdatedAt int64
}

func accountView(acct *Account) *AccountView {
	return &AccountView{
		ID:        acct.ID,
		Username:  acct.Username,
		Role:      acct.Role,
		Active:    acct.Active,
		CreatedAt: acct.CreatedAt,
		UpdatedAt: acct.UpdatedAt,
	}
}
