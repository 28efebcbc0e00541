package login

import (
	"context"

	"github.com/l2emu/core/internal/model"
)

// AccountRepository is everything Handler needs from account storage —
// narrow enough that tests can satisfy it with an in-memory fake instead of
// a real Postgres connection.
type AccountRepository interface {
	// GetAccount looks up login, returning nil, nil if no account exists
	// yet.
	GetAccount(ctx context.Context, login string) (*model.Account, error)

	// CreateAccount inserts a brand new account for login.
	CreateAccount(ctx context.Context, login, passwordHash, ip string) error

	// GetOrCreateAccount returns login's account, creating it first if this
	// is the account's first-ever login. Safe under concurrent first logins
	// for the same account.
	GetOrCreateAccount(ctx context.Context, login, passwordHash, ip string) (*model.Account, error)

	// UpdateLastLogin stamps last_active/last_ip after a successful auth.
	UpdateLastLogin(ctx context.Context, login, ip string) error
}
