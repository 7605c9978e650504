package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/hearth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories so that transaction scope is explicit: a Tx hands
// out repositories bound to the transaction, and nested transactions are
// refused.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the user-account store. The token lifecycle only reads it at
// login; registration and bootstrap insert.
type Users interface {
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts u and returns its assigned id. A duplicate username
	// yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) (int64, error)

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash looks a token up by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// ClaimRefreshToken flips revoked 0->1 for hash and reports whether this
	// call did the flip. Exactly one of any number of concurrent claims
	// succeeds.
	ClaimRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error)

	// RevokeAllUserRefreshTokens revokes every live token of the user and
	// returns how many rows changed.
	RevokeAllUserRefreshTokens(ctx context.Context, userID int64, now time.Time) (int64, error)

	// DeleteStaleRefreshTokens removes at most limit rows that are expired at
	// now or were revoked before revokedBefore.
	DeleteStaleRefreshTokens(ctx context.Context, now, revokedBefore time.Time, limit int) (int64, error)
}
