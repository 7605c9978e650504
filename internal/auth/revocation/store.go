// Package revocation holds the blacklist of access credentials revoked before
// their natural expiry.
//
// Entries are keyed by token id and never outlive the credential they shadow,
// so the set is bounded by the number of revocations per access TTL.
package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps failures of a shared backend. Callers must treat it as
// "can't confirm" and fail closed.
var ErrUnavailable = errors.New("revocation: store unavailable")

// Store is a revocation set.
type Store interface {
	// Revoke marks tokenID as revoked until naturalExpiry. Idempotent.
	Revoke(ctx context.Context, tokenID string, naturalExpiry time.Time) error

	// IsRevoked reports whether tokenID is currently revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// Sweep drops entries whose natural expiry is at or before now and
	// reports how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)

	// Len reports the number of entries held locally, or -1 when the
	// backend doesn't track it.
	Len() int
}
