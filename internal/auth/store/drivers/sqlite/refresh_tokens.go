package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/hearth/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, createRefreshToken,
		t.ID,
		t.UserID,
		t.TokenHash,
		toMillis(t.ExpiresAt),
		toMillis(t.CreatedAt),
		toMillis(t.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var (
		t                         domain.RefreshToken
		expires, created, updated int64
	)
	err := r.db.QueryRowContext(ctx, getRefreshTokenByHash, hash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &expires, &t.Revoked, &created, &updated)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ExpiresAt = fromMillis(expires)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func (r *refreshTokensRepo) ClaimRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, claimRefreshToken, toMillis(now), hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID int64, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, revokeAllUserRefreshTokens, toMillis(now), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) DeleteStaleRefreshTokens(
	ctx context.Context,
	now, revokedBefore time.Time,
	limit int,
) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteStaleRefreshTokens, toMillis(now), toMillis(revokedBefore), limit)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
