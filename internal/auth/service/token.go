package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/hearth/internal/auth/domain"
	"github.com/aussiebroadwan/hearth/internal/auth/revocation"
	"github.com/aussiebroadwan/hearth/internal/auth/store"
	"github.com/aussiebroadwan/hearth/pkg/cryptox"
	"github.com/aussiebroadwan/hearth/pkg/idx"
	"github.com/aussiebroadwan/hearth/pkg/jwtx"
	"github.com/aussiebroadwan/hearth/pkg/slogx"
)

const (
	DefaultStoreTimeout     = 2 * time.Second
	DefaultRevokedRetention = 7 * 24 * time.Hour
	DefaultCleanupBatchSize = 500
)

// TokenService drives the credential lifecycle: login, refresh rotation with
// reuse detection, logout and background cleanup.
type TokenService struct {
	Codec     *jwtx.Codec
	Store     store.Store
	Blacklist revocation.Store

	// StoreTimeout bounds every durable-store round trip.
	StoreTimeout time.Duration
	// RevokedRetention keeps rotated tokens around so reuse is still
	// detected for a while after rotation.
	RevokedRetention time.Duration
	CleanupBatchSize int

	// Now must be the same clock the Codec uses. nil means time.Now.
	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// Login verifies username and password and issues a fresh pair. Unknown
// users and wrong passwords are indistinguishable to the caller.
func (s *TokenService) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	sctx, cancel := s.storeCtx(ctx)
	user, err := s.Store.Users().GetUserByUsername(sctx, username)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cryptox.BurnPasswordCheck(password)
			l.Info("login failed", slog.String("reason", "unknown_user"))
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, unavailable(err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login failed", slog.Int64("subject_id", user.ID), slog.String("reason", "bad_password"))
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	var pair domain.TokenPair
	sctx, cancel = s.storeCtx(ctx)
	defer cancel()
	err = s.Store.WithTx(sctx, func(tx store.Tx) error {
		pair, err = s.issuePair(sctx, tx, user)
		return err
	})
	if err != nil {
		return domain.TokenPair{}, unavailable(err)
	}

	l.Info("login succeeded", slog.Int64("subject_id", user.ID))
	return pair, nil
}

// Issue persists a new refresh credential for userID.
func (s *TokenService) Issue(ctx context.Context, userID int64) (jwtx.RefreshCredential, error) {
	cred, err := s.Codec.IssueRefresh(userID)
	if err != nil {
		return jwtx.RefreshCredential{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.Store.RefreshTokens().CreateRefreshToken(sctx, refreshRow(cred)); err != nil {
		return jwtx.RefreshCredential{}, unavailable(err)
	}
	return cred, nil
}

// Exchange rotates a refresh credential. Checks run in the order NotFound,
// Expired, AlreadyUsed. The old row is claimed with a conditional update in
// the same transaction that stores its replacement, so of two concurrent
// exchanges exactly one wins.
//
// Presenting an already-used credential revokes every refresh credential of
// its owner. That cascade is committed even though the call fails.
func (s *TokenService) Exchange(ctx context.Context, token string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := s.now()
	hash := cryptox.FingerprintToken(token)

	var (
		pair     domain.TokenPair
		reusedBy int64
		cascaded int64
	)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	err := s.Store.WithTx(sctx, func(tx store.Tx) error {
		rt, err := tx.RefreshTokens().GetRefreshTokenByHash(sctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if rt.Expired(now) {
			return ErrExpired
		}

		claimed := false
		if !rt.Revoked {
			if claimed, err = tx.RefreshTokens().ClaimRefreshToken(sctx, hash, now); err != nil {
				return err
			}
		}
		if !claimed {
			reusedBy = rt.UserID
			cascaded, err = tx.RefreshTokens().RevokeAllUserRefreshTokens(sctx, rt.UserID, now)
			return err
		}

		user, err := tx.Users().GetUserByID(sctx, rt.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		pair, err = s.issuePair(sctx, tx, user)
		return err
	})
	if err != nil {
		return domain.TokenPair{}, unavailable(err)
	}

	if reusedBy != 0 {
		slogx.Security(ctx, "refresh_reuse",
			"subject_id", reusedBy,
			"revoked", cascaded,
		)
		return domain.TokenPair{}, ErrAlreadyUsed
	}

	l.Debug("refresh rotated", slog.Int64("subject_id", pair.SubjectID))
	return pair, nil
}

// RevokeAll revokes every live refresh credential of userID.
func (s *TokenService) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	n, err := s.Store.RefreshTokens().RevokeAllUserRefreshTokens(sctx, userID, s.now())
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// Logout blacklists the presenting access credential until the codec would
// stop accepting it anyway, leeway included, and revokes every refresh
// credential of the subject.
func (s *TokenService) Logout(ctx context.Context, subjectID int64, tokenID string, expiresAt time.Time) error {
	sctx, cancel := s.storeCtx(ctx)
	err := s.Blacklist.Revoke(sctx, tokenID, expiresAt.Add(s.Codec.Leeway()))
	cancel()
	if err != nil {
		return unavailable(err)
	}
	if _, err := s.RevokeAll(ctx, subjectID); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("logout", slog.Int64("subject_id", subjectID))
	return nil
}

// Cleanup deletes refresh rows that expired or were revoked before cutoff.
// It works in bounded batches so no single statement holds the database for
// long, and returns the number of rows removed.
func (s *TokenService) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	batch := s.CleanupBatchSize
	if batch <= 0 {
		batch = DefaultCleanupBatchSize
	}

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		sctx, cancel := s.storeCtx(ctx)
		n, err := s.Store.RefreshTokens().DeleteStaleRefreshTokens(sctx, s.now(), cutoff, batch)
		cancel()
		if err != nil {
			return total, unavailable(err)
		}

		total += n
		if n < int64(batch) {
			return total, nil
		}
	}
}

// CleanupJob adapts Cleanup to the housekeeping scheduler using the
// configured retention.
func (s *TokenService) CleanupJob(ctx context.Context) (int64, error) {
	retention := s.RevokedRetention
	if retention <= 0 {
		retention = DefaultRevokedRetention
	}
	return s.Cleanup(ctx, s.now().Add(-retention))
}

func (s *TokenService) issuePair(ctx context.Context, tx store.Tx, user domain.User) (domain.TokenPair, error) {
	access, err := s.Codec.IssueAccess(user.ID, user.Role)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Codec.IssueRefresh(user.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if err := tx.RefreshTokens().CreateRefreshToken(ctx, refreshRow(refresh)); err != nil {
		return domain.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Token,
		TokenType:        "Bearer",
		ExpiresIn:        access.ExpiresAt.Sub(access.IssuedAt),
		TokenID:          access.TokenID,
		SubjectID:        user.ID,
		Role:             user.Role,
		RefreshExpiresIn: refresh.ExpiresAt.Sub(refresh.CreatedAt),
	}, nil
}

func refreshRow(cred jwtx.RefreshCredential) domain.RefreshToken {
	return domain.RefreshToken{
		ID:        idx.NewAt(cred.CreatedAt).String(),
		UserID:    cred.UserID,
		TokenHash: cryptox.FingerprintToken(cred.Token),
		ExpiresAt: cred.ExpiresAt,
		CreatedAt: cred.CreatedAt,
		UpdatedAt: cred.CreatedAt,
	}
}
