package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/hearth/internal/auth/domain"
	"github.com/aussiebroadwan/hearth/internal/auth/store"
	"github.com/aussiebroadwan/hearth/pkg/cryptox"
	"github.com/aussiebroadwan/hearth/pkg/slogx"
)

const (
	MaxUsernameLength = 64
	MinPasswordLength = 8
)

type UserService struct {
	Store        store.Store
	StoreTimeout time.Duration
	Now          func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *UserService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID int64) (domain.User, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.Store.Users().GetUserByID(sctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, unavailable(err)
	}
	return u, nil
}

// Register creates an account. An empty role means member.
func (s *UserService) Register(ctx context.Context, username, password, role string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLength {
		return domain.User{}, ErrInvalidInput
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return domain.User{}, ErrInvalidInput
	}
	if role == "" {
		role = domain.RoleMember
	}
	if !domain.ValidRole(role) {
		return domain.User{}, ErrInvalidRole
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	u := domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	u.ID, err = s.Store.Users().CreateUser(sctx, u)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, unavailable(err)
	}

	slogx.FromContext(ctx).Info("user registered",
		slog.Int64("subject_id", u.ID),
		slog.String("role", u.Role),
	)
	return u, nil
}
