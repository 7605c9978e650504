package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/hearth/internal/auth/domain"
	"github.com/aussiebroadwan/hearth/pkg/slogx"
)

var ErrBootstrapAlready = errors.New("system already bootstrapped")

type BootstrapService struct {
	Users *UserService
}

// IsBootstrapped reports whether any account exists.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	sctx, cancel := s.Users.storeCtx(ctx)
	defer cancel()

	empty, err := s.Users.Store.Users().IsEmpty(sctx)
	if err != nil {
		return false, unavailable(err)
	}
	return !empty, nil
}

// SeedAdmin creates the first administrator when the user table is empty.
// It returns ErrBootstrapAlready once any user exists, so it is safe to call
// on every start.
func (s *BootstrapService) SeedAdmin(ctx context.Context, req domain.BootstrapData) (domain.User, error) {
	l := slogx.FromContext(ctx)

	bootstrapped, err := s.IsBootstrapped(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if bootstrapped {
		return domain.User{}, ErrBootstrapAlready
	}

	admin, err := s.Users.Register(ctx, req.AdminUsername, req.AdminPassword, domain.RoleAdmin)
	if err != nil {
		// Another replica may have seeded between the check and the insert.
		if errors.Is(err, ErrUsernameTaken) {
			return domain.User{}, ErrBootstrapAlready
		}
		l.Error("failed to create admin user", slog.Any("error", err))
		return domain.User{}, err
	}

	l.Info("successfully bootstrapped system", slog.Int64("admin_user_id", admin.ID))
	return admin, nil
}
