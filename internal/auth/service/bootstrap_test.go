package service_test

import (
	"testing"

	"github.com/aussiebroadwan/hearth/internal/auth/domain"
	"github.com/aussiebroadwan/hearth/internal/auth/service"
	"github.com/stretchr/testify/require"
)

func TestSeedAdmin(t *testing.T) {
	f := newFixture(t)
	bs := &service.BootstrapService{Users: f.users}

	ok, err := bs.IsBootstrapped(ctx())
	require.NoError(t, err)
	require.False(t, ok)

	admin, err := bs.SeedAdmin(ctx(), domain.BootstrapData{AdminUsername: "root", AdminPassword: "hunter2hunter2"})
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.Role)

	_, err = bs.SeedAdmin(ctx(), domain.BootstrapData{AdminUsername: "other", AdminPassword: "hunter2hunter2"})
	require.ErrorIs(t, err, service.ErrBootstrapAlready)

	pair, err := f.tokens.Login(ctx(), "root", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, pair.Role)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name     string
		username string
		password string
		role     string
		want     error
	}{
		{"empty username", "  ", "long enough", "", service.ErrInvalidInput},
		{"short password", "bob", "short", "", service.ErrInvalidInput},
		{"unknown role", "bob", "long enough", "owner", service.ErrInvalidRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.users.Register(ctx(), tc.username, tc.password, tc.role)
			require.ErrorIs(t, err, tc.want)
		})
	}

	f.register(t, "bob")
	_, err := f.users.Register(ctx(), "BOB", "long enough", "")
	require.ErrorIs(t, err, service.ErrUsernameTaken)

	_, err = f.users.GetUserByID(ctx(), 999)
	require.ErrorIs(t, err, service.ErrNotFound)
}
