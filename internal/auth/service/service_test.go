package service_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/hearth/internal/auth/domain"
	"github.com/aussiebroadwan/hearth/internal/auth/revocation"
	"github.com/aussiebroadwan/hearth/internal/auth/service"
	"github.com/aussiebroadwan/hearth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/hearth/pkg/cryptox"
	"github.com/aussiebroadwan/hearth/pkg/jwtx"
	"github.com/aussiebroadwan/hearth/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cryptox.SetPepper("test-pepper")
	os.Exit(m.Run())
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	clock     *clock
	store     *sqlite.Store
	blacklist *revocation.Memory
	tokens    *service.TokenService
	users     *service.UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := &clock{t: time.UnixMilli(1_700_000_000_000)}

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec, err := jwtx.NewCodec(jwtx.CodecOptions{
		Key:        []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "hearth-test",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		Now:        c.Now,
	})
	require.NoError(t, err)

	bl := revocation.NewMemory(c.Now)
	return &fixture{
		clock:     c,
		store:     st,
		blacklist: bl,
		tokens: &service.TokenService{
			Codec:     codec,
			Store:     st,
			Blacklist: bl,
			Now:       c.Now,
		},
		users: &service.UserService{Store: st, Now: c.Now},
	}
}

func (f *fixture) register(t *testing.T, name string) domain.User {
	t.Helper()

	u, err := f.users.Register(context.Background(), name, "correct horse", "")
	require.NoError(t, err)
	return u
}

func ctx() context.Context {
	return slogx.WithContext(context.Background(), slogx.Discard())
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice")

	pair, err := f.tokens.Login(ctx(), "alice", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, u.ID, pair.SubjectID)
	require.Equal(t, domain.RoleMember, pair.Role)
	require.Equal(t, time.Hour, pair.ExpiresIn)

	cred, err := f.tokens.Codec.Decode(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, cred.SubjectID)
	require.Equal(t, pair.TokenID, cred.TokenID)

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.tokens.Login(ctx(), "alice", "nope nope")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.tokens.Login(ctx(), "mallory", "correct horse")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("username is case insensitive", func(t *testing.T) {
		_, err := f.tokens.Login(ctx(), "ALICE", "correct horse")
		require.NoError(t, err)
	})
}

func TestExchangeRotates(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	first, err := f.tokens.Login(ctx(), "alice", "correct horse")
	require.NoError(t, err)

	second, err := f.tokens.Exchange(ctx(), first.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.NotEqual(t, first.TokenID, second.TokenID)

	third, err := f.tokens.Exchange(ctx(), second.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, third.AccessToken)
}

func TestExchangeFailures(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice")

	t.Run("unknown token", func(t *testing.T) {
		_, err := f.tokens.Exchange(ctx(), "does-not-exist")
		require.ErrorIs(t, err, service.ErrNotFound)
		require.Equal(t, service.KindNotFound, service.KindOf(err))
	})

	t.Run("expired token", func(t *testing.T) {
		cred, err := f.tokens.Issue(ctx(), u.ID)
		require.NoError(t, err)

		f.clock.Advance(24 * time.Hour)
		_, err = f.tokens.Exchange(ctx(), cred.Token)
		require.ErrorIs(t, err, service.ErrExpired)
	})
}

func TestExchangeReuseRevokesFamily(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	a, err := f.tokens.Login(ctx(), "alice", "correct horse")
	require.NoError(t, err)
	b, err := f.tokens.Login(ctx(), "alice", "correct horse") // second device
	require.NoError(t, err)

	rotated, err := f.tokens.Exchange(ctx(), a.RefreshToken)
	require.NoError(t, err)

	// Replaying the rotated-away credential trips reuse detection.
	_, err = f.tokens.Exchange(ctx(), a.RefreshToken)
	require.ErrorIs(t, err, service.ErrAlreadyUsed)

	// The cascade is committed even though the replay failed.
	_, err = f.tokens.Exchange(ctx(), rotated.RefreshToken)
	require.ErrorIs(t, err, service.ErrAlreadyUsed)
	_, err = f.tokens.Exchange(ctx(), b.RefreshToken)
	require.ErrorIs(t, err, service.ErrAlreadyUsed)

	// A fresh login still works.
	_, err = f.tokens.Login(ctx(), "alice", "correct horse")
	require.NoError(t, err)
}

func TestExchangeConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	pair, err := f.tokens.Login(ctx(), "alice", "correct horse")
	require.NoError(t, err)

	const callers = 16
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		reused  atomic.Int32
		start   = make(chan struct{})
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.tokens.Exchange(ctx(), pair.RefreshToken)
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, service.ErrAlreadyUsed):
				reused.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), winners.Load())
	require.Equal(t, int32(callers-1), reused.Load())
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice")

	pair, err := f.tokens.Login(ctx(), "alice", "correct horse")
	require.NoError(t, err)
	cred, err := f.tokens.Codec.Decode(pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.tokens.Logout(ctx(), u.ID, cred.TokenID, cred.ExpiresAt))

	revoked, err := f.blacklist.IsRevoked(ctx(), cred.TokenID)
	require.NoError(t, err)
	require.True(t, revoked)

	_, err = f.tokens.Exchange(ctx(), pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrAlreadyUsed)
}

func TestLogoutCoversCodecLeeway(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice")

	codec, err := jwtx.NewCodec(jwtx.CodecOptions{
		Key:       []byte("0123456789abcdef0123456789abcdef"),
		Issuer:    "hearth-test",
		AccessTTL: time.Hour,
		Leeway:    time.Minute,
		Now:       f.clock.Now,
	})
	require.NoError(t, err)
	f.tokens.Codec = codec

	pair, err := f.tokens.Login(ctx(), "alice", "correct horse")
	require.NoError(t, err)
	cred, err := codec.Decode(pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.tokens.Logout(ctx(), u.ID, cred.TokenID, cred.ExpiresAt))

	f.clock.Advance(cred.ExpiresAt.Sub(f.clock.Now()) + 30*time.Second)
	_, err = codec.Decode(pair.AccessToken)
	require.NoError(t, err, "still inside the leeway")

	revoked, err := f.blacklist.IsRevoked(ctx(), cred.TokenID)
	require.NoError(t, err)
	require.True(t, revoked)

	f.clock.Advance(time.Minute)
	revoked, err = f.blacklist.IsRevoked(ctx(), cred.TokenID)
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestLogoutBlacklistUnavailable(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice")
	f.tokens.Blacklist = failingBlacklist{}

	err := f.tokens.Logout(ctx(), u.ID, "jti", f.clock.Now().Add(time.Hour))
	require.ErrorIs(t, err, service.ErrStoreUnavailable)

	var ae *service.AuthError
	require.ErrorAs(t, err, &ae)
	require.True(t, ae.Retryable())
}

func TestRevokeAll(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice")

	for range 3 {
		_, err := f.tokens.Login(ctx(), "alice", "correct horse")
		require.NoError(t, err)
	}

	n, err := f.tokens.RevokeAll(ctx(), u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	n, err = f.tokens.RevokeAll(ctx(), u.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCleanup(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice")
	f.tokens.CleanupBatchSize = 2

	for range 5 {
		_, err := f.tokens.Issue(ctx(), u.ID)
		require.NoError(t, err)
	}
	live, err := f.tokens.Login(ctx(), "alice", "correct horse")
	require.NoError(t, err)

	// Nothing is stale yet.
	n, err := f.tokens.Cleanup(ctx(), f.clock.Now())
	require.NoError(t, err)
	require.Zero(t, n)

	// Rotated rows survive until the retention cutoff passes them.
	f.clock.Advance(time.Hour)
	_, err = f.tokens.Exchange(ctx(), live.RefreshToken)
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	n, err = f.tokens.Cleanup(ctx(), f.clock.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(7), n)
}

func TestCleanupRespectsRetention(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	f.tokens.RevokedRetention = 2 * time.Hour

	pair, err := f.tokens.Login(ctx(), "alice", "correct horse")
	require.NoError(t, err)
	_, err = f.tokens.Exchange(ctx(), pair.RefreshToken)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	n, err := f.tokens.CleanupJob(ctx())
	require.NoError(t, err)
	require.Zero(t, n)

	// Still inside retention, so replay is detected rather than NotFound.
	_, err = f.tokens.Exchange(ctx(), pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrAlreadyUsed)

	f.clock.Advance(3 * time.Hour)
	n, err = f.tokens.CleanupJob(ctx())
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

type failingBlacklist struct{}

func (failingBlacklist) Revoke(context.Context, string, time.Time) error {
	return revocation.ErrUnavailable
}

func (failingBlacklist) IsRevoked(context.Context, string) (bool, error) {
	return false, revocation.ErrUnavailable
}

func (failingBlacklist) Sweep(context.Context, time.Time) (int, error) { return 0, nil }

func (failingBlacklist) Len() int { return 0 }
