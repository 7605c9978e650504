package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/hearth/internal/auth/gate"
	"github.com/aussiebroadwan/hearth/pkg/authsdk"
)

const (
	testAdmin    = "root"
	testAdminPwd = "root-password"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()

	return Config{
		SigningKey:             "hex:000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
		Issuer:                 "hearth-test",
		AccessTTL:              time.Hour,
		RefreshTTL:             24 * time.Hour,
		RevokedRetention:       time.Hour,
		StoreTimeout:           time.Second,
		BlacklistSweepInterval: time.Hour,
		RefreshCleanupInterval: time.Hour,
		RateLimitWindow:        time.Minute,
		RateLimitMaxRequests:   1000,
		PublicPaths:            gate.DefaultPublicPaths,
		BlacklistBackend:       BackendMemory,
		AdminUsername:          testAdmin,
		AdminPassword:          testAdminPwd,
		DatabaseFile:           filepath.Join(dir, "auth.db"),
		PepperFile:             filepath.Join(dir, "pepper"),
		Env:                    "test",
		LogLevel:               "error",
		LogFormat:              "text",
		Port:                   0,
		ShutdownGracePeriod:    time.Second,
	}
}

func startTestApp(t *testing.T, cfg Config) *authsdk.SDKClient {
	t.Helper()

	application, err := New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = application.close()
	})

	return authsdk.NewSDKClient(srv.URL)
}

func requireStatus(t *testing.T, err error, status int, code string) *authsdk.OAuth2Error {
	t.Helper()

	var oerr *authsdk.OAuth2Error
	require.True(t, errors.As(err, &oerr), "expected OAuth2Error, got %v", err)
	require.Equal(t, status, oerr.StatusCode)
	require.Equal(t, code, oerr.Code)
	return oerr
}

func TestTokenLifecycle(t *testing.T) {
	cfg := testConfig(t)
	mr := miniredis.RunT(t)

	backends := map[string]Config{
		"memory": cfg,
		"redis": func() Config {
			c := testConfig(t)
			c.RedisURL = "redis://" + mr.Addr()
			c.BlacklistBackend = BackendRedis
			return c
		}(),
	}

	for name, cfg := range backends {
		t.Run(name, func(t *testing.T) {
			client := startTestApp(t, cfg)
			ctx := t.Context()

			reg, err := client.Register(ctx, "alice", "alice-password")
			require.NoError(t, err)
			require.Equal(t, "member", reg.Role)

			session, err := client.AuthenticateWithPassword(ctx, "alice", "alice-password")
			require.NoError(t, err)

			me, err := session.Me(ctx)
			require.NoError(t, err)
			require.Equal(t, reg.ID, me.SubjectID)
			require.Equal(t, "member", me.Role)
			require.NotEmpty(t, me.TokenID)

			access := session.AccessToken()
			refresh := session.RefreshToken()
			require.NoError(t, session.Logout(ctx))

			// Replaying the logged out access token is refused by the gate
			replay := client.NewSessionFromTokens(access, "", 3600)
			_, err = replay.Me(ctx)
			requireStatus(t, err, http.StatusForbidden, authsdk.ErrorCodeForbidden)

			// Logout revoked the refresh token too
			_, err = client.Refresh(ctx, refresh)
			oerr := requireStatus(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
			require.Equal(t, "already_used", oerr.Description)
		})
	}
}

func TestRefreshReuseCascade(t *testing.T) {
	client := startTestApp(t, testConfig(t))
	ctx := t.Context()

	_, err := client.Register(ctx, "bob", "bob-password")
	require.NoError(t, err)

	first, err := client.Login(ctx, "bob", "bob-password")
	require.NoError(t, err)

	second, err := client.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, "Bearer", second.TokenType)
	require.Equal(t, int(time.Hour.Seconds()), second.ExpiresIn)
	require.Equal(t, int((24 * time.Hour).Seconds()), second.RefreshExpiresIn)

	_, err = client.Refresh(ctx, first.RefreshToken)
	oerr := requireStatus(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
	require.Equal(t, "already_used", oerr.Description)

	// The legitimate holder's token went down with the family
	_, err = client.Refresh(ctx, second.RefreshToken)
	requireStatus(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)

	_, err = client.Refresh(ctx, "never-issued")
	oerr = requireStatus(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
	require.Equal(t, "not_found", oerr.Description)
}

func TestAdminRevoke(t *testing.T) {
	client := startTestApp(t, testConfig(t))
	ctx := t.Context()

	reg, err := client.Register(ctx, "carol", "carol-password")
	require.NoError(t, err)
	member, err := client.AuthenticateWithPassword(ctx, "carol", "carol-password")
	require.NoError(t, err)

	_, err = member.RevokeUser(ctx, reg.ID)
	requireStatus(t, err, http.StatusForbidden, authsdk.ErrorCodeForbidden)

	admin, err := client.AuthenticateWithPassword(ctx, testAdmin, testAdminPwd)
	require.NoError(t, err)

	out, err := admin.RevokeUser(ctx, reg.ID)
	require.NoError(t, err)
	require.Equal(t, reg.ID, out.UserID)
	require.Equal(t, int64(1), out.Revoked)

	err = member.Rotate(ctx)
	requireStatus(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)

	_, err = admin.RevokeUser(ctx, reg.ID+1000)
	requireStatus(t, err, http.StatusNotFound, authsdk.ErrorCodeNotFound)
}

func TestAdminRevokeRateLimitedPerSubject(t *testing.T) {
	t.Setenv("RATELIMIT_ADMIN_REQUESTS", "1")
	t.Setenv("RATELIMIT_ADMIN_WINDOW_SEC", "3600")
	t.Setenv("RATELIMIT_ADMIN_BURST", "1")

	client := startTestApp(t, testConfig(t))
	ctx := t.Context()

	reg, err := client.Register(ctx, "dave", "dave-password")
	require.NoError(t, err)
	member, err := client.AuthenticateWithPassword(ctx, "dave", "dave-password")
	require.NoError(t, err)

	// Role check runs first, so refused members don't drain the bucket
	for range 3 {
		_, err = member.RevokeUser(ctx, reg.ID)
		requireStatus(t, err, http.StatusForbidden, authsdk.ErrorCodeForbidden)
	}

	admin, err := client.AuthenticateWithPassword(ctx, testAdmin, testAdminPwd)
	require.NoError(t, err)

	_, err = admin.RevokeUser(ctx, reg.ID)
	require.NoError(t, err)

	_, err = admin.RevokeUser(ctx, reg.ID)
	requireStatus(t, err, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimited)
}

func TestGateRejectsWithoutCredential(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitMaxRequests = 2
	client := startTestApp(t, cfg)

	for range 2 {
		resp, err := http.Get(client.BaseURL + "/v1/auth/me")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), `error="invalid_token"`)
	}

	resp, err := http.Get(client.BaseURL + "/v1/auth/me")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Public paths are not counted
	health, err := client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
}

func TestReadinessReportsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	client := startTestApp(t, cfg)

	health, err := client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Checks.Redis)

	mr.SetError("ERR unavailable")

	_, err = client.GetReadiness(t.Context())
	requireStatus(t, err, http.StatusServiceUnavailable, authsdk.ErrorCodeServerError)
}

func TestNewFailsWithoutRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1"

	_, err := New(cfg)
	require.Error(t, err)
}
