//go:build e2e

package auth_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/aussiebroadwan/hearth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestGateRateLimit verifies the gate's fixed window on protected routes.
// With the defaults a caller gets 5 requests per 60s window.
func TestGateRateLimit(t *testing.T) {
	for name, setup := range map[string]func(*testing.T) (string, func()){
		"memory": func(t *testing.T) (string, func()) {
			return setupAuthContainerWithEnv(t, map[string]string{"RATELIMIT_MAX_REQUESTS": "5"})
		},
		"redis": func(t *testing.T) (string, func()) {
			return setupAuthContainerWithRedisEnv(t, map[string]string{"RATELIMIT_MAX_REQUESTS": "5"})
		},
	} {
		t.Run(name, func(t *testing.T) {
			baseURL, cleanup := setup(t)
			defer cleanup()

			client := authsdk.NewSDKClient(baseURL)
			session := loginAdmin(t, client)

			for i := range 5 {
				_, err := session.Me(t.Context())
				require.NoError(t, err, "request %d should be allowed", i+1)
			}

			_, err := session.Me(t.Context())
			oerr := requireOAuthError(t, err, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimited)
			require.True(t, oerr.Retryable())
		})
	}
}

// TestGateRateLimitHeaders verifies the 429 carries Retry-After and the
// limit headers.
func TestGateRateLimitHeaders(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithEnv(t, map[string]string{"RATELIMIT_MAX_REQUESTS": "2"})
	defer cleanup()

	var last *http.Response
	for range 3 {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/v1/auth/me", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		last = resp
	}

	require.Equal(t, http.StatusTooManyRequests, last.StatusCode)
	require.NotEmpty(t, last.Header.Get("Retry-After"))
	require.Equal(t, "2", last.Header.Get("X-RateLimit-Limit"))
	require.Equal(t, "0", last.Header.Get("X-RateLimit-Remaining"))
	require.Equal(t, "1m0s", last.Header.Get("X-RateLimit-Window"))
}

// TestPublicPathsSkipGateLimit verifies public routes are not counted by the
// gate.
func TestPublicPathsSkipGateLimit(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithEnv(t, map[string]string{"RATELIMIT_MAX_REQUESTS": "1"})
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	for i := range 20 {
		health, err := client.GetLiveness(t.Context())
		require.NoError(t, err, "liveness request %d should not be limited", i+1)
		require.Equal(t, "ok", health.Status)
	}
}

// TestCredentialRateLimit verifies the token bucket in front of login.
func TestCredentialRateLimit(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithEnv(t, map[string]string{
		"RATELIMIT_CREDENTIALS_REQUESTS": "3",
		"RATELIMIT_CREDENTIALS_BURST":    "3",
	})
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	for i := range 3 {
		_, err := client.Login(t.Context(), "wronguser", "wrongpass")
		requireOAuthError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
		t.Logf("attempt %d refused as expected", i+1)
	}

	body := strings.NewReader(`{"username":"wronguser","password":"wrongpass"}`)
	resp, err := http.Post(baseURL+"/v1/auth/login", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
	require.Equal(t, "3", resp.Header.Get("X-RateLimit-Limit"))
	require.NotEmpty(t, resp.Header.Get("X-RateLimit-Window"))
}
