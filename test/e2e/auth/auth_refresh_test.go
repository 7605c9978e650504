//go:build e2e

package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/hearth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestLoginRefreshRotation tests the complete flow:
// 1. Register and log in
// 2. Refresh the token
// 3. Verify token rotation (new tokens are different from old tokens)
func TestLoginRefreshRotation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	loginResp, err := client.Login(t.Context(), adminUsername, adminPassword)
	require.NoError(t, err)
	assertTokenResponse(t, loginResp)

	tokenResp, err := client.Refresh(t.Context(), loginResp.RefreshToken)
	require.NoError(t, err)
	assertTokenResponse(t, tokenResp)

	require.NotEqual(t, loginResp.AccessToken, tokenResp.AccessToken, "Access token should be rotated")
	require.NotEqual(t, loginResp.RefreshToken, tokenResp.RefreshToken, "Refresh token should be rotated")

	// The rotated pair works
	session := client.NewSessionFromTokens(tokenResp.AccessToken, tokenResp.RefreshToken, tokenResp.ExpiresIn)
	me, err := session.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, "admin", me.Role)
}

// TestRefreshReuseRevokesFamily presents a rotated refresh token a second
// time. The replay is refused and every refresh token of the account is
// revoked, including the one the legitimate holder got from the rotation.
func TestRefreshReuseRevokesFamily(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	session, _ := registerAndLogin(t, client, "alice", "alice-password")

	stolen := session.RefreshToken()
	require.NoError(t, session.Rotate(t.Context()))
	current := session.RefreshToken()

	_, err := client.Refresh(t.Context(), stolen)
	oerr := requireOAuthError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
	require.Equal(t, "already_used", oerr.Description)

	_, err = client.Refresh(t.Context(), current)
	oerr = requireOAuthError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
	require.Equal(t, "already_used", oerr.Description, "Rotated token should be revoked by the cascade")

	// A fresh login still works
	_, err = client.Login(t.Context(), "alice", "alice-password")
	require.NoError(t, err)
}

// TestRefreshUnknownToken verifies an unknown refresh token is refused.
func TestRefreshUnknownToken(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	_, err := client.Refresh(t.Context(), "not-a-real-refresh-token")
	oerr := requireOAuthError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
	require.Equal(t, "not_found", oerr.Description)
}
