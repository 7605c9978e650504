//go:build e2e

package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/hearth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestInvalidCredentials verifies that a wrong password and an unknown user
// get the same refusal.
func TestInvalidCredentials(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	_, err := client.Login(t.Context(), adminUsername, "wrong-password")
	wrong := requireOAuthError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)

	_, err = client.Login(t.Context(), "nobody", "wrong-password")
	unknown := requireOAuthError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)

	require.Equal(t, wrong.Description, unknown.Description)
}

// TestInvalidAccessToken verifies the gate rejects garbage and missing tokens.
func TestInvalidAccessToken(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	invalidSession := client.NewSessionFromTokens("invalid-token-12345", "", 3600)
	_, err := invalidSession.Me(t.Context())
	requireOAuthError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

	resp, err := http.Get(baseURL + "/v1/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
}

// TestLogoutRevokesAccessToken verifies a logged out access token is refused
// on replay and the account's refresh tokens no longer work.
func TestLogoutRevokesAccessToken(t *testing.T) {
	for name, setup := range map[string]func(*testing.T) (string, func()){
		"memory": setupAuthContainer,
		"redis":  setupAuthContainerWithRedis,
	} {
		t.Run(name, func(t *testing.T) {
			baseURL, cleanup := setup(t)
			defer cleanup()

			client := authsdk.NewSDKClient(baseURL)
			session, userID := registerAndLogin(t, client, "bob", "bob-password")

			me, err := session.Me(t.Context())
			require.NoError(t, err)
			require.Equal(t, userID, me.SubjectID)

			access := session.AccessToken()
			refresh := session.RefreshToken()
			require.NoError(t, session.Logout(t.Context()))

			replay := client.NewSessionFromTokens(access, "", 3600)
			_, err = replay.Me(t.Context())
			requireOAuthError(t, err, http.StatusForbidden, authsdk.ErrorCodeForbidden)

			_, err = client.Refresh(t.Context(), refresh)
			requireOAuthError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
		})
	}
}

// TestAdminRevokeUser verifies an admin can revoke another account's refresh
// tokens and a member cannot.
func TestAdminRevokeUser(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	member, memberID := registerAndLogin(t, client, "carol", "carol-password")

	_, err := member.RevokeUser(t.Context(), memberID)
	requireOAuthError(t, err, http.StatusForbidden, authsdk.ErrorCodeForbidden)

	admin := loginAdmin(t, client)
	out, err := admin.RevokeUser(t.Context(), memberID)
	require.NoError(t, err)
	require.Equal(t, memberID, out.UserID)
	require.Equal(t, int64(1), out.Revoked)

	err = member.Rotate(t.Context())
	requireOAuthError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)

	_, err = admin.RevokeUser(t.Context(), 999999)
	requireOAuthError(t, err, http.StatusNotFound, authsdk.ErrorCodeNotFound)
}

// TestRegisterConflict verifies a duplicate username is refused.
func TestRegisterConflict(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	_, err := client.Register(t.Context(), adminUsername, "another-password")
	requireOAuthError(t, err, http.StatusConflict, authsdk.ErrorCodeConflict)

	_, err = client.Register(t.Context(), "dave", "short")
	requireOAuthError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
}
