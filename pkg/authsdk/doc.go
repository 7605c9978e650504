/*
Package authsdk provides a client SDK for the Hearth authentication service.

# Overview

The package provides unauthenticated operations (via SDKClient) and
authenticated operations (via Session) with automatic token rotation.

Create an SDKClient to reach the public endpoints and start a session:

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Check service health
	health, err := client.GetLiveness(ctx)

	// Create an account and log in
	_, err = client.Register(ctx, "alice", "correct horse")
	session, err := client.AuthenticateWithPassword(ctx, "alice", "correct horse")

Use a Session for protected endpoints. When the access token is close to
expiry the session exchanges its refresh token for a new pair:

	me, err := session.Me(ctx)

	// Revoke the access token and every refresh token of the account
	err = session.Logout(ctx)

# Refresh rotation

Refresh tokens are single use. Each exchange returns a replacement and the
old one stops working. Presenting a refresh token a second time is treated as
theft: the server revokes every refresh token of the account and the call
fails with an OAuth2Error whose Code is invalid_grant and whose Description is
already_used. The only way back is a fresh login.

# Errors

Non-2xx responses are returned as *OAuth2Error:

	_, err := client.Refresh(ctx, oldToken)
	var oauthErr *authsdk.OAuth2Error
	if errors.As(err, &oauthErr) && oauthErr.Code == authsdk.ErrorCodeInvalidGrant {
		// log in again
	}

Retryable reports whether the server asked the caller to back off and try
again (429 and 503).
*/
package authsdk
