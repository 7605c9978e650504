package authsdk

import (
	"context"
	"net/http"
)

// Register creates an account with the default role.
func (c *SDKClient) Register(ctx context.Context, username, password string) (*RegisterResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/register", RegisterRequest{
		Username: username,
		Password: password,
	}, "")
	if err != nil {
		return nil, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges a username and password for a token pair.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	return c.requestToken(ctx, "/v1/auth/login", LoginRequest{
		Username: username,
		Password: password,
	})
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed whether or not the call succeeds.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.requestToken(ctx, "/v1/auth/refresh", RefreshRequest{RefreshToken: refreshToken})
}

func (c *SDKClient) requestToken(ctx context.Context, path string, body any) (*TokenResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}
