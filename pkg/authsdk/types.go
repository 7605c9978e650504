package authsdk

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the JSON body of every error response.
// Client code should use the OAuth2Error type from errors.go instead.
type ErrorResponse struct {
	// Error is the machine-readable error code
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Token Types
// ============================================================================

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"correct horse"`
}

// RefreshRequest is the body of POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	// AccessToken is the signed access token presented as a Bearer credential
	AccessToken string `json:"access_token"`

	// RefreshToken is the single-use opaque refresh token
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int `json:"expires_in"`

	// RefreshExpiresIn is the refresh token lifetime in seconds
	RefreshExpiresIn int `json:"refresh_expires_in"`
}

// ============================================================================
// User Types
// ============================================================================

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"correct horse"`
}

// RegisterResponse describes the created account.
type RegisterResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// MeResponse describes the caller's access token.
type MeResponse struct {
	SubjectID int64  `json:"subject_id"`
	Role      string `json:"role"`
	TokenID   string `json:"token_id"`
	ExpiresAt int64  `json:"expires_at"` // epoch time in seconds
}

// RevokeUserResponse is returned by the admin revoke endpoint.
type RevokeUserResponse struct {
	UserID  int64 `json:"user_id"`
	Revoked int64 `json:"revoked"` // refresh tokens revoked
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Signer indicates whether signing key material is loaded
	Signer string `json:"signer"`

	// Redis indicates the shared store status, omitted when not configured
	Redis string `json:"redis,omitempty"`
}
