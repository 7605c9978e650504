package domain

import "time"

// TokenPair is what login and refresh hand back: a signed access credential
// and the opaque refresh credential that replaces the one presented.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string // always "Bearer"
	ExpiresIn        time.Duration
	TokenID          string // jti of AccessToken
	SubjectID        int64
	Role             string
	RefreshExpiresIn time.Duration
}

// RefreshToken models the stored refresh credential. Only the fingerprint of
// the opaque token is persisted.
type RefreshToken struct {
	ID        string // ULID
	UserID    int64
	TokenHash string // base64url SHA-256 of the opaque token
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the credential is past its expiry at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
