package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/hearth/pkg/cryptox"
)

// DecodeErrorKind classifies why an access token was refused.
type DecodeErrorKind int

const (
	// Malformed tokens can't be parsed or are missing required claims.
	Malformed DecodeErrorKind = iota + 1
	// BadSignature covers tampered or forged tokens, including a pinned
	// algorithm mismatch and an issuer we did not mint.
	BadSignature
	// Expired tokens carried a valid signature but exp <= now.
	Expired
)

func (k DecodeErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case BadSignature:
		return "bad_signature"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// DecodeError is returned by Codec.Decode. Callers branch on Kind, the
// wrapped error is for logs only and never contains the token itself.
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "jwtx: decode: " + e.Kind.String()
	}
	return fmt.Sprintf("jwtx: decode: %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AccessCredential is the decoded form of a signed access token.
type AccessCredential struct {
	Token     string // encoded compact JWS, opaque to callers
	SubjectID int64
	Role      string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshCredential is a freshly minted refresh token. Token is random and
// never derived from the access token.
type RefreshCredential struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// CodecOptions configures a Codec.
type CodecOptions struct {
	Key        []byte
	KID        string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Leeway extends acceptance past exp. Anything revoking an access
	// token must keep it revoked until ExpiresAt plus Leeway.
	Leeway time.Duration
	Now    func() time.Time
}

// Codec issues and decodes credentials. The signing key is fixed for the
// life of the Codec, rotating it invalidates every outstanding token.
type Codec struct {
	signer     Signer
	verifier   Verifier
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
	now        func() time.Time
}

// NewCodec builds a Codec from opts, applying the default TTLs where unset.
func NewCodec(opts CodecOptions) (*Codec, error) {
	signer, err := NewSignerHS256(opts.KID, opts.Key)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	accessTTL := opts.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	refreshTTL := opts.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	return &Codec{
		signer: signer,
		verifier: NewVerifierHS256(opts.Key, VerifyOptions{
			Issuer: opts.Issuer,
			Leeway: opts.Leeway,
			Now:    now,
		}),
		issuer:     opts.Issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		leeway:     max(opts.Leeway, 0),
		now:        now,
	}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// Leeway reports how long past exp Decode still accepts a token.
func (c *Codec) Leeway() time.Duration { return c.leeway }

// Ready reports whether the codec holds usable key material.
func (c *Codec) Ready() bool { return c.signer.Validate() == nil }

// IssueAccess signs a new access token for the subject with a fresh jti.
func (c *Codec) IssueAccess(subjectID int64, role string) (AccessCredential, error) {
	now := c.now()
	claims := NewAccessClaims(subjectID, role, c.accessTTL, c.issuer, now)

	raw, err := c.signer.Sign(claims)
	if err != nil {
		return AccessCredential{}, fmt.Errorf("jwtx: sign access token: %w", err)
	}

	return AccessCredential{
		Token:     raw,
		SubjectID: subjectID,
		Role:      role,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Decode verifies raw and returns the credential it carries. Every failure is
// a *DecodeError.
func (c *Codec) Decode(raw string) (AccessCredential, error) {
	if raw == "" {
		return AccessCredential{}, &DecodeError{Kind: Malformed, Err: ErrMalformed}
	}

	claims, err := c.verifier.Verify(raw)
	if err != nil {
		return AccessCredential{}, &DecodeError{Kind: classify(err), Err: err}
	}

	subjectID, _ := claims.SubjectID() // already checked by the verifier
	cred := AccessCredential{
		Token:     raw,
		SubjectID: subjectID,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		cred.IssuedAt = claims.IssuedAt.Time
	}
	return cred, nil
}

// IssueRefresh mints a new opaque refresh token for userID.
func (c *Codec) IssueRefresh(userID int64) (RefreshCredential, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return RefreshCredential{}, err
	}

	now := c.now()
	return RefreshCredential{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(c.refreshTTL),
		CreatedAt: now,
	}, nil
}

func classify(err error) DecodeErrorKind {
	switch {
	case errors.Is(err, ErrExpired):
		return Expired
	case errors.Is(err, ErrInvalidSig), errors.Is(err, ErrAlgMismatch), errors.Is(err, ErrIssuer):
		return BadSignature
	default:
		return Malformed
	}
}
