package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HS256Verifier validates JWTs signed with HMAC-SHA256.
type HS256Verifier struct {
	key    []byte
	parser *jwt.Parser
}

// NewVerifierHS256 creates a verifier for tokens signed with the given key.
// Only HS256 is accepted, so "none" and asymmetric algorithms are rejected
// before the key is ever handed to the library.
func NewVerifierHS256(key []byte, opts VerifyOptions) *HS256Verifier {
	owned := make([]byte, len(key))
	copy(owned, key)

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	}
	if opts.Leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(opts.Leeway))
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}

	return &HS256Verifier{
		key:    owned,
		parser: jwt.NewParser(parserOpts...),
	}
}

// Verify validates the JWT string and returns its parsed Claims. Errors wrap
// one of ErrMalformed, ErrInvalidSig, ErrAlgMismatch, ErrIssuer, ErrExpired or
// ErrNotYetValid.
func (v *HS256Verifier) Verify(tokenStr string) (Claims, error) {
	var claims Claims
	token, err := v.parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return Claims{}, translate(err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidSig
	}

	if claims.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing jti", ErrMalformed)
	}
	if _, err := claims.SubjectID(); err != nil {
		return Claims{}, fmt.Errorf("%w: subject is not numeric", ErrMalformed)
	}

	return claims, nil
}

// translate maps library errors onto our sentinels. The library verifies the
// signature before validating claims, so an expired token only reports
// ErrExpired once its signature has checked out.
func translate(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrAlgMismatch, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", ErrIssuer, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", ErrNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
