package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeySize is the smallest HMAC key we accept (256 bits, matching the
// SHA-256 output size).
const MinKeySize = 32

var ErrWeakKey = fmt.Errorf("jwtx: signing key must be at least %d bytes", MinKeySize)

// HS256Signer implements the Signer interface using HMAC-SHA256.
type HS256Signer struct {
	kid string
	key []byte
	alg string
}

func newHS256Signer(kid string, key []byte) (*HS256Signer, error) {
	if len(key) < MinKeySize {
		return nil, ErrWeakKey
	}

	// Copy so the caller can't mutate key material after construction.
	owned := make([]byte, len(key))
	copy(owned, key)

	return &HS256Signer{
		kid: kid,
		key: owned,
		alg: jwt.SigningMethodHS256.Alg(),
	}, nil
}

func (s *HS256Signer) Alg() string { return s.alg }
func (s *HS256Signer) KID() string { return s.kid }

// Sign takes your claims and turns them into a signed JWT string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if s.kid != "" {
		t.Header["kid"] = s.kid
	}
	return t.SignedString(s.key)
}

// Validate does a quick sanity check to make sure we actually have a key.
func (s *HS256Signer) Validate() error {
	if len(s.key) == 0 {
		return errors.New("jwtx: nil HMAC key")
	}
	if len(s.key) < MinKeySize {
		return ErrWeakKey
	}
	return nil
}
