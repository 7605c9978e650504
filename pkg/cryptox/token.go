package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

// ErrEmptyKey is returned when key material decodes to nothing.
var ErrEmptyKey = errors.New("cryptox: empty key material")

// GenerateToken creates a random token of size bytes, base64url-encoded
// without padding. Refresh tokens use TokenSize256.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns the SHA-256 fingerprint of a token, base64url
// encoded (43 chars). Only fingerprints are persisted, so a leaked database
// does not leak usable refresh tokens.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// DecodeKey turns configured key material into raw bytes. A "base64:" or
// "hex:" prefix selects the encoding, anything else is used verbatim.
// Surrounding whitespace is ignored so keys can live in files with a
// trailing newline.
func DecodeKey(material string) ([]byte, error) {
	material = strings.TrimSpace(material)

	var (
		key []byte
		err error
	)
	switch {
	case strings.HasPrefix(material, "base64:"):
		raw := strings.TrimPrefix(material, "base64:")
		key, err = base64.StdEncoding.DecodeString(raw)
		if err != nil {
			key, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
		}
	case strings.HasPrefix(material, "hex:"):
		key, err = hex.DecodeString(strings.TrimPrefix(material, "hex:"))
	default:
		key = []byte(material)
	}
	if err != nil {
		return nil, fmt.Errorf("cryptox: decode key: %w", err)
	}
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	return key, nil
}
