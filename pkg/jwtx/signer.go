package jwtx

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	Validate() error
}

// NewSignerHS256 creates an HS256 signer from raw key bytes. The key must be
// at least MinKeySize bytes long.
func NewSignerHS256(kid string, key []byte) (Signer, error) {
	return newHS256Signer(kid, key)
}
