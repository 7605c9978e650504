package service

import (
	"errors"
	"fmt"
)

// AuthErrorKind classifies token-lifecycle failures.
type AuthErrorKind int

const (
	KindNotFound AuthErrorKind = iota + 1
	KindExpired
	KindAlreadyUsed
	KindStoreUnavailable
	KindInvalidCredentials
)

func (k AuthErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindExpired:
		return "expired"
	case KindAlreadyUsed:
		return "already_used"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindInvalidCredentials:
		return "invalid_credentials"
	default:
		return "unknown"
	}
}

// AuthError is returned by TokenService. Only KindStoreUnavailable is worth
// retrying; every other kind means the caller has to authenticate again.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth: " + e.Kind.String()
	}
	return fmt.Sprintf("auth: %s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any *AuthError of the same kind, so errors.Is works against the
// sentinels below.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether the failure is transient.
func (e *AuthError) Retryable() bool { return e.Kind == KindStoreUnavailable }

var (
	ErrNotFound           = &AuthError{Kind: KindNotFound}
	ErrExpired            = &AuthError{Kind: KindExpired}
	ErrAlreadyUsed        = &AuthError{Kind: KindAlreadyUsed}
	ErrStoreUnavailable   = &AuthError{Kind: KindStoreUnavailable}
	ErrInvalidCredentials = &AuthError{Kind: KindInvalidCredentials}
)

// Registration errors.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidRole   = errors.New("invalid role")
	ErrUsernameTaken = errors.New("username already taken")
)

// KindOf returns the kind of err, or zero if err is not an *AuthError.
func KindOf(err error) AuthErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

func unavailable(err error) error {
	var ae *AuthError
	if errors.As(err, &ae) {
		return err
	}
	return &AuthError{Kind: KindStoreUnavailable, Err: err}
}
