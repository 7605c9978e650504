package httpx

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrNoCredential        = errors.New("httpx: no bearer credential")
	ErrMalformedCredential = errors.New("httpx: malformed authorization header")
)

// BearerToken extracts the credential from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively per RFC 6750.
func BearerToken(r *http.Request) (string, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return "", ErrNoCredential
	}

	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedCredential
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedCredential
	}
	return token, nil
}

// WriteBearerError writes an RFC 6750 challenge with a JSON body. desc must
// never contain the presented credential.
func WriteBearerError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	WriteJSON(w, status, map[string]string{
		"error":             code,
		"error_description": desc,
	})
}
