package http

import (
	"net/http"

	"github.com/aussiebroadwan/hearth/internal/auth/service"
	"github.com/aussiebroadwan/hearth/pkg/authsdk"
	"github.com/aussiebroadwan/hearth/pkg/httpx"
)

// writeServiceError maps a TokenService error to its response. Anything that
// is not an *AuthError is a server error.
func writeServiceError(w http.ResponseWriter, err error) {
	switch service.KindOf(err) {
	case service.KindNotFound, service.KindExpired, service.KindAlreadyUsed:
		authsdk.InvalidGrant(service.KindOf(err).String()).WriteError(w)
	case service.KindInvalidCredentials:
		authsdk.ErrInvalidCredentials.WriteError(w)
	case service.KindStoreUnavailable:
		httpx.SetRetryAfter(w, 0)
		authsdk.ErrTemporarilyUnavailable.WriteError(w)
	default:
		authsdk.ErrServerError.WriteError(w)
	}
}
