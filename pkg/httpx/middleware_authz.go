package httpx

import (
	"net/http"
	"slices"
)

// RequireRole lets the request through only when the gate attached an
// identity holding one of roles. It must run after the gate.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteBearerError(w, http.StatusUnauthorized, "invalid_token", "authentication required")
				return
			}
			if !slices.Contains(roles, id.Role) {
				WriteJSON(w, http.StatusForbidden, map[string]string{
					"error":             "forbidden",
					"error_description": "role not permitted for this resource",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
