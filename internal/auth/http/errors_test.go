package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/hearth/internal/auth/service"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       string
		desc       string
		retryAfter bool
	}{
		{"not found", service.ErrNotFound, http.StatusUnauthorized, "invalid_grant", "not_found", false},
		{"expired", service.ErrExpired, http.StatusUnauthorized, "invalid_grant", "expired", false},
		{"already used", fmt.Errorf("exchange: %w", service.ErrAlreadyUsed), http.StatusUnauthorized, "invalid_grant", "already_used", false},
		{"bad password", service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_grant", "invalid credentials", false},
		{"store down", &service.AuthError{Kind: service.KindStoreUnavailable, Err: errors.New("timeout")}, http.StatusServiceUnavailable, "temporarily_unavailable", "", true},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "server_error", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)

			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			require.Equal(t, tt.code, body["error"])
			if tt.desc != "" {
				require.Equal(t, tt.desc, body["error_description"])
			}
			// Internal details never reach the client
			require.NotContains(t, body["error_description"], "timeout")
			require.NotContains(t, body["error_description"], "boom")

			if tt.retryAfter {
				require.Equal(t, "1", rec.Header().Get("Retry-After"))
			} else {
				require.Empty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}
