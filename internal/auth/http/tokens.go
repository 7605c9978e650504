package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/hearth/internal/auth/domain"
	"github.com/aussiebroadwan/hearth/internal/auth/service"
	"github.com/aussiebroadwan/hearth/pkg/authsdk"
	"github.com/aussiebroadwan/hearth/pkg/httpx"
	"github.com/aussiebroadwan/hearth/pkg/slogx"
)

// TokenHandler serves login, refresh and logout.
type TokenHandler struct {
	TokenService *service.TokenService
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Verifies a username and password and issues an access token and a single-use refresh token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"credentials"
//	@Success		200		{object}	authsdk.TokenResponse	"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate limited"
//	@Failure		503		{object}	authsdk.ErrorResponse	"store unavailable"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/v1/auth/login [post].
func (h *TokenHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeTokenPair(w, pair)
}

// HandleRefresh godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Exchanges a refresh token for a new pair. The presented token is consumed.
//	@Description	Presenting a token that was already exchanged revokes every refresh token of the account.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	true	"refresh token"
//	@Success		200		{object}	authsdk.TokenResponse	"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_grant with not_found, expired or already_used"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate limited"
//	@Failure		503		{object}	authsdk.ErrorResponse	"store unavailable"
//	@Router			/v1/auth/refresh [post].
func (h *TokenHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.Exchange(r.Context(), req.RefreshToken)
	if err != nil {
		slogx.FromContext(r.Context()).Info("refresh refused", "reason", service.KindOf(err).String())
		writeServiceError(w, err)
		return
	}
	writeTokenPair(w, pair)
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the presented access token until it expires and every refresh token of the account.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"missing or invalid access token"
//	@Failure		503	{object}	authsdk.ErrorResponse	"store unavailable"
//	@Router			/v1/auth/logout [post].
func (h *TokenHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken, "authentication required")
		return
	}

	if err := h.TokenService.Logout(r.Context(), id.SubjectID, id.TokenID, id.ExpiresAt); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe godoc
//
//	@Summary		Describe the caller
//	@Description	Returns the identity carried by the presented access token.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse		"subject_id, role, token_id, expires_at"
//	@Failure		401	{object}	authsdk.ErrorResponse	"missing, malformed or expired access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"revoked or forged access token"
//	@Router			/v1/auth/me [get].
func (h *TokenHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken, "authentication required")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		SubjectID: id.SubjectID,
		Role:      id.Role,
		TokenID:   id.TokenID,
		ExpiresAt: id.ExpiresAt.Unix(),
	})
}

func writeTokenPair(w http.ResponseWriter, pair domain.TokenPair) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        pair.TokenType,
		ExpiresIn:        int(pair.ExpiresIn / time.Second),
		RefreshExpiresIn: int(pair.RefreshExpiresIn / time.Second),
	})
}
