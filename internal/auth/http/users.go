package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/hearth/internal/auth/service"
	"github.com/aussiebroadwan/hearth/pkg/authsdk"
	"github.com/aussiebroadwan/hearth/pkg/httpx"
	"github.com/aussiebroadwan/hearth/pkg/slogx"
)

// UserHandler serves registration and the admin revoke endpoint.
type UserHandler struct {
	UserService  *service.UserService
	TokenService *service.TokenService
}

// HandleRegister godoc
//
//	@Summary		Register an account
//	@Description	Creates an account with the member role.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest		true	"username and password"
//	@Success		201		{object}	authsdk.RegisterResponse	"id, username, role"
//	@Failure		400		{object}	authsdk.ErrorResponse		"invalid username or password"
//	@Failure		409		{object}	authsdk.ErrorResponse		"username already taken"
//	@Failure		429		{object}	authsdk.ErrorResponse		"rate limited"
//	@Router			/v1/auth/register [post].
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	u, err := h.UserService.Register(r.Context(), req.Username, req.Password, "")
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
			"username must be 1-64 characters and password at least 8").WriteError(w)
		return
	case errors.Is(err, service.ErrUsernameTaken):
		authsdk.ErrUsernameTaken.WriteError(w)
		return
	case err != nil:
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
	})
}

// HandleRevokeUser godoc
//
//	@Summary		Revoke a user's sessions
//	@Description	Revokes every refresh token of the user. Access tokens already issued stay valid until they expire.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int							true	"user id"
//	@Success		200	{object}	authsdk.RevokeUserResponse	"user_id, revoked"
//	@Failure		403	{object}	authsdk.ErrorResponse		"caller is not an admin"
//	@Failure		404	{object}	authsdk.ErrorResponse		"unknown user"
//	@Failure		429	{object}	authsdk.ErrorResponse		"admin rate limit per subject"
//	@Router			/v1/admin/users/{id}/revoke [post].
func (h *UserHandler) HandleRevokeUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || userID <= 0 {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if _, err := h.UserService.GetUserByID(r.Context(), userID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			authsdk.ErrUserNotFound.WriteError(w)
			return
		}
		writeServiceError(w, err)
		return
	}

	n, err := h.TokenService.RevokeAll(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	admin, _ := httpx.IdentityFromContext(r.Context())
	slogx.Security(r.Context(), "admin_revoke",
		"admin_id", admin.SubjectID,
		"target_id", userID,
		"revoked", n,
	)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RevokeUserResponse{UserID: userID, Revoked: n})
}
