package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/application"
	"github.com/talentbase/auth-service/internal/domain"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}

	res, err := h.service.Register(r.Context(), req, clientMeta(r))
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}

	h.cookies.setAuthCookies(w, res.AccessToken, res.RefreshToken)
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}

	res, err := h.service.Login(r.Context(), req, clientMeta(r))
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}

	h.cookies.setAuthCookies(w, res.AccessToken, res.RefreshToken)
	writeSuccess(w, http.StatusOK, res)
}

// refreshTokenFromRequest reads the refresh token with cookie precedence,
// falling back to the request body for non-browser clients.
func refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(refreshTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err == nil {
		return body.RefreshToken
	}
	return ""
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	raw := refreshTokenFromRequest(r)

	res, err := h.service.Refresh(r.Context(), raw, clientMeta(r))
	if err != nil {
		writeMappedError(r.Context(), w, "refresh", err)
		return
	}

	h.cookies.setAuthCookies(w, res.AccessToken, res.RefreshToken)
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	revokedBy := uuid.Nil
	if identity, ok := identityFromContext(r.Context()); ok {
		revokedBy = identity.UserID
	}

	if err := h.service.Logout(r.Context(), refreshTokenFromRequest(r), revokedBy); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}

	h.cookies.clearAuthCookies(w)
	writeMessage(w, http.StatusOK, "logged out")
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMappedError(r.Context(), w, "me", domain.ErrUnauthorized)
		return
	}

	res, err := h.service.Me(r.Context(), identity.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "me", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMappedError(r.Context(), w, "change_password", domain.ErrUnauthorized)
		return
	}

	var req application.ChangePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "change_password", err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), identity.UserID, req); err != nil {
		writeMappedError(r.Context(), w, "change_password", err)
		return
	}
	writeMessage(w, http.StatusOK, "password updated")
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMappedError(r.Context(), w, "update_profile", domain.ErrUnauthorized)
		return
	}

	var req application.ProfileUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_profile", err)
		return
	}

	res, err := h.service.UpdateProfile(r.Context(), identity.UserID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_profile", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
