package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/application"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := application.ListUsersQuery{
		Role:   q.Get("role"),
		Clan:   q.Get("clan"),
		Search: q.Get("search"),
		Page:   parseIntDefault(q.Get("page"), 1),
		Limit:  parseIntDefault(q.Get("limit"), 20),
	}
	if raw := strings.TrimSpace(q.Get("isActive")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid isActive filter")
			return
		}
		query.IsActive = &active
	}

	res, err := h.service.ListUsers(r.Context(), query)
	if err != nil {
		writeMappedError(r.Context(), w, "list_users", err)
		return
	}
	writePaginated(w, http.StatusOK, res.Users, res.Page, res.Limit, res.Total)
}

func (h *Handler) listAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parseIntDefault(q.Get("page"), 1)
	limit := parseIntDefault(q.Get("limit"), 20)

	res, err := h.service.ListAvailableCoders(r.Context(), q.Get("search"), page, limit)
	if err != nil {
		writeMappedError(r.Context(), w, "list_available", err)
		return
	}
	writePaginated(w, http.StatusOK, res.Users, res.Page, res.Limit, res.Total)
}

func (h *Handler) userStats(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.UserStatistics(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "user_stats", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func pathUserID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	return id, err == nil
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
		return
	}

	res, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_user", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req application.CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_user", err)
		return
	}

	res, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_user", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
		return
	}

	var req application.UpdateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_user", err)
		return
	}

	res, err := h.service.UpdateUser(r.Context(), userID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_user", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) setUserStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
		return
	}
	identity, _ := identityFromContext(r.Context())

	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "set_user_status", err)
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "isActive is required")
		return
	}

	res, err := h.service.SetUserActive(r.Context(), userID, *req.IsActive, identity.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "set_user_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) resetUserPassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
		return
	}
	identity, _ := identityFromContext(r.Context())

	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "reset_user_password", err)
		return
	}

	if err := h.service.AdminResetPassword(r.Context(), userID, req.NewPassword, identity.UserID); err != nil {
		writeMappedError(r.Context(), w, "reset_user_password", err)
		return
	}
	writeMessage(w, http.StatusOK, "password reset")
}
