package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
)

// extractAccessToken reads the access token with cookie precedence: the
// `token` cookie wins over the Authorization header so browser sessions are
// not overridden by stale headers.
func extractAccessToken(r *http.Request) (string, bool) {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, prefix) {
		token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
		if token != "" {
			return token, true
		}
	}
	return "", false
}

// authenticate verifies the access token and attaches the caller identity
// to the request context. Verification is purely cryptographic; no user
// lookup happens here, so a deactivated user keeps read access until the
// token expires.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := extractAccessToken(r)
		if !ok {
			status, code, msg := mapDomainError(domain.ErrUnauthorized)
			logHTTPOperationError(r.Context(), "authenticate", status, code, msg, nil)
			writeError(w, status, code, msg)
			return
		}
		claims, err := h.codec.VerifyAccessToken(raw)
		if err != nil {
			writeMappedError(r.Context(), w, "authenticate", err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyIdentity, claims.Identity())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalAuthenticate attaches the identity when a valid token is present
// and lets the request through either way.
func (h *Handler) optionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw, ok := extractAccessToken(r); ok {
			if claims, err := h.codec.VerifyAccessToken(raw); err == nil {
				ctx := context.WithValue(r.Context(), ctxKeyIdentity, claims.Identity())
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole gates a route on a named role set. It assumes authenticate
// already ran; a missing identity is treated as unauthenticated rather than
// forbidden.
func requireRole(allowed domain.RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := identityFromContext(r.Context())
			if !ok {
				writeMappedError(r.Context(), w, "require_role", domain.ErrUnauthorized)
				return
			}
			if !allowed.Contains(identity.Role) {
				writeMappedError(r.Context(), w, "require_role", domain.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ownerOrAdmin allows a request when the path {userID} matches the caller,
// or the caller is an admin.
func ownerOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFromContext(r.Context())
		if !ok {
			writeMappedError(r.Context(), w, "owner_or_admin", domain.ErrUnauthorized)
			return
		}
		pathID, err := uuid.Parse(chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
			return
		}
		if identity.Role != domain.RoleAdmin && identity.UserID != pathID {
			writeMappedError(r.Context(), w, "owner_or_admin", domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// teamLeadOrAdmin admits admins unconditionally; team leads must scope the
// request to a team via the {teamID} path param or the `teamId` query param.
func teamLeadOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFromContext(r.Context())
		if !ok {
			writeMappedError(r.Context(), w, "team_lead_or_admin", domain.ErrUnauthorized)
			return
		}
		if identity.Role == domain.RoleAdmin {
			next.ServeHTTP(w, r)
			return
		}
		if !identity.Role.IsTeamLead() {
			writeMappedError(r.Context(), w, "team_lead_or_admin", domain.ErrForbidden)
			return
		}
		teamID := chi.URLParam(r, "teamID")
		if teamID == "" {
			teamID = strings.TrimSpace(r.URL.Query().Get("teamId"))
		}
		if teamID == "" {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "team id is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
