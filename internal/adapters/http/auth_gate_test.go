package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
)

func identityRequest(method, target string, identity *domain.Identity) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	if identity != nil {
		r = r.WithContext(context.WithValue(r.Context(), ctxKeyIdentity, *identity))
	}
	return r
}

func TestTeamLeadOrAdminGate(t *testing.T) {
	t.Parallel()

	var reached bool
	router := chi.NewRouter()
	router.With(teamLeadOrAdmin).Get("/teams/{teamID}/members", func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	router.With(teamLeadOrAdmin).Get("/reviews", func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name       string
		target     string
		identity   *domain.Identity
		wantStatus int
	}{
		{"no identity", "/reviews", nil, http.StatusUnauthorized},
		{"admin without team scope", "/reviews", &domain.Identity{UserID: uuid.New(), Role: domain.RoleAdmin}, http.StatusOK},
		{"coder rejected", "/reviews?teamId=t1", &domain.Identity{UserID: uuid.New(), Role: domain.RoleCoder}, http.StatusForbidden},
		{"staff rejected", "/reviews?teamId=t1", &domain.Identity{UserID: uuid.New(), Role: domain.RoleStaff}, http.StatusForbidden},
		{"team lead without team scope", "/reviews", &domain.Identity{UserID: uuid.New(), Role: domain.RoleTLEnglish}, http.StatusBadRequest},
		{"team lead with query scope", "/reviews?teamId=t1", &domain.Identity{UserID: uuid.New(), Role: domain.RoleTLDevelopment}, http.StatusOK},
		{"team lead with path scope", "/teams/t1/members", &domain.Identity{UserID: uuid.New(), Role: domain.RoleTLSoftSkills}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reached = false
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, identityRequest(http.MethodGet, tc.target, tc.identity))
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if wantReached := tc.wantStatus == http.StatusOK; reached != wantReached {
				t.Fatalf("handler reached = %v, want %v", reached, wantReached)
			}
		})
	}
}

func TestExtractAccessTokenPrecedence(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := extractAccessToken(r); ok {
		t.Fatalf("expected no token on bare request")
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	if raw, ok := extractAccessToken(r); !ok || raw != "header-token" {
		t.Fatalf("bearer extraction failed: %q %v", raw, ok)
	}

	// The cookie wins when both are present.
	r.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: "cookie-token"})
	if raw, ok := extractAccessToken(r); !ok || raw != "cookie-token" {
		t.Fatalf("cookie precedence failed: %q %v", raw, ok)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic abc123")
	if _, ok := extractAccessToken(r); ok {
		t.Fatalf("non-bearer scheme must be ignored")
	}
}
