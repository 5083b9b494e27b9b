package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	httpadapter "github.com/talentbase/auth-service/internal/adapters/http"
	"github.com/talentbase/auth-service/internal/adapters/memory"
	"github.com/talentbase/auth-service/internal/adapters/security"
	"github.com/talentbase/auth-service/internal/application"
	"github.com/talentbase/auth-service/internal/domain"
	"github.com/talentbase/auth-service/internal/ports"
)

type harness struct {
	server *httptest.Server
	codec  *security.JWTCodec
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	codec, err := security.NewJWTCodec("contract-test-secret", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	svc := application.NewService(application.Dependencies{
		Users:         &memUsers{byID: map[uuid.UUID]domain.User{}},
		Profiles:      &memProfiles{byUser: map[uuid.UUID]domain.Profile{}},
		RefreshTokens: memory.NewRefreshTokenStore(),
		Outbox:        noopOutbox{},
		Lockouts:      &memLockouts{state: map[string]ports.LockoutState{}},
		Hasher:        plainHasher{},
		Codec:         codec,
	})

	handler := httpadapter.NewHandler(svc, codec, httpadapter.CookieOptions{
		AccessMaxAge:  time.Hour,
		RefreshMaxAge: 24 * time.Hour,
	})
	server := httptest.NewServer(httpadapter.NewRouter(handler))
	t.Cleanup(server.Close)
	return &harness{server: server, codec: codec}
}

func (h *harness) do(t *testing.T, method, path string, body any, decorate func(*http.Request)) *http.Response {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, h.server.URL+path, payload)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return res
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func decodeEnvelope(t *testing.T, res *http.Response) envelope {
	t.Helper()
	defer res.Body.Close()
	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func cookieByName(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func registerUser(t *testing.T, h *harness, email, password, role string) (envelope, []*http.Cookie) {
	t.Helper()
	res := h.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name":           "Contract User",
		"email":          email,
		"password":       password,
		"role":           role,
		"documentNumber": "doc-" + uuid.NewString(),
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", res.StatusCode)
	}
	cookies := res.Cookies()
	return decodeEnvelope(t, res), cookies
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	res := h.do(t, http.MethodGet, "/api/health", nil, nil)
	env := decodeEnvelope(t, res)
	if res.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("health failed: status=%d env=%+v", res.StatusCode, env)
	}
}

func TestRegisterSetsAuthCookies(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	env, cookies := registerUser(t, h, "cookies@example.com", "secret123", "")
	if !env.Success {
		t.Fatalf("expected success envelope, got %+v", env)
	}

	var token, refresh *http.Cookie
	for _, c := range cookies {
		switch c.Name {
		case "token":
			token = c
		case "refreshToken":
			refresh = c
		}
	}
	if token == nil || refresh == nil {
		t.Fatalf("expected token and refreshToken cookies, got %v", cookies)
	}
	for _, c := range []*http.Cookie{token, refresh} {
		if !c.HttpOnly || c.Path != "/" {
			t.Fatalf("auth cookies must be httpOnly on path /: %+v", c)
		}
		if c.Secure {
			t.Fatalf("secure flag must stay off outside production: %+v", c)
		}
	}
}

func TestLoginFailureEnvelope(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	registerUser(t, h, "wrongpw@example.com", "secret123", "")

	res := h.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "wrongpw@example.com",
		"password": "not-the-password",
	}, nil)
	env := decodeEnvelope(t, res)
	if res.StatusCode != http.StatusUnauthorized || env.Success || env.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("unexpected login failure shape: status=%d env=%+v", res.StatusCode, env)
	}
}

func TestMeAcceptsCookieAndBearer(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	env, cookies := registerUser(t, h, "me@example.com", "secret123", "")

	res := h.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	fail := decodeEnvelope(t, res)
	if res.StatusCode != http.StatusUnauthorized || fail.Code != "UNAUTHORIZED" {
		t.Fatalf("anonymous me should be 401 UNAUTHORIZED, got %d %+v", res.StatusCode, fail)
	}

	res = h.do(t, http.MethodGet, "/api/auth/me", nil, func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	})
	if got := decodeEnvelope(t, res); res.StatusCode != http.StatusOK || !got.Success {
		t.Fatalf("cookie auth failed: %d %+v", res.StatusCode, got)
	}

	var auth struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &auth); err != nil {
		t.Fatalf("unmarshal register data: %v", err)
	}
	res = h.do(t, http.MethodGet, "/api/auth/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+auth.Token)
	})
	if got := decodeEnvelope(t, res); res.StatusCode != http.StatusOK || !got.Success {
		t.Fatalf("bearer auth failed: %d %+v", res.StatusCode, got)
	}

	res = h.do(t, http.MethodGet, "/api/auth/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage.token.value")
	})
	if got := decodeEnvelope(t, res); res.StatusCode != http.StatusUnauthorized || got.Code != "TOKEN_INVALID" {
		t.Fatalf("garbage bearer should be 401 TOKEN_INVALID, got %d %+v", res.StatusCode, got)
	}
}

func TestRefreshRotationViaCookies(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, cookies := registerUser(t, h, "rotate@example.com", "secret123", "")

	var oldRefresh *http.Cookie
	for _, c := range cookies {
		if c.Name == "refreshToken" {
			oldRefresh = c
		}
	}
	if oldRefresh == nil {
		t.Fatalf("missing refreshToken cookie")
	}

	res := h.do(t, http.MethodPost, "/api/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(oldRefresh)
	})
	if env := decodeEnvelope(t, res); res.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("refresh failed: %d %+v", res.StatusCode, env)
	}
	newRefresh := cookieByName(res, "refreshToken")
	if newRefresh == nil || newRefresh.Value == oldRefresh.Value {
		t.Fatalf("refresh must rotate the cookie")
	}

	// Replaying the consumed cookie must fail.
	res = h.do(t, http.MethodPost, "/api/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(oldRefresh)
	})
	if env := decodeEnvelope(t, res); res.StatusCode != http.StatusUnauthorized || env.Code != "UNAUTHORIZED" {
		t.Fatalf("replayed refresh should be 401 UNAUTHORIZED, got %d %+v", res.StatusCode, env)
	}

	// Body-supplied tokens work for non-browser clients.
	res = h.do(t, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": newRefresh.Value,
	}, nil)
	if env := decodeEnvelope(t, res); res.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("body refresh failed: %d %+v", res.StatusCode, env)
	}
}

func TestLogoutClearsCookiesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, cookies := registerUser(t, h, "logout@example.com", "secret123", "")

	logout := func() *http.Response {
		return h.do(t, http.MethodPost, "/api/auth/logout", nil, func(r *http.Request) {
			for _, c := range cookies {
				r.AddCookie(c)
			}
		})
	}

	res := logout()
	if env := decodeEnvelope(t, res); res.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("logout failed: %d %+v", res.StatusCode, env)
	}
	for _, name := range []string{"token", "refreshToken"} {
		cleared := cookieByName(res, name)
		if cleared == nil || cleared.MaxAge >= 0 {
			t.Fatalf("logout must clear cookie %s, got %+v", name, cleared)
		}
	}

	if res := logout(); res.StatusCode != http.StatusOK {
		t.Fatalf("repeated logout should stay 200, got %d", res.StatusCode)
	}
}

func TestRoleGateMatrix(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, adminCookies := registerUser(t, h, "admin@example.com", "secret123", "ADMIN")
	coderEnv, coderCookies := registerUser(t, h, "coder@example.com", "secret123", "CODER")
	_, leadCookies := registerUser(t, h, "lead@example.com", "secret123", "TL_DEVELOPMENT")

	withCookies := func(cookies []*http.Cookie) func(*http.Request) {
		return func(r *http.Request) {
			for _, c := range cookies {
				r.AddCookie(c)
			}
		}
	}

	// Unauthenticated listing is rejected before any role check.
	res := h.do(t, http.MethodGet, "/api/users/", nil, nil)
	if env := decodeEnvelope(t, res); res.StatusCode != http.StatusUnauthorized || env.Code != "UNAUTHORIZED" {
		t.Fatalf("anonymous list should be 401, got %d %+v", res.StatusCode, env)
	}

	// Listing and stats are admin-only: team leads and coders both bounce.
	for name, cookies := range map[string][]*http.Cookie{"coder": coderCookies, "team lead": leadCookies} {
		res = h.do(t, http.MethodGet, "/api/users/", nil, withCookies(cookies))
		if env := decodeEnvelope(t, res); res.StatusCode != http.StatusForbidden || env.Code != "FORBIDDEN" {
			t.Fatalf("%s list should be 403 FORBIDDEN, got %d %+v", name, res.StatusCode, env)
		}
		res = h.do(t, http.MethodGet, "/api/users/stats", nil, withCookies(cookies))
		if res.StatusCode != http.StatusForbidden {
			t.Fatalf("%s stats should be 403, got %d", name, res.StatusCode)
		}
	}

	res = h.do(t, http.MethodGet, "/api/users/", nil, withCookies(adminCookies))
	if env := decodeEnvelope(t, res); res.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("admin list failed: %d %+v", res.StatusCode, env)
	}
	res = h.do(t, http.MethodGet, "/api/users/stats", nil, withCookies(adminCookies))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("admin stats failed: %d", res.StatusCode)
	}

	// The availability list stays open to coders and team leads.
	res = h.do(t, http.MethodGet, "/api/users/available", nil, withCookies(coderCookies))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("coder availability list failed: %d", res.StatusCode)
	}
	res = h.do(t, http.MethodGet, "/api/users/available", nil, withCookies(leadCookies))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("team lead availability list failed: %d", res.StatusCode)
	}

	// ownerOrAdmin: own record works, someone else's does not.
	var coderUser struct {
		User struct {
			UserID uuid.UUID `json:"id_user"`
		} `json:"user"`
	}
	if err := json.Unmarshal(coderEnv.Data, &coderUser); err != nil {
		t.Fatalf("unmarshal coder data: %v", err)
	}
	res = h.do(t, http.MethodGet, "/api/users/"+coderUser.User.UserID.String(), nil, withCookies(coderCookies))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("owner read failed: %d", res.StatusCode)
	}
	res = h.do(t, http.MethodGet, "/api/users/"+uuid.NewString(), nil, withCookies(coderCookies))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("cross-user read should be 403, got %d", res.StatusCode)
	}
	res = h.do(t, http.MethodGet, "/api/users/not-a-uuid", nil, withCookies(coderCookies))
	if env := decodeEnvelope(t, res); res.StatusCode != http.StatusBadRequest || env.Code != "VALIDATION_ERROR" {
		t.Fatalf("malformed id should be 400 VALIDATION_ERROR, got %d %+v", res.StatusCode, env)
	}
	res = h.do(t, http.MethodGet, "/api/users/"+coderUser.User.UserID.String(), nil, withCookies(adminCookies))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("admin read of any user failed: %d", res.StatusCode)
	}
}

// --- minimal in-process dependencies ---

type memUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.User
}

func (m *memUsers) CreateTx(_ context.Context, params ports.CreateUserTxParams, _ ports.OutboxEvent) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, params.Email) || u.DocumentNumber == params.DocumentNumber {
			return domain.User{}, domain.ErrConflict
		}
	}
	user := domain.User{
		UserID:         uuid.New(),
		Name:           params.Name,
		Email:          params.Email,
		Role:           params.Role,
		PasswordHash:   params.PasswordHash,
		DocumentNumber: params.DocumentNumber,
		DocumentType:   params.DocumentType,
		Clan:           params.Clan,
		IsActive:       true,
		CreatedAt:      params.RegisteredAt,
		UpdatedAt:      params.RegisteredAt,
	}
	m.byID[user.UserID] = user
	return user, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByDocument(_ context.Context, documentNumber string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.DocumentNumber == documentNumber {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *memUsers) List(_ context.Context, filter ports.UserFilter, limit, offset int) (ports.UserPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]domain.User, 0, len(m.byID))
	for _, u := range m.byID {
		if filter.Role != "" && string(u.Role) != filter.Role {
			continue
		}
		users = append(users, u)
	}
	return ports.UserPage{Users: users, Total: int64(len(users))}, nil
}

func (m *memUsers) ListAvailableCoders(ctx context.Context, _ string, limit, offset int) (ports.UserPage, error) {
	return m.List(ctx, ports.UserFilter{Role: string(domain.RoleCoder)}, limit, offset)
}

func (m *memUsers) Update(_ context.Context, userID uuid.UUID, update ports.UserUpdate, updatedAt time.Time) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	u.UpdatedAt = updatedAt
	m.byID[userID] = u
	return u, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	m.byID[userID] = u
	return nil
}

func (m *memUsers) SetActive(_ context.Context, userID uuid.UUID, active bool, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = updatedAt
	m.byID[userID] = u
	return nil
}

func (m *memUsers) Stats(_ context.Context) (ports.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := ports.UserStats{CountByRole: map[domain.Role]int64{}}
	for _, u := range m.byID {
		stats.Total++
		if u.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		stats.CountByRole[u.Role]++
	}
	return stats, nil
}

type memProfiles struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]domain.Profile
}

func (m *memProfiles) GetByUserID(_ context.Context, userID uuid.UUID) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byUser[userID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) Upsert(_ context.Context, profile domain.Profile) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if profile.ProfileID == uuid.Nil {
		profile.ProfileID = uuid.New()
	}
	m.byUser[profile.UserID] = profile
	return profile, nil
}

type noopOutbox struct{}

func (noopOutbox) Enqueue(context.Context, ports.OutboxEvent) error { return nil }
func (noopOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}
func (noopOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }
func (noopOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}
func (noopOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

type memLockouts struct {
	mu    sync.Mutex
	state map[string]ports.LockoutState
}

func (m *memLockouts) Get(_ context.Context, key string) (ports.LockoutState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state[key], nil
}

func (m *memLockouts) RecordFailure(_ context.Context, key string, now time.Time, threshold int, window time.Duration) (ports.LockoutState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.state[key]
	state.FailedCount++
	if state.FailedCount >= threshold {
		until := now.Add(window)
		state.LockedUntil = &until
	}
	m.state[key] = state
	return state, nil
}

func (m *memLockouts) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key)
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "plain:"+password {
		return errors.New("hash mismatch")
	}
	return nil
}
