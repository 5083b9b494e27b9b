package unit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/adapters/memory"
	"github.com/talentbase/auth-service/internal/adapters/security"
	"github.com/talentbase/auth-service/internal/application"
	"github.com/talentbase/auth-service/internal/domain"
	"github.com/talentbase/auth-service/internal/ports"
)

const testJWTSecret = "unit-test-secret"

type fixture struct {
	service       *application.Service
	users         *fakeUsers
	profiles      *fakeProfiles
	refreshTokens *memory.RefreshTokenStore
	outbox        *fakeOutbox
	lockouts      *fakeLockouts
	codec         *security.JWTCodec
}

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func defaultTestConfig() application.Config {
	return application.Config{
		DefaultRole:          domain.RoleCoder,
		DefaultDocumentType:  "CC",
		FailedLoginThreshold: 5,
		LockoutDuration:      30 * time.Minute,
	}
}

func newFixtureWithConfig(cfg application.Config) *fixture {
	users := &fakeUsers{
		byID: make(map[uuid.UUID]domain.User),
	}
	profiles := &fakeProfiles{byUser: make(map[uuid.UUID]domain.Profile)}
	refreshTokens := memory.NewRefreshTokenStore()
	outbox := &fakeOutbox{}
	lockouts := &fakeLockouts{state: map[string]ports.LockoutState{}}
	codec, err := security.NewJWTCodec(testJWTSecret, time.Hour, 24*time.Hour)
	if err != nil {
		panic(err)
	}

	svc := application.NewService(application.Dependencies{
		Config:        cfg,
		Users:         users,
		Profiles:      profiles,
		RefreshTokens: refreshTokens,
		Outbox:        outbox,
		Lockouts:      lockouts,
		Hasher:        &fakeHasher{},
		Codec:         codec,
	})

	return &fixture{
		service:       svc,
		users:         users,
		profiles:      profiles,
		refreshTokens: refreshTokens,
		outbox:        outbox,
		lockouts:      lockouts,
		codec:         codec,
	}
}

type fakeUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.User
}

func (f *fakeUsers) CreateTx(_ context.Context, params ports.CreateUserTxParams, _ ports.OutboxEvent) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
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
	f.byID[user.UserID] = user
	return user, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByDocument(_ context.Context, documentNumber string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.DocumentNumber == documentNumber {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context, filter ports.UserFilter, limit, offset int) (ports.UserPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listLocked(filter, limit, offset), nil
}

func (f *fakeUsers) listLocked(filter ports.UserFilter, limit, offset int) ports.UserPage {
	matched := make([]domain.User, 0)
	for _, u := range f.byID {
		if filter.Role != "" && string(u.Role) != filter.Role {
			continue
		}
		if filter.Clan != "" && u.Clan != filter.Clan {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(u.Name), strings.ToLower(filter.Search)) &&
			!strings.Contains(strings.ToLower(u.Email), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, u)
	}
	return pageOf(matched, limit, offset)
}

func (f *fakeUsers) ListAvailableCoders(_ context.Context, search string, limit, offset int) (ports.UserPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	active := true
	return f.listLocked(ports.UserFilter{
		Role:     string(domain.RoleCoder),
		IsActive: &active,
		Search:   search,
	}, limit, offset), nil
}

func pageOf(users []domain.User, limit, offset int) ports.UserPage {
	total := int64(len(users))
	if offset >= len(users) {
		return ports.UserPage{Total: total}
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}
	return ports.UserPage{Users: users[offset:end], Total: total}
}

func (f *fakeUsers) Update(_ context.Context, userID uuid.UUID, update ports.UserUpdate, updatedAt time.Time) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.DocumentNumber != nil {
		u.DocumentNumber = *update.DocumentNumber
	}
	if update.DocumentType != nil {
		u.DocumentType = *update.DocumentType
	}
	if update.Clan != nil {
		u.Clan = *update.Clan
	}
	u.UpdatedAt = updatedAt
	f.byID[userID] = u
	return u, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	f.byID[userID] = u
	return nil
}

func (f *fakeUsers) SetActive(_ context.Context, userID uuid.UUID, active bool, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = updatedAt
	f.byID[userID] = u
	return nil
}

func (f *fakeUsers) Stats(_ context.Context) (ports.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := ports.UserStats{CountByRole: make(map[domain.Role]int64)}
	for _, u := range f.byID {
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

type fakeProfiles struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]domain.Profile
}

func (f *fakeProfiles) GetByUserID(_ context.Context, userID uuid.UUID) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byUser[userID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Upsert(_ context.Context, profile domain.Profile) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if profile.ProfileID == uuid.Nil {
		profile.ProfileID = uuid.New()
	}
	f.byUser[profile.UserID] = profile
	return profile, nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.EventType)
	}
	return types
}

func (f *fakeOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

type fakeLockouts struct {
	mu      sync.Mutex
	state   map[string]ports.LockoutState
	failErr error
}

// failWith makes every store call error, simulating a cache outage.
func (f *fakeLockouts) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

func (f *fakeLockouts) Get(_ context.Context, key string) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return ports.LockoutState{}, f.failErr
	}
	return f.state[key], nil
}

func (f *fakeLockouts) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return ports.LockoutState{}, f.failErr
	}
	state := f.state[key]
	state.FailedCount++
	if state.FailedCount >= threshold {
		until := now.Add(lockoutWindow)
		state.LockedUntil = &until
	}
	f.state[key] = state
	return state, nil
}

func (f *fakeLockouts) Clear(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	delete(f.state, key)
	return nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("hash mismatch")
	}
	return nil
}
