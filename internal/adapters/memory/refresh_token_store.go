package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
	"github.com/talentbase/auth-service/internal/ports"
)

// RefreshTokenStore is the in-memory reference implementation of the
// refresh-token repository. It backs tests and single-process deployments
// and mirrors the Postgres adapter's semantics: the active filter and the
// revoke-then-insert rotation both run under one lock, so a token is found
// active at most once per rotation.
type RefreshTokenStore struct {
	mu     sync.Mutex
	byHash map[string]domain.RefreshToken
}

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{byHash: make(map[string]domain.RefreshToken)}
}

func (s *RefreshTokenStore) Save(_ context.Context, params ports.RefreshTokenSaveParams) (domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := tokenFromParams(params)
	s.byHash[token.TokenHash] = token
	return token, nil
}

func (s *RefreshTokenStore) FindActiveByHash(_ context.Context, tokenHash string, now time.Time) (domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.byHash[tokenHash]
	if !ok || !token.Active(now) {
		return domain.RefreshToken{}, domain.ErrNotFound
	}
	return token, nil
}

func (s *RefreshTokenStore) RotateTx(_ context.Context, oldHash string, revokedAt time.Time, replacement ports.RefreshTokenSaveParams) (domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byHash[oldHash]
	if !ok || !old.Active(revokedAt) {
		return domain.RefreshToken{}, domain.ErrNotFound
	}
	old.RevokedAt = &revokedAt
	revokedBy := replacement.UserID
	old.RevokedBy = &revokedBy
	s.byHash[oldHash] = old

	token := tokenFromParams(replacement)
	s.byHash[token.TokenHash] = token
	return token, nil
}

func (s *RefreshTokenStore) RevokeByHash(_ context.Context, tokenHash string, revokedBy uuid.UUID, revokedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.byHash[tokenHash]
	if !ok || token.RevokedAt != nil {
		return false, nil
	}
	token.RevokedAt = &revokedAt
	token.RevokedBy = &revokedBy
	s.byHash[tokenHash] = token
	return true, nil
}

func (s *RefreshTokenStore) RevokeAllForUser(_ context.Context, userID uuid.UUID, revokedBy uuid.UUID, revokedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var revoked int64
	for hash, token := range s.byHash {
		if token.UserID != userID || token.RevokedAt != nil {
			continue
		}
		at := revokedAt
		by := revokedBy
		token.RevokedAt = &at
		token.RevokedBy = &by
		s.byHash[hash] = token
		revoked++
	}
	return revoked, nil
}

func (s *RefreshTokenStore) PurgeExpiredOrRevoked(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for hash, token := range s.byHash {
		expired := token.ExpiresAt.Before(olderThan)
		revoked := token.RevokedAt != nil && token.RevokedAt.Before(olderThan)
		if expired || revoked {
			delete(s.byHash, hash)
			purged++
		}
	}
	return purged, nil
}

func tokenFromParams(params ports.RefreshTokenSaveParams) domain.RefreshToken {
	return domain.RefreshToken{
		TokenID:   uuid.New(),
		UserID:    params.UserID,
		TokenHash: params.TokenHash,
		ExpiresAt: params.ExpiresAt,
		CreatedAt: params.CreatedAt,
		UserAgent: params.UserAgent,
		IPAddress: params.IPAddress,
	}
}
