package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the canonical identity aggregate. Email is stored lowercase and is
// unique case-insensitively; document number is the secondary unique key.
type User struct {
	UserID         uuid.UUID
	Name           string
	Email          string
	Role           Role
	PasswordHash   string
	DocumentNumber string
	DocumentType   string
	Clan           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Profile holds the public-facing extension of a user record. A stub row is
// created at registration and filled in later via profile updates.
type Profile struct {
	ProfileID   uuid.UUID
	UserID      uuid.UUID
	GithubURL   string
	Description string
	Clan        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RefreshToken is one persisted row per issued refresh token. The raw token
// is never stored; TokenHash is its deterministic digest. A token is active
// iff RevokedAt is nil and ExpiresAt is in the future.
type RefreshToken struct {
	TokenID   uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
	RevokedBy *uuid.UUID
	UserAgent string
	IPAddress string
}

// Active reports whether the token may still be exchanged at the given instant.
// Persistence adapters must apply the equivalent filter server-side; this
// helper exists for the in-memory store and for tests.
func (t RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}

// Identity is the request-scoped authenticated caller, derived from a
// verified access token. It is never persisted.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   Role
	Name   string
}
