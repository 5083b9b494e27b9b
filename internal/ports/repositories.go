package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
)

// CreateUserTxParams captures atomic user-creation inputs. Registration
// writes the user, its profile stub, and the outbox event in one transaction
// so a crash cannot leave a user without a profile or a missing event.
type CreateUserTxParams struct {
	Name           string
	Email          string
	PasswordHash   string
	Role           domain.Role
	DocumentNumber string
	DocumentType   string
	Clan           string
	RegisteredAt   time.Time
}

// UserFilter narrows user listings. Zero values mean "no filter".
type UserFilter struct {
	Role     string
	Clan     string
	IsActive *bool
	Search   string
}

// UserPage is one page of a filtered user listing.
type UserPage struct {
	Users []domain.User
	Total int64
}

// UserStats aggregates headline counts for the admin dashboard.
type UserStats struct {
	Total       int64
	Active      int64
	Inactive    int64
	CountByRole map[domain.Role]int64
}

// UserUpdate carries the mutable identity fields. Nil pointers leave the
// stored value untouched.
type UserUpdate struct {
	Name           *string
	Email          *string
	DocumentNumber *string
	DocumentType   *string
	Clan           *string
}

// UserRepository defines persistence operations for user identities.
type UserRepository interface {
	CreateTx(ctx context.Context, params CreateUserTxParams, event OutboxEvent) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	GetByDocument(ctx context.Context, documentNumber string) (domain.User, error)
	List(ctx context.Context, filter UserFilter, limit, offset int) (UserPage, error)
	ListAvailableCoders(ctx context.Context, search string, limit, offset int) (UserPage, error)
	Update(ctx context.Context, userID uuid.UUID, update UserUpdate, updatedAt time.Time) (domain.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error
	SetActive(ctx context.Context, userID uuid.UUID, active bool, updatedAt time.Time) error
	Stats(ctx context.Context) (UserStats, error)
}

// ProfileRepository owns the profile rows attached to users.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Profile, error)
	Upsert(ctx context.Context, profile domain.Profile) (domain.Profile, error)
}

// RefreshTokenSaveParams captures one issued refresh token plus its audit
// metadata. The raw token never reaches the repository.
type RefreshTokenSaveParams struct {
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UserAgent string
	IPAddress string
}

// RefreshTokenRepository is the single-use refresh-token store. The
// FindActiveByHash filter (revoked_at IS NULL AND expires_at > now) must run
// server-side so a token can be found active at most once per rotation, and
// RotateTx must pair the revoke with the replacement insert in one
// transactional unit.
type RefreshTokenRepository interface {
	Save(ctx context.Context, params RefreshTokenSaveParams) (domain.RefreshToken, error)
	FindActiveByHash(ctx context.Context, tokenHash string, now time.Time) (domain.RefreshToken, error)
	RotateTx(ctx context.Context, oldHash string, revokedAt time.Time, replacement RefreshTokenSaveParams) (domain.RefreshToken, error)
	RevokeByHash(ctx context.Context, tokenHash string, revokedBy uuid.UUID, revokedAt time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, revokedBy uuid.UUID, revokedAt time.Time) (int64, error)
	PurgeExpiredOrRevoked(ctx context.Context, olderThan time.Time) (int64, error)
}

// OutboxEvent is the write-side event payload prior to storage.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for domain events.
// The explicit contract enables the transactional outbox pattern without
// leaking storage details into the application layer.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
