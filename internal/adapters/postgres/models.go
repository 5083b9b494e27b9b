package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID         uuid.UUID `gorm:"column:id_user;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string    `gorm:"column:name"`
	Email          string    `gorm:"column:email"`
	PasswordHash   string    `gorm:"column:password_hash"`
	Role           string    `gorm:"column:role"`
	DocumentNumber string    `gorm:"column:document_number"`
	DocumentType   string    `gorm:"column:document_type"`
	Clan           *string   `gorm:"column:clan"`
	IsActive       bool      `gorm:"column:is_active"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type profileModel struct {
	ProfileID   uuid.UUID `gorm:"column:id_profile;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id"`
	GithubURL   *string   `gorm:"column:github_url"`
	Description *string   `gorm:"column:description"`
	Clan        *string   `gorm:"column:clan"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (profileModel) TableName() string { return "profiles" }

type refreshTokenModel struct {
	TokenID   uuid.UUID  `gorm:"column:id_token;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id"`
	TokenHash string     `gorm:"column:token_hash"`
	ExpiresAt time.Time  `gorm:"column:expires_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	RevokedBy *uuid.UUID `gorm:"column:revoked_by"`
	UserAgent string     `gorm:"column:user_agent"`
	IPAddress *string    `gorm:"column:ip_address"`
}

func (refreshTokenModel) TableName() string { return "refresh_tokens" }

type authOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (authOutboxModel) TableName() string { return "auth_outbox" }
