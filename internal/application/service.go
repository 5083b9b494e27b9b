package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
	"github.com/talentbase/auth-service/internal/ports"
)

// Service orchestrates the session-token lifecycle and user administration
// over the persistence and security ports.
type Service struct {
	cfg           Config
	users         ports.UserRepository
	profiles      ports.ProfileRepository
	refreshTokens ports.RefreshTokenRepository
	outbox        ports.OutboxRepository
	lockouts      ports.LockoutStore
	hasher        ports.PasswordHasher
	codec         ports.TokenCodec
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Users         ports.UserRepository
	Profiles      ports.ProfileRepository
	RefreshTokens ports.RefreshTokenRepository
	Outbox        ports.OutboxRepository
	Lockouts      ports.LockoutStore
	Hasher        ports.PasswordHasher
	Codec         ports.TokenCodec
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = domain.RoleCoder
	}
	if cfg.DefaultDocumentType == "" {
		cfg.DefaultDocumentType = "CC"
	}
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	return &Service{
		cfg:           cfg,
		users:         deps.Users,
		profiles:      deps.Profiles,
		refreshTokens: deps.RefreshTokens,
		outbox:        deps.Outbox,
		lockouts:      deps.Lockouts,
		hasher:        deps.Hasher,
		codec:         deps.Codec,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

// issueTokenPair signs an access token for the user and persists a fresh
// refresh-token row keyed by the opaque digest of the raw refresh token.
func (s *Service) issueTokenPair(ctx context.Context, user domain.User, meta ClientMeta) (string, string, error) {
	now := s.nowFn()
	accessToken, err := s.codec.IssueAccessToken(ports.AccessClaims{
		UserID:   user.UserID,
		Email:    user.Email,
		Role:     user.Role,
		Name:     user.Name,
		IssuedAt: now,
	})
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := s.codec.IssueRefreshToken(user.UserID, now)
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}
	expiresAt, err := s.codec.ExpiryOf(refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("extract refresh expiry: %w", err)
	}

	if _, err := s.refreshTokens.Save(ctx, ports.RefreshTokenSaveParams{
		UserID:    user.UserID,
		TokenHash: s.codec.HashOpaque(refreshToken),
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
	}); err != nil {
		return "", "", fmt.Errorf("persist refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

func (s *Service) outboxEvent(eventType, partitionKey string, payload map[string]any) ports.OutboxEvent {
	raw, _ := json.Marshal(payload)
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      raw,
		OccurredAt:   s.nowFn(),
	}
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}
