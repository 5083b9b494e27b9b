package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
	"github.com/talentbase/auth-service/internal/ports"
)

// Register creates a user with its profile stub, then issues the first
// token pair. When no password is supplied the document number becomes the
// initial password; the effective password is validated either way before
// any write happens.
func (s *Service) Register(ctx context.Context, req RegisterRequest, meta ClientMeta) (AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	document := strings.TrimSpace(req.DocumentNumber)
	if name == "" || document == "" {
		return AuthResult{}, fmt.Errorf("%w: name, email and document number are required", domain.ErrInvalidInput)
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResult{}, err
	}

	password := req.Password
	if password == "" {
		password = document
	}
	if err := domain.ValidatePassword(password); err != nil {
		return AuthResult{}, err
	}

	role := s.cfg.DefaultRole
	if strings.TrimSpace(req.Role) != "" {
		role, err = domain.ParseRole(req.Role)
		if err != nil {
			return AuthResult{}, err
		}
	}
	documentType := strings.TrimSpace(req.DocumentType)
	if documentType == "" {
		documentType = s.cfg.DefaultDocumentType
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return AuthResult{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return AuthResult{}, err
	}
	if _, err := s.users.GetByDocument(ctx, document); err == nil {
		return AuthResult{}, fmt.Errorf("%w: document number already registered", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	user, err := s.users.CreateTx(ctx, ports.CreateUserTxParams{
		Name:           name,
		Email:          email,
		PasswordHash:   passwordHash,
		Role:           role,
		DocumentNumber: document,
		DocumentType:   documentType,
		Clan:           strings.TrimSpace(req.Clan),
		RegisteredAt:   now,
	}, s.outboxEvent("user.registered", email, map[string]any{
		"email":         email,
		"role":          role,
		"registered_at": now,
	}))
	if err != nil {
		return AuthResult{}, err
	}

	accessToken, refreshToken, err := s.issueTokenPair(ctx, user, meta)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		User:         toPublicUser(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Login verifies credentials and issues a token pair. Unknown email and
// wrong password surface as the same error so callers cannot enumerate
// accounts; a deactivated user gets a distinct message under the same
// status.
func (s *Service) Login(ctx context.Context, req LoginRequest, meta ClientMeta) (AuthResult, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return AuthResult{}, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResult{}, err
	}

	lockKey := "login:" + email
	lockState, err := s.lockouts.Get(ctx, lockKey)
	if err != nil {
		// Fail open: a cache outage must not block every login, but losing
		// brute-force protection has to be visible.
		slog.Default().WarnContext(ctx, "lockout state unavailable",
			"service", "auth-service",
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "warning",
			"error", err,
		)
	} else if lockState.LockedUntil != nil && lockState.LockedUntil.After(s.nowFn()) {
		return AuthResult{}, domain.ErrAccountLocked
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.recordLoginFailure(ctx, lockKey)
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return AuthResult{}, domain.ErrUserDeactivated
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.recordLoginFailure(ctx, lockKey)
		return AuthResult{}, domain.ErrInvalidCredentials
	}

	if err := s.lockouts.Clear(ctx, lockKey); err != nil {
		slog.Default().WarnContext(ctx, "failed to clear lockout state",
			"service", "auth-service",
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "warning",
			"error", err,
		)
	}

	accessToken, refreshToken, err := s.issueTokenPair(ctx, user, meta)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		User:         toPublicUser(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// recordLoginFailure bumps the lockout counter for a failed attempt. Counter
// updates are best-effort; an unreachable store is logged and the login error
// is returned to the caller regardless.
func (s *Service) recordLoginFailure(ctx context.Context, lockKey string) {
	if _, err := s.lockouts.RecordFailure(ctx, lockKey, s.nowFn(), s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration); err != nil {
		slog.Default().ErrorContext(ctx, "failed to update lockout state",
			"service", "auth-service",
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "failure",
			"error_code", "LOCKOUT_STATE_UNAVAILABLE",
			"error", err,
		)
	}
}

// Refresh exchanges an active refresh token for a new pair. The consumed
// token is revoked and its replacement inserted inside one transactional
// unit, so a replayed token can never be exchanged twice.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string, meta ClientMeta) (RefreshResult, error) {
	if strings.TrimSpace(rawRefreshToken) == "" {
		return RefreshResult{}, fmt.Errorf("%w: refresh token is required", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	oldHash := s.codec.HashOpaque(rawRefreshToken)
	record, err := s.refreshTokens.FindActiveByHash(ctx, oldHash, now)
	if err != nil {
		// Unknown, expired, and already-revoked tokens are indistinguishable
		// to the caller.
		return RefreshResult{}, domain.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return RefreshResult{}, domain.ErrUnauthorized
	}
	if !user.IsActive {
		return RefreshResult{}, domain.ErrUserDeactivated
	}

	newRefreshToken, err := s.codec.IssueRefreshToken(user.UserID, now)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("sign refresh token: %w", err)
	}
	expiresAt, err := s.codec.ExpiryOf(newRefreshToken)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("extract refresh expiry: %w", err)
	}

	if _, err := s.refreshTokens.RotateTx(ctx, oldHash, now, ports.RefreshTokenSaveParams{
		UserID:    user.UserID,
		TokenHash: s.codec.HashOpaque(newRefreshToken),
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
	}); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Lost the race against a concurrent rotation of the same token.
			return RefreshResult{}, domain.ErrUnauthorized
		}
		return RefreshResult{}, err
	}

	accessToken, err := s.codec.IssueAccessToken(ports.AccessClaims{
		UserID:   user.UserID,
		Email:    user.Email,
		Role:     user.Role,
		Name:     user.Name,
		IssuedAt: now,
	})
	if err != nil {
		return RefreshResult{}, fmt.Errorf("sign access token: %w", err)
	}

	return RefreshResult{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// Logout revokes the supplied refresh token. Missing or already-revoked
// tokens are tolerated: logout is advisory cleanup, not a security
// boundary, and must stay idempotent.
func (s *Service) Logout(ctx context.Context, rawRefreshToken string, userID uuid.UUID) error {
	if strings.TrimSpace(rawRefreshToken) == "" {
		return nil
	}
	_, err := s.refreshTokens.RevokeByHash(ctx, s.codec.HashOpaque(rawRefreshToken), userID, s.nowFn())
	if err != nil {
		return err
	}
	return nil
}
