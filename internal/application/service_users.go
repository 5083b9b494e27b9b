package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
	"github.com/talentbase/auth-service/internal/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// ListUsers returns one page of the filtered user directory.
func (s *Service) ListUsers(ctx context.Context, query ListUsersQuery) (UserListPage, error) {
	filter := ports.UserFilter{
		Clan:     strings.TrimSpace(query.Clan),
		IsActive: query.IsActive,
		Search:   strings.TrimSpace(query.Search),
	}
	if raw := strings.TrimSpace(query.Role); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return UserListPage{}, err
		}
		filter.Role = string(role)
	}

	page, limit := normalizePage(query.Page, query.Limit)
	result, err := s.users.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return UserListPage{}, err
	}
	return toUserListPage(result, page, limit), nil
}

// ListAvailableCoders lists active coders for project staffing views.
func (s *Service) ListAvailableCoders(ctx context.Context, search string, page, limit int) (UserListPage, error) {
	page, limit = normalizePage(page, limit)
	result, err := s.users.ListAvailableCoders(ctx, strings.TrimSpace(search), limit, (page-1)*limit)
	if err != nil {
		return UserListPage{}, err
	}
	return toUserListPage(result, page, limit), nil
}

func toUserListPage(result ports.UserPage, page, limit int) UserListPage {
	users := make([]PublicUser, 0, len(result.Users))
	for _, u := range result.Users {
		users = append(users, toPublicUser(u))
	}
	return UserListPage{Users: users, Page: page, Limit: limit, Total: result.Total}
}

// GetUser returns the public view of one user.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return PublicUser{}, err
	}
	return toPublicUser(user), nil
}

// CreateUser is the admin path for provisioning accounts. When no password
// is supplied the document number is used as the initial password and the
// result flags it so the admin can tell the user to change it.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (CreateUserResult, error) {
	name := strings.TrimSpace(req.Name)
	document := strings.TrimSpace(req.DocumentNumber)
	if name == "" || document == "" {
		return CreateUserResult{}, fmt.Errorf("%w: name, email and document number are required", domain.ErrInvalidInput)
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return CreateUserResult{}, err
	}

	password := req.Password
	generated := password == ""
	if generated {
		password = document
	}
	if err := domain.ValidatePassword(password); err != nil {
		return CreateUserResult{}, err
	}

	role := s.cfg.DefaultRole
	if strings.TrimSpace(req.Role) != "" {
		role, err = domain.ParseRole(req.Role)
		if err != nil {
			return CreateUserResult{}, err
		}
	}
	documentType := strings.TrimSpace(req.DocumentType)
	if documentType == "" {
		documentType = s.cfg.DefaultDocumentType
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return CreateUserResult{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return CreateUserResult{}, err
	}
	if _, err := s.users.GetByDocument(ctx, document); err == nil {
		return CreateUserResult{}, fmt.Errorf("%w: document number already registered", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return CreateUserResult{}, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return CreateUserResult{}, fmt.Errorf("hash password: %w", err)
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
	}, s.outboxEvent("user.created", email, map[string]any{
		"email":      email,
		"role":       role,
		"created_at": now,
	}))
	if err != nil {
		return CreateUserResult{}, err
	}

	return CreateUserResult{PublicUser: toPublicUser(user), PasswordGenerated: generated}, nil
}

// UpdateUser applies the mutable identity fields. Role and password changes
// go through their dedicated operations.
func (s *Service) UpdateUser(ctx context.Context, userID uuid.UUID, req UpdateUserRequest) (PublicUser, error) {
	update := ports.UserUpdate{
		DocumentType: req.DocumentType,
		Clan:         req.Clan,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return PublicUser{}, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
		update.Name = &name
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return PublicUser{}, err
		}
		if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing.UserID != userID {
			return PublicUser{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return PublicUser{}, err
		}
		update.Email = &email
	}
	if req.DocumentNumber != nil {
		document := strings.TrimSpace(*req.DocumentNumber)
		if document == "" {
			return PublicUser{}, fmt.Errorf("%w: document number cannot be empty", domain.ErrInvalidInput)
		}
		if existing, err := s.users.GetByDocument(ctx, document); err == nil && existing.UserID != userID {
			return PublicUser{}, fmt.Errorf("%w: document number already registered", domain.ErrConflict)
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return PublicUser{}, err
		}
		update.DocumentNumber = &document
	}

	user, err := s.users.Update(ctx, userID, update, s.nowFn())
	if err != nil {
		return PublicUser{}, err
	}
	return toPublicUser(user), nil
}

// SetUserActive toggles the account flag. Deactivation also revokes every
// outstanding refresh token so the account cannot mint new access tokens
// once its last one expires.
func (s *Service) SetUserActive(ctx context.Context, userID uuid.UUID, active bool, actorID uuid.UUID) (PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return PublicUser{}, err
	}
	if user.IsActive == active {
		return toPublicUser(user), nil
	}

	now := s.nowFn()
	if err := s.users.SetActive(ctx, userID, active, now); err != nil {
		return PublicUser{}, err
	}
	user.IsActive = active
	user.UpdatedAt = now

	eventType := "user.activated"
	if !active {
		eventType = "user.deactivated"
		if _, err := s.refreshTokens.RevokeAllForUser(ctx, userID, actorID, now); err != nil {
			return PublicUser{}, err
		}
	}
	_ = s.outbox.Enqueue(ctx, s.outboxEvent(eventType, userID.String(), map[string]any{
		"user_id":    userID,
		"actor_id":   actorID,
		"changed_at": now,
	}))

	return toPublicUser(user), nil
}

// AdminResetPassword sets a new password without knowing the current one.
// Outstanding refresh tokens are revoked so a possibly compromised session
// cannot outlive the reset.
func (s *Service) AdminResetPassword(ctx context.Context, userID uuid.UUID, newPassword string, actorID uuid.UUID) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := s.nowFn()
	if err := s.users.UpdatePassword(ctx, userID, passwordHash, now); err != nil {
		return err
	}
	if _, err := s.refreshTokens.RevokeAllForUser(ctx, userID, actorID, now); err != nil {
		return err
	}

	_ = s.outbox.Enqueue(ctx, s.outboxEvent("user.password_reset", userID.String(), map[string]any{
		"user_id":  userID,
		"actor_id": actorID,
		"reset_at": now,
	}))
	return nil
}

// UserStatistics aggregates headline counts for the admin dashboard.
func (s *Service) UserStatistics(ctx context.Context) (UserStatsView, error) {
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return UserStatsView{}, err
	}
	byRole := make(map[string]int64, len(stats.CountByRole))
	for role, count := range stats.CountByRole {
		byRole[string(role)] = count
	}
	return UserStatsView{
		Total:       stats.Total,
		Active:      stats.Active,
		Inactive:    stats.Inactive,
		CountByRole: byRole,
	}, nil
}
