package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
)

// Me returns the caller's own record together with its profile when one
// exists.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (MeView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return MeView{}, err
	}

	view := MeView{PublicUser: toPublicUser(user)}
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err == nil {
		pv := toProfileView(profile)
		view.Profile = &pv
	} else if !errors.Is(err, domain.ErrNotFound) {
		return MeView{}, err
	}
	return view, nil
}

// ChangePassword verifies the current password before storing the new
// hash. Existing refresh tokens stay valid; immediate revocation on
// password change is an open question recorded in the design notes.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fmt.Errorf("%w: current and new password are required", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		return fmt.Errorf("%w: current password is incorrect", domain.ErrUnauthorized)
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := s.nowFn()
	if err := s.users.UpdatePassword(ctx, userID, passwordHash, now); err != nil {
		return err
	}

	_ = s.outbox.Enqueue(ctx, s.outboxEvent("user.password_changed", userID.String(), map[string]any{
		"user_id":    userID,
		"changed_at": now,
	}))
	return nil
}

// UpdateProfile upserts the caller's profile fields. Nil fields keep their
// stored values.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req ProfileUpdateRequest) (ProfileView, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return ProfileView{}, err
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return ProfileView{}, err
		}
		profile = domain.Profile{UserID: userID}
	}

	if req.GithubURL != nil {
		profile.GithubURL = *req.GithubURL
	}
	if req.Description != nil {
		profile.Description = *req.Description
	}
	if req.Clan != nil {
		profile.Clan = *req.Clan
	}
	profile.UpdatedAt = s.nowFn()

	saved, err := s.profiles.Upsert(ctx, profile)
	if err != nil {
		return ProfileView{}, err
	}
	return toProfileView(saved), nil
}
