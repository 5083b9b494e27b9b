package postgres

import (
	"errors"
	"strings"

	"github.com/talentbase/auth-service/internal/domain"
	"gorm.io/gorm"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		UserID:         row.UserID,
		Name:           row.Name,
		Email:          row.Email,
		Role:           domain.Role(row.Role),
		PasswordHash:   row.PasswordHash,
		DocumentNumber: row.DocumentNumber,
		DocumentType:   row.DocumentType,
		Clan:           derefString(row.Clan),
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func toDomainProfile(row profileModel) domain.Profile {
	return domain.Profile{
		ProfileID:   row.ProfileID,
		UserID:      row.UserID,
		GithubURL:   derefString(row.GithubURL),
		Description: derefString(row.Description),
		Clan:        derefString(row.Clan),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func toDomainRefreshToken(row refreshTokenModel) domain.RefreshToken {
	return domain.RefreshToken{
		TokenID:   row.TokenID,
		UserID:    row.UserID,
		TokenHash: row.TokenHash,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
		RevokedAt: row.RevokedAt,
		RevokedBy: row.RevokedBy,
		UserAgent: row.UserAgent,
		IPAddress: derefString(row.IPAddress),
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
