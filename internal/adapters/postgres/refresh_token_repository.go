package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
	"github.com/talentbase/auth-service/internal/ports"
	"gorm.io/gorm"
)

type refreshTokenRepository struct {
	db *gorm.DB
}

func (r *refreshTokenRepository) Save(ctx context.Context, params ports.RefreshTokenSaveParams) (domain.RefreshToken, error) {
	rec := newRefreshTokenModel(params)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.RefreshToken{}, err
	}
	return toDomainRefreshToken(rec), nil
}

// FindActiveByHash applies the active filter server-side so the row either
// exists and is exchangeable or the caller sees not-found, with no window
// for reading a stale revocation state.
func (r *refreshTokenRepository) FindActiveByHash(ctx context.Context, tokenHash string, now time.Time) (domain.RefreshToken, error) {
	var rec refreshTokenModel
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Where("revoked_at IS NULL").
		Where("expires_at > ?", now).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RefreshToken{}, domain.ErrNotFound
		}
		return domain.RefreshToken{}, err
	}
	return toDomainRefreshToken(rec), nil
}

// RotateTx revokes the consumed token and inserts its replacement in one
// transaction. The guarded UPDATE (revoked_at IS NULL) makes concurrent
// rotations of the same token race safely: exactly one wins, the rest see
// ErrNotFound.
func (r *refreshTokenRepository) RotateTx(ctx context.Context, oldHash string, revokedAt time.Time, replacement ports.RefreshTokenSaveParams) (domain.RefreshToken, error) {
	var result domain.RefreshToken
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&refreshTokenModel{}).
			Where("token_hash = ?", oldHash).
			Where("revoked_at IS NULL").
			Where("expires_at > ?", revokedAt).
			Updates(map[string]any{
				"revoked_at": revokedAt,
				"revoked_by": replacement.UserID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		rec := newRefreshTokenModel(replacement)
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		result = toDomainRefreshToken(rec)
		return nil
	})
	if err != nil {
		return domain.RefreshToken{}, err
	}
	return result, nil
}

func (r *refreshTokenRepository) RevokeByHash(ctx context.Context, tokenHash string, revokedBy uuid.UUID, revokedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("token_hash = ?", tokenHash).
		Where("revoked_at IS NULL").
		Updates(map[string]any{
			"revoked_at": revokedAt,
			"revoked_by": revokedBy,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID, revokedBy uuid.UUID, revokedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Updates(map[string]any{
			"revoked_at": revokedAt,
			"revoked_by": revokedBy,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *refreshTokenRepository) PurgeExpiredOrRevoked(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", olderThan).
		Or("revoked_at IS NOT NULL AND revoked_at < ?", olderThan).
		Delete(&refreshTokenModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func newRefreshTokenModel(params ports.RefreshTokenSaveParams) refreshTokenModel {
	return refreshTokenModel{
		UserID:    params.UserID,
		TokenHash: params.TokenHash,
		ExpiresAt: params.ExpiresAt,
		CreatedAt: params.CreatedAt,
		UserAgent: params.UserAgent,
		IPAddress: nullableString(params.IPAddress),
	}
}
