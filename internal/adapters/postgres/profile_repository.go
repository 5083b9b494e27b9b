package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type profileRepository struct {
	db *gorm.DB
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Profile, error) {
	var rec profileModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Profile{}, domain.ErrNotFound
		}
		return domain.Profile{}, err
	}
	return toDomainProfile(rec), nil
}

// Upsert writes the full profile row keyed by user_id. Registration creates
// the stub, so conflicts are the normal path here.
func (r *profileRepository) Upsert(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	rec := profileModel{
		ProfileID:   profile.ProfileID,
		UserID:      profile.UserID,
		GithubURL:   nullableString(profile.GithubURL),
		Description: nullableString(profile.Description),
		Clan:        nullableString(profile.Clan),
		CreatedAt:   profile.CreatedAt,
		UpdatedAt:   profile.UpdatedAt,
	}
	if rec.ProfileID == uuid.Nil {
		rec.ProfileID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = profile.UpdatedAt
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"github_url", "description", "clan", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return domain.Profile{}, err
	}
	return r.GetByUserID(ctx, profile.UserID)
}
