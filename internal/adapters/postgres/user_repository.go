package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
	"github.com/talentbase/auth-service/internal/ports"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// CreateTx inserts the user, its profile stub, and the registration outbox
// event in one transaction. The unique indexes on email and document number
// are the final word on duplicates; racing inserts surface as ErrConflict.
func (r *userRepository) CreateTx(ctx context.Context, params ports.CreateUserTxParams, event ports.OutboxEvent) (domain.User, error) {
	var result domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := userModel{
			Name:           params.Name,
			Email:          params.Email,
			PasswordHash:   params.PasswordHash,
			Role:           string(params.Role),
			DocumentNumber: params.DocumentNumber,
			DocumentType:   params.DocumentType,
			Clan:           nullableString(params.Clan),
			IsActive:       true,
			CreatedAt:      params.RegisteredAt,
			UpdatedAt:      params.RegisteredAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: email or document number already registered", domain.ErrConflict)
			}
			return err
		}

		profile := profileModel{
			UserID:    rec.UserID,
			Clan:      nullableString(params.Clan),
			CreatedAt: params.RegisteredAt,
			UpdatedAt: params.RegisteredAt,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		payload := event.Payload
		if len(payload) == 0 {
			payload = []byte(`{}`)
		}
		outbox := authOutboxModel{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: rec.UserID.String(),
			Payload:      string(payload),
			CreatedAt:    event.OccurredAt,
		}
		if err := tx.Create(&outbox).Error; err != nil {
			return err
		}

		result = toDomainUser(rec)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("lower(email) = lower(?)", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("id_user = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByDocument(ctx context.Context, documentNumber string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("document_number = ?", documentNumber).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) List(ctx context.Context, filter ports.UserFilter, limit, offset int) (ports.UserPage, error) {
	query := r.db.WithContext(ctx).Model(&userModel{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Clan != "" {
		query = query.Where("clan = ?", filter.Clan)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return ports.UserPage{}, err
	}

	var rows []userModel
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return ports.UserPage{}, err
	}
	return toUserPage(rows, total), nil
}

func (r *userRepository) ListAvailableCoders(ctx context.Context, search string, limit, offset int) (ports.UserPage, error) {
	query := r.db.WithContext(ctx).Model(&userModel{}).
		Where("role = ?", string(domain.RoleCoder)).
		Where("is_active = TRUE")
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return ports.UserPage{}, err
	}

	var rows []userModel
	if err := query.Order("name ASC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return ports.UserPage{}, err
	}
	return toUserPage(rows, total), nil
}

func toUserPage(rows []userModel, total int64) ports.UserPage {
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, toDomainUser(row))
	}
	return ports.UserPage{Users: users, Total: total}
}

func (r *userRepository) Update(ctx context.Context, userID uuid.UUID, update ports.UserUpdate, updatedAt time.Time) (domain.User, error) {
	fields := map[string]any{"updated_at": updatedAt}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Email != nil {
		fields["email"] = *update.Email
	}
	if update.DocumentNumber != nil {
		fields["document_number"] = *update.DocumentNumber
	}
	if update.DocumentType != nil {
		fields["document_type"] = *update.DocumentType
	}
	if update.Clan != nil {
		fields["clan"] = nullableString(*update.Clan)
	}

	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id_user = ?", userID).
		Updates(fields)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.User{}, fmt.Errorf("%w: email or document number already registered", domain.ErrConflict)
		}
		return domain.User{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return r.GetByID(ctx, userID)
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id_user = ?", userID).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) SetActive(ctx context.Context, userID uuid.UUID, active bool, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id_user = ?", userID).
		Updates(map[string]any{
			"is_active":  active,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) Stats(ctx context.Context) (ports.UserStats, error) {
	stats := ports.UserStats{CountByRole: make(map[domain.Role]int64)}

	if err := r.db.WithContext(ctx).Model(&userModel{}).Count(&stats.Total).Error; err != nil {
		return ports.UserStats{}, err
	}
	if err := r.db.WithContext(ctx).Model(&userModel{}).Where("is_active = TRUE").Count(&stats.Active).Error; err != nil {
		return ports.UserStats{}, err
	}
	stats.Inactive = stats.Total - stats.Active

	var rows []struct {
		Role  string
		Count int64
	}
	if err := r.db.WithContext(ctx).Model(&userModel{}).
		Select("role, count(*) AS count").
		Group("role").
		Find(&rows).Error; err != nil {
		return ports.UserStats{}, err
	}
	for _, row := range rows {
		stats.CountByRole[domain.Role(row.Role)] = row.Count
	}
	return stats, nil
}
