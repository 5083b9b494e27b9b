package postgres

import (
	"github.com/talentbase/auth-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Users         ports.UserRepository
	Profiles      ports.ProfileRepository
	RefreshTokens ports.RefreshTokenRepository
	Outbox        ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:         &userRepository{db: db},
		Profiles:      &profileRepository{db: db},
		RefreshTokens: &refreshTokenRepository{db: db},
		Outbox:        &outboxRepository{db: db},
	}
}
