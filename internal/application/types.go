package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
)

type Config struct {
	DefaultRole          domain.Role
	DefaultDocumentType  string
	FailedLoginThreshold int
	LockoutDuration      time.Duration
}

// ClientMeta is the per-request audit metadata stored alongside refresh
// tokens. Not security-critical.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

type RegisterRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	DocumentNumber string `json:"documentNumber"`
	DocumentType   string `json:"documentType"`
	Clan           string `json:"clan"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PublicUser is the identity view safe to return to callers. It never
// carries the password hash.
type PublicUser struct {
	UserID         uuid.UUID   `json:"id_user"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Role           domain.Role `json:"role"`
	DocumentNumber string      `json:"document_number,omitempty"`
	DocumentType   string      `json:"document_type,omitempty"`
	Clan           string      `json:"clan,omitempty"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
}

// AuthResult is the outcome of register/login: the public identity view
// plus the freshly issued token pair.
type AuthResult struct {
	User         PublicUser `json:"user"`
	AccessToken  string     `json:"token"`
	RefreshToken string     `json:"refreshToken"`
}

// RefreshResult carries the rotated token pair.
type RefreshResult struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ProfileUpdateRequest struct {
	GithubURL   *string `json:"github_url"`
	Description *string `json:"description"`
	Clan        *string `json:"clan"`
}

type ProfileView struct {
	ProfileID   uuid.UUID `json:"id_profile"`
	UserID      uuid.UUID `json:"user_id"`
	GithubURL   string    `json:"github_url,omitempty"`
	Description string    `json:"description,omitempty"`
	Clan        string    `json:"clan,omitempty"`
}

// MeView is the authenticated caller's own record with its profile.
type MeView struct {
	PublicUser
	Profile *ProfileView `json:"profile,omitempty"`
}

type ListUsersQuery struct {
	Role     string
	Clan     string
	IsActive *bool
	Search   string
	Page     int
	Limit    int
}

type UserListPage struct {
	Users []PublicUser `json:"users"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Total int64        `json:"total"`
}

type CreateUserRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	DocumentNumber string `json:"documentNumber"`
	DocumentType   string `json:"documentType"`
	Clan           string `json:"clan"`
}

// CreateUserResult reports whether the initial password was derived from
// the document number so admins can tell the user to change it.
type CreateUserResult struct {
	PublicUser
	PasswordGenerated bool `json:"passwordGenerated"`
}

type UpdateUserRequest struct {
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	DocumentNumber *string `json:"documentNumber"`
	DocumentType   *string `json:"documentType"`
	Clan           *string `json:"clan"`
}

type UserStatsView struct {
	Total       int64            `json:"total"`
	Active      int64            `json:"active"`
	Inactive    int64            `json:"inactive"`
	CountByRole map[string]int64 `json:"by_role"`
}

func toPublicUser(u domain.User) PublicUser {
	return PublicUser{
		UserID:         u.UserID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		DocumentNumber: u.DocumentNumber,
		DocumentType:   u.DocumentType,
		Clan:           u.Clan,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
	}
}

func toProfileView(p domain.Profile) ProfileView {
	return ProfileView{
		ProfileID:   p.ProfileID,
		UserID:      p.UserID,
		GithubURL:   p.GithubURL,
		Description: p.Description,
		Clan:        p.Clan,
	}
}
