package ports

import (
	"time"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// AccessClaims is the payload embedded in signed access tokens and attached
// to requests after verification.
type AccessClaims struct {
	UserID    uuid.UUID   `json:"user_id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Name      string      `json:"name"`
	IssuedAt  time.Time   `json:"issued_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Identity converts verified claims into the request-scoped identity view.
func (c AccessClaims) Identity() domain.Identity {
	return domain.Identity{
		UserID: c.UserID,
		Email:  c.Email,
		Role:   c.Role,
		Name:   c.Name,
	}
}

// TokenCodec issues and verifies signed tokens and computes the opaque
// digest under which refresh tokens are stored. HashOpaque must be
// deterministic, one-way, and mechanically distinct from signing so that a
// store compromise does not leak usable tokens.
type TokenCodec interface {
	IssueAccessToken(claims AccessClaims) (string, error)
	IssueRefreshToken(userID uuid.UUID, issuedAt time.Time) (string, error)
	VerifyAccessToken(raw string) (AccessClaims, error)
	HashOpaque(raw string) string
	// ExpiryOf extracts the embedded expiry without signature verification.
	// Only called on tokens the service just issued itself, for storage
	// bookkeeping.
	ExpiryOf(raw string) (time.Time, error)
}
