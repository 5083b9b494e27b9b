package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/domain"
	"github.com/talentbase/auth-service/internal/ports"
)

// JWTCodec implements HS256 token issuance/verification plus the opaque
// digest used as the refresh-token storage key. The key is held at adapter
// level so the application layer stays crypto-library agnostic.
type JWTCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTCodec builds a codec from the configured signing secret and TTLs.
func NewJWTCodec(secret string, accessTTL, refreshTTL time.Duration) (*JWTCodec, error) {
	if secret == "" {
		return nil, errors.New("jwt signing secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = 7 * 24 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &JWTCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

type accessJWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

type refreshJWTClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func (c *JWTCodec) IssueAccessToken(claims ports.AccessClaims) (string, error) {
	issuedAt := claims.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}
	expiresAt := claims.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = issuedAt.Add(c.accessTTL)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessJWTClaims{
		UserID: claims.UserID.String(),
		Email:  claims.Email,
		Role:   string(claims.Role),
		Name:   claims.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	return token.SignedString(c.secret)
}

func (c *JWTCodec) IssueRefreshToken(userID uuid.UUID, issuedAt time.Time) (string, error) {
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshJWTClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.refreshTTL)),
		},
	})
	return token.SignedString(c.secret)
}

func (c *JWTCodec) VerifyAccessToken(raw string) (ports.AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &accessJWTClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.AccessClaims{}, domain.ErrTokenExpired
		}
		return ports.AccessClaims{}, domain.ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*accessJWTClaims)
	if !ok || !parsed.Valid {
		return ports.AccessClaims{}, domain.ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return ports.AccessClaims{}, domain.ErrTokenInvalid
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return ports.AccessClaims{}, domain.ErrTokenInvalid
	}

	return ports.AccessClaims{
		UserID:    userID,
		Email:     claims.Email,
		Role:      role,
		Name:      claims.Name,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

// HashOpaque is the deterministic storage digest for refresh tokens. SHA-256
// rather than the signing mechanism, so compromised rows cannot be replayed
// as tokens.
func (c *JWTCodec) HashOpaque(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ExpiryOf extracts the embedded expiry without verifying the signature.
// Used only on self-issued tokens at issuance time, where the bytes are
// trusted and the row's expires_at must mirror the claim.
func (c *JWTCodec) ExpiryOf(raw string) (time.Time, error) {
	var claims refreshJWTClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, domain.ErrTokenInvalid
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, domain.ErrTokenInvalid
	}
	return claims.ExpiresAt.Time.UTC(), nil
}
