package unit

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/adapters/security"
	"github.com/talentbase/auth-service/internal/domain"
	"github.com/talentbase/auth-service/internal/ports"
)

func newTestCodec(t *testing.T) *security.JWTCodec {
	t.Helper()
	codec, err := security.NewJWTCodec(testJWTSecret, time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

func TestJWTCodecRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := security.NewJWTCodec("", time.Hour, time.Hour); err == nil {
		t.Fatalf("empty secret must be rejected")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	issued := time.Now().UTC().Truncate(time.Second)
	in := ports.AccessClaims{
		UserID:   uuid.New(),
		Email:    "codec@example.com",
		Role:     domain.RoleTLDevelopment,
		Name:     "Codec User",
		IssuedAt: issued,
	}

	raw, err := codec.IssueAccessToken(in)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	out, err := codec.VerifyAccessToken(raw)
	if err != nil {
		t.Fatalf("verify access token: %v", err)
	}
	if out.UserID != in.UserID || out.Email != in.Email || out.Role != in.Role || out.Name != in.Name {
		t.Fatalf("claims mismatch: %+v vs %+v", out, in)
	}
	if !out.ExpiresAt.Equal(issued.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", out.ExpiresAt)
	}
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	past := time.Now().UTC().Add(-2 * time.Hour)
	raw, err := codec.IssueAccessToken(ports.AccessClaims{
		UserID:    uuid.New(),
		Email:     "old@example.com",
		Role:      domain.RoleCoder,
		IssuedAt:  past,
		ExpiresAt: past.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	if _, err := codec.VerifyAccessToken(raw); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestVerifyAccessTokenTampered(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	raw, err := codec.IssueAccessToken(ports.AccessClaims{
		UserID: uuid.New(),
		Email:  "tamper@example.com",
		Role:   domain.RoleCoder,
	})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	parts := strings.Split(raw, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]
	if _, err := codec.VerifyAccessToken(tampered); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected invalid error for tampered signature, got %v", err)
	}

	other, err := security.NewJWTCodec("a-different-secret", time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	if _, err := other.VerifyAccessToken(raw); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected invalid error across secrets, got %v", err)
	}
}

func TestRefreshTokenExpiryAndDigest(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	issued := time.Now().UTC().Truncate(time.Second)
	raw, err := codec.IssueRefreshToken(uuid.New(), issued)
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}

	expiry, err := codec.ExpiryOf(raw)
	if err != nil {
		t.Fatalf("expiry of: %v", err)
	}
	if !expiry.Equal(issued.Add(24 * time.Hour)) {
		t.Fatalf("unexpected refresh expiry %v", expiry)
	}

	digest := codec.HashOpaque(raw)
	if len(digest) != 64 {
		t.Fatalf("expected hex sha-256 digest, got %q", digest)
	}
	if digest == raw {
		t.Fatalf("digest must not equal the raw token")
	}
	if codec.HashOpaque(raw) != digest {
		t.Fatalf("digest must be deterministic")
	}

	if _, err := codec.ExpiryOf("not-a-token"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected invalid error for malformed token, got %v", err)
	}
}
