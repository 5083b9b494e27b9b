package unit

import (
	"testing"

	"github.com/talentbase/auth-service/internal/domain"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		password  string
		wantError bool
	}{
		{name: "valid", password: "secret123", wantError: false},
		{name: "exactly minimum", password: "abc123", wantError: false},
		{name: "document number fallback", password: "10203040", wantError: false},
		{name: "too short", password: "abc12", wantError: true},
		{name: "empty", password: "", wantError: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := domain.ValidatePassword(tc.password)
			if tc.wantError && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantError && err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	if role, err := domain.ParseRole(" tl_development "); err != nil || role != domain.RoleTLDevelopment {
		t.Fatalf("expected TL_DEVELOPMENT, got %v %v", role, err)
	}
	if _, err := domain.ParseRole("SUPERUSER"); err == nil {
		t.Fatalf("unknown role should fail")
	}
}

func TestRoleSets(t *testing.T) {
	t.Parallel()

	if !domain.AdminOrTeamLeads.Contains(domain.RoleTLEnglish) {
		t.Fatalf("team leads belong to AdminOrTeamLeads")
	}
	if domain.AdminOnly.Contains(domain.RoleStaff) {
		t.Fatalf("staff must not pass the admin-only gate")
	}
	if !domain.ProjectViewers.Contains(domain.RoleStaff) {
		t.Fatalf("staff can view projects")
	}
	if domain.AvailableViewers.Contains(domain.RoleStaff) {
		t.Fatalf("staff cannot view the availability list")
	}
}
