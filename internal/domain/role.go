package domain

import (
	"fmt"
	"strings"
)

// Role is the closed enumeration of platform roles. Authorization decisions
// are made against named RoleSet constants rather than ad hoc string lists.
type Role string

const (
	RoleAdmin         Role = "ADMIN"
	RoleCoder         Role = "CODER"
	RoleTLDevelopment Role = "TL_DEVELOPMENT"
	RoleTLSoftSkills  Role = "TL_SOFT_SKILLS"
	RoleTLEnglish     Role = "TL_ENGLISH"
	RoleStaff         Role = "STAFF"
)

// AllRoles lists every valid role, in display order.
var AllRoles = []Role{
	RoleAdmin,
	RoleCoder,
	RoleTLDevelopment,
	RoleTLSoftSkills,
	RoleTLEnglish,
	RoleStaff,
}

// ParseRole validates and normalizes a role string.
func ParseRole(raw string) (Role, error) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(raw)))
	for _, role := range AllRoles {
		if candidate == role {
			return role, nil
		}
	}
	return "", fmt.Errorf("%w: invalid role %q", ErrInvalidInput, raw)
}

// IsTeamLead reports whether the role belongs to the team-lead family.
func (r Role) IsTeamLead() bool {
	return r == RoleTLDevelopment || r == RoleTLSoftSkills || r == RoleTLEnglish
}

// RoleSet is a named closed group of roles sharing an authorization level.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s RoleSet) Contains(role Role) bool {
	_, ok := s[role]
	return ok
}

// Reusable role sets. Route guards reference these by name so a role change
// lands in one place.
var (
	AdminOnly        = NewRoleSet(RoleAdmin)
	TeamLeads        = NewRoleSet(RoleTLDevelopment, RoleTLSoftSkills, RoleTLEnglish)
	AdminOrTeamLeads = NewRoleSet(RoleAdmin, RoleTLDevelopment, RoleTLSoftSkills, RoleTLEnglish)
	Evaluators       = AdminOrTeamLeads
	AvailableViewers = NewRoleSet(RoleAdmin, RoleCoder, RoleTLDevelopment, RoleTLSoftSkills, RoleTLEnglish)
	ProjectViewers   = NewRoleSet(RoleAdmin, RoleCoder, RoleTLDevelopment, RoleTLSoftSkills, RoleTLEnglish, RoleStaff)
)
