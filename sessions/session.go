package sessions

import (
	"slices"

	"github.com/jrsteele09/go-auth-session/internal/utils"
)

// Roles the backend issues
const (
	RoleAdmin          = "ROLE_ADMIN"
	RoleEmployee       = "ROLE_EMPLOYEE"
	RoleCafeteriaStaff = "ROLE_CAFETERIA_STAFF"
)

// SessionUser is the authoritative identity of the signed-in user.
// It is persisted alongside the tokens as a display record so fields the token omits
// (the display name in particular) survive a restart.
type SessionUser struct {
	ID    *int64   `json:"id"`    // Numeric user/employee ID, nil when unknown
	Email string   `json:"email"` // Login email (the token subject)
	Name  string   `json:"name"`  // Display name, often only known from the login response
	Roles []string `json:"roles"` // Never nil
}

// HasRole is false for a nil user
func (u *SessionUser) HasRole(role string) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}

func (u *SessionUser) clone() *SessionUser {
	if u == nil {
		return nil
	}
	c := *u
	if u.ID != nil {
		c.ID = utils.Ptr(*u.ID)
	}
	c.Roles = utils.CloneStrings(u.Roles)
	return &c
}

// State is the snapshot delivered to subscribers
type State struct {
	Authenticated bool
	User          *SessionUser
}

func (s State) IsAdmin() bool {
	return s.User.HasRole(RoleAdmin)
}

// IsPrivileged is true for admins and cafeteria staff
func (s State) IsPrivileged() bool {
	return s.User.HasRole(RoleAdmin) || s.User.HasRole(RoleCafeteriaStaff)
}

// mergeUser fills the gaps in primary from fallback. Roles come from primary unless it has none.
func mergeUser(primary, fallback *SessionUser) *SessionUser {
	if primary == nil && fallback == nil {
		return nil
	}
	if primary == nil {
		primary = &SessionUser{}
	}
	if fallback == nil {
		fallback = &SessionUser{}
	}

	merged := &SessionUser{
		ID:    utils.Coalesce(primary.ID, fallback.ID),
		Email: utils.FirstNonEmpty(primary.Email, fallback.Email),
		Name:  utils.FirstNonEmpty(primary.Name, fallback.Name),
		Roles: primary.Roles,
	}
	if len(merged.Roles) == 0 {
		merged.Roles = fallback.Roles
	}
	merged.Roles = utils.CloneStrings(merged.Roles)
	return merged.clone()
}
