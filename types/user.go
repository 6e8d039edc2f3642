package types

import (
	"strings"
	"time"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleStaff UserRole = "staff"
)

// ParseUserRole normalizes profile roles. The legacy "user" role and unknown
// values map to staff.
func ParseUserRole(s string) UserRole {
	if strings.EqualFold(strings.TrimSpace(s), string(UserRoleAdmin)) {
		return UserRoleAdmin
	}
	return UserRoleStaff
}

func (r UserRole) IsValid() bool {
	return r == UserRoleAdmin || r == UserRoleStaff
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == UserRoleAdmin
}

// Profile mirrors a row of the profiles table.
type Profile struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

// ManagedUser is an auth account joined with its profile role.
type ManagedUser struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Role         UserRole   `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	InvitedAt    *time.Time `json:"invitedAt,omitempty"`
	LastSignInAt *time.Time `json:"lastSignInAt,omitempty"`
}
