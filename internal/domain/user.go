package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "user"
)

// ParseRole converts a stored or user-supplied value into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

// CanModerate reports whether the role may curate content it does not own.
func (r Role) CanModerate() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleMember:
		return false
	}
	return false
}

// User is the local record for an external identity.
type User struct {
	ID          int64     `json:"id" db:"id"`
	ExternalID  string    `json:"external_id" db:"external_id"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Role        Role      `json:"role" db:"role"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role.CanModerate()
}
