package models

import (
	"strconv"
	"time"
)

// Role identifies what a user may do
type Role string

const (
	RoleParent     Role = "parent"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleParent, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// IsSupervisor returns true for raters that use the supervisor endpoints.
// Admins rate through the supervisor flow as well.
func (r Role) IsSupervisor() bool {
	return r == RoleSupervisor || r == RoleAdmin
}

// User represents an account on the backend
type User struct {
	ID           int       `json:"user_id"`
	Name         string    `json:"user_name"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phoneNumber"`
	Role         Role      `json:"role"`
	ProfilePic   string    `json:"profilePic"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// IDString returns the user id in the form it is persisted locally
func (u *User) IDString() string {
	return strconv.Itoa(u.ID)
}

// AuthResult is returned by login and register
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
