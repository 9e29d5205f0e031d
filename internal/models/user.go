package models

import (
	"strings"
	"time"
)

// Role is the access level attached to a user.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleUser          Role = "user"
	RoleCybersecurity Role = "cybersecurity"
	RoleITOperations  Role = "it_operations"
	RoleDataScience   Role = "data_science"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleUser, RoleAdmin, RoleCybersecurity, RoleITOperations, RoleDataScience}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
