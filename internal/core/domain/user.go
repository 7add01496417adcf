package domain

import (
	"slices"
	"time"
)

// Role is the authorization tier of a user. It is fixed at signup.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// User models an authenticated actor in the system.
//
// AllowedDevices is only meaningful for admins; a plain user carries the single
// device it signed up with. The set only ever grows.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	PasswordHash   string     `json:"-"`
	Role           Role       `json:"role"`
	AllowedDevices []string   `json:"allowed_devices"`
	ResetToken     string     `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasDevice reports whether deviceID is in the user's allowed-device set.
func (u *User) HasDevice(deviceID string) bool {
	return slices.Contains(u.AllowedDevices, deviceID)
}

// Principal is the caller identity resolved for an authorization decision.
// It is rebuilt from the credential store on every request and never cached.
type Principal struct {
	UserID         string
	Role           Role
	AllowedDevices []string
}

// PrincipalFor builds the authorization view of u.
func PrincipalFor(u *User) *Principal {
	return &Principal{
		UserID:         u.ID,
		Role:           u.Role,
		AllowedDevices: slices.Clone(u.AllowedDevices),
	}
}
