package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User is a registered identity. Usernames are unique, case-sensitive and
// immutable after registration. Users are never hard-deleted; moderation is
// done through the banned flag.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	Avatar       string    `json:"avatar" db:"avatar"`
	IsBanned     bool      `json:"banned" db:"is_banned"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PublicUser carries the fields of a user that are safe to embed in
// responses and broadcast payloads.
type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Avatar   string    `json:"avatar"`
	IsBanned bool      `json:"banned"`
}

// Public returns the externally visible projection of the user.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		Avatar:   u.Avatar,
		IsBanned: u.IsBanned,
	}
}
