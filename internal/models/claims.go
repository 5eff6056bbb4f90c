package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims are the standard JWT fields plus the user data embedded in a
// session token. The embedded role and avatar are a snapshot taken at issue
// time; validation re-resolves the user against current state, so a ban
// applied mid-lifetime still revokes the session.
type SessionClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Avatar   string    `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}
