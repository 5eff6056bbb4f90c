// Package authz contains the role checks used by the HTTP layer. The
// predicates are fail-closed: nil claims or an unknown role always deny.
package authz

import (
	"github.com/google/uuid"

	"chatty-server/internal/models"
)

// Requirement describes who may perform an operation: a minimum role,
// optionally relaxed for the user acting on their own resource.
type Requirement struct {
	Role      string
	AllowSelf bool
}

// roleHierarchy orders roles by privilege. Roles absent from the map
// (including the empty string) satisfy nothing.
var roleHierarchy = map[string]int{
	models.RoleUser:  1,
	models.RoleAdmin: 2,
}

// HasRole reports whether the claims carry at least the given role.
func HasRole(claims *models.SessionClaims, role string) bool {
	if claims == nil {
		return false
	}
	have, ok := roleHierarchy[claims.Role]
	if !ok {
		return false
	}
	want, ok := roleHierarchy[role]
	if !ok {
		return false
	}
	return have >= want
}

// RequireRole returns models.ErrForbidden unless the claims satisfy the role.
func RequireRole(claims *models.SessionClaims, role string) error {
	if !HasRole(claims, role) {
		return models.ErrForbidden
	}
	return nil
}

// Authorize checks a requirement against the acting claims and the target
// resource owner. AllowSelf admits the owner regardless of role.
func Authorize(claims *models.SessionClaims, req Requirement, targetID uuid.UUID) error {
	if claims == nil {
		return models.ErrForbidden
	}
	if req.AllowSelf && claims.UserID == targetID {
		return nil
	}
	return RequireRole(claims, req.Role)
}
