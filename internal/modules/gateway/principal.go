package gateway

import "github.com/gradflow/core/internal/models"

// Principal is the resolved identity of a realtime connection: a concrete
// user id plus role, or the anonymous zero value. It is assigned once at
// accept time and never changes for the connection's lifetime.
type Principal struct {
	UserID string
	Role   models.Role
}

// Anonymous is the principal attached to unauthenticated connections.
var Anonymous = Principal{}

// IsAnonymous reports whether p carries no concrete user identity.
func (p Principal) IsAnonymous() bool {
	return p.UserID == ""
}
