package app

import "stock-engine/internal/core"

// Actor identifies who is performing a mutation.
// The zero Actor is the local operator (CLI, seed tool) and skips warehouse checks.
type Actor struct {
	UserID   int
	Username string
	Role     string
}

func (a Actor) isLocal() bool { return a.UserID == 0 }

func (a Actor) isAdmin() bool { return a.Role == core.RoleAdmin }

// userRef returns the user id for audit columns, nil for the local operator.
func (a Actor) userRef() *int {
	if a.isLocal() {
		return nil
	}
	id := a.UserID
	return &id
}
