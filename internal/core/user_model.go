package core

import (
	"context"
	"time"
)

// RoleAdmin may access every warehouse.
const RoleAdmin = "admin"

// User represents an authenticated system user.
type User struct {
	ID           int
	Username     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

// UserService provides user lookup and credential checks.
type UserService interface {
	// GetByUsername finds an active user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)

	// Authenticate returns the active user whose bcrypt hash matches password.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// CreateUser hashes password with bcrypt and stores a new user.
	CreateUser(ctx context.Context, username, email, password, role string) (*User, error)

	// GrantWarehouse gives a user access to a warehouse. Granting twice is a no-op.
	GrantWarehouse(ctx context.Context, userID, warehouseID int) error
}

// WarehouseAccessChecker answers whether a user may mutate stock in a warehouse.
type WarehouseAccessChecker interface {
	HasWarehouseAccess(ctx context.Context, userID, warehouseID int) (bool, error)
}
