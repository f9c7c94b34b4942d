package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type warehouseAccess struct {
	pool *pgxpool.Pool
}

// NewWarehouseAccessChecker returns a checker backed by user_warehouse_access.
// Active admins pass for every warehouse; other users need an explicit grant.
func NewWarehouseAccessChecker(pool *pgxpool.Pool) WarehouseAccessChecker {
	return &warehouseAccess{pool: pool}
}

func (a *warehouseAccess) HasWarehouseAccess(ctx context.Context, userID, warehouseID int) (bool, error) {
	var ok bool
	err := a.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users u
			WHERE u.id = $1 AND u.is_active = true
			  AND (u.role = $3 OR EXISTS (
			      SELECT 1 FROM user_warehouse_access uwa
			      WHERE uwa.user_id = u.id AND uwa.warehouse_id = $2))
		)`,
		userID, warehouseID, RoleAdmin,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check warehouse access: %w", err)
	}
	return ok, nil
}

// CheckWarehouseAccess returns an *AccessDeniedError when the checker says no.
func CheckWarehouseAccess(ctx context.Context, checker WarehouseAccessChecker, userID int, warehouseIDs ...int) error {
	for _, wh := range sortedUnique(warehouseIDs) {
		ok, err := checker.HasWarehouseAccess(ctx, userID, wh)
		if err != nil {
			return err
		}
		if !ok {
			return &AccessDeniedError{UserID: userID, WarehouseID: wh}
		}
	}
	return nil
}
