package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// StockStatus is the qualitative stock health of a product.
type StockStatus string

const (
	StatusGreen StockStatus = "Green"
	StatusAmber StockStatus = "Amber"
	StatusRed   StockStatus = "Red"
)

// DeriveStatus classifies an aggregate on-hand quantity against a reorder point.
func DeriveStatus(onHand, reorderPoint int) StockStatus {
	switch {
	case onHand > reorderPoint:
		return StatusGreen
	case onHand == reorderPoint:
		return StatusAmber
	default:
		return StatusRed
	}
}

// recomputeStatusTx rederives products.status from the ledger inside tx.
//
// The product row is locked before the aggregate is read. Every mutation path
// takes the same lock before it commits, so under READ COMMITTED the SUM below
// sees every committed change to this product's ledger rows and no two writers
// can race on the cached status.
func recomputeStatusTx(ctx context.Context, tx pgx.Tx, productID int) (StockStatus, error) {
	var reorderPoint int
	err := tx.QueryRow(ctx,
		"SELECT reorder_point FROM products WHERE id = $1 FOR UPDATE", productID,
	).Scan(&reorderPoint)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
		}
		return "", fmt.Errorf("failed to lock product %d: %w", productID, err)
	}

	var onHand int
	err = tx.QueryRow(ctx,
		"SELECT COALESCE(SUM(quantity), 0) FROM inventory WHERE product_id = $1", productID,
	).Scan(&onHand)
	if err != nil {
		return "", fmt.Errorf("failed to aggregate stock for product %d: %w", productID, err)
	}

	status := DeriveStatus(onHand, reorderPoint)
	_, err = tx.Exec(ctx,
		"UPDATE products SET status = $1 WHERE id = $2 AND status <> $1", string(status), productID)
	if err != nil {
		return "", fmt.Errorf("failed to update status for product %d: %w", productID, err)
	}
	return status, nil
}

// recomputeStatusesTx recomputes several products in ascending id order.
func recomputeStatusesTx(ctx context.Context, tx pgx.Tx, productIDs []int) error {
	for _, id := range sortedUnique(productIDs) {
		if _, err := recomputeStatusTx(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}
