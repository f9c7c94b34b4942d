package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// beginTx opens a READ COMMITTED transaction. Correctness of the ledger relies
// on explicit row locks (SELECT ... FOR UPDATE), not on the isolation level.
func beginTx(ctx context.Context, pool *pgxpool.Pool) (pgx.Tx, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// ── Existence checks ─────────────────────────────────────────────────────────

func requireWarehouse(ctx context.Context, q pgxQuerier, warehouseID int) error {
	var id int
	err := q.QueryRow(ctx,
		"SELECT id FROM warehouses WHERE id = $1 AND is_active = true", warehouseID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: id %d", ErrWarehouseNotFound, warehouseID)
		}
		return fmt.Errorf("failed to resolve warehouse %d: %w", warehouseID, err)
	}
	return nil
}

// requireItem returns the display name of the referenced product or raw material.
func requireItem(ctx context.Context, q pgxQuerier, item ItemRef) (string, error) {
	table, notFound := "products", ErrProductNotFound
	if item.Kind == ItemRawMaterial {
		table, notFound = "raw_materials", ErrRawMaterialNotFound
	}
	var name string
	err := q.QueryRow(ctx, "SELECT name FROM "+table+" WHERE id = $1", item.ID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: id %d", notFound, item.ID)
		}
		return "", fmt.Errorf("failed to resolve %s %d: %w", item.Kind, item.ID, err)
	}
	return name, nil
}

// ── Ledger primitives (caller owns the transaction) ──────────────────────────

// lockLedgerRowsTx locks every ledger row of item in warehouseID, in FEFO order.
// A second deduction against the same (item, warehouse) blocks here until the
// first commits or rolls back, then reads the post-commit quantities.
func lockLedgerRowsTx(ctx context.Context, tx pgx.Tx, item ItemRef, warehouseID int) ([]ledgerRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, quantity, batch_no, expiry_date
		FROM inventory
		WHERE `+item.column()+` = $1 AND warehouse_id = $2
		ORDER BY expiry_date ASC NULLS LAST, id
		FOR UPDATE
	`, item.ID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock ledger rows for %s in warehouse %d: %w", item, warehouseID, err)
	}
	defer rows.Close()

	var out []ledgerRow
	for rows.Next() {
		var r ledgerRow
		if err := rows.Scan(&r.id, &r.quantity, &r.batchNo, &r.expiry); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}
	return out, nil
}

// deductionPlan is a checked, not yet applied, deduction.
type deductionPlan struct {
	item        ItemRef
	warehouseID int
	quantity    int
	allocations []BatchAllocation
}

// planDeductionTx locks the (item, warehouse) rows and verifies the aggregate
// covers qty. It writes nothing.
func planDeductionTx(ctx context.Context, tx pgx.Tx, item ItemRef, name string, warehouseID, qty int) (*deductionPlan, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: deduction quantity must be positive, got %d", ErrInvalidQuantity, qty)
	}
	rows, err := lockLedgerRowsTx(ctx, tx, item, warehouseID)
	if err != nil {
		return nil, err
	}
	allocs, available, ok := allocateFEFO(rows, qty)
	if !ok {
		return nil, &ShortageError{
			Err:         ErrInsufficientStock,
			Item:        item,
			Name:        name,
			WarehouseID: warehouseID,
			Available:   available,
			Requested:   qty,
		}
	}
	return &deductionPlan{item: item, warehouseID: warehouseID, quantity: qty, allocations: allocs}, nil
}

// applyDeductionTx writes a plan produced by planDeductionTx in the same transaction.
func applyDeductionTx(ctx context.Context, tx pgx.Tx, plan *deductionPlan) error {
	for _, a := range plan.allocations {
		tag, err := tx.Exec(ctx, `
			UPDATE inventory
			SET quantity = quantity - $1, updated_at = NOW()
			WHERE id = $2 AND quantity >= $1
		`, a.Quantity, a.RecordID)
		if err != nil {
			return fmt.Errorf("failed to deduct ledger row %d: %w", a.RecordID, err)
		}
		if tag.RowsAffected() != 1 {
			// Unreachable while the row lock from planDeductionTx is held.
			return fmt.Errorf("ledger row %d changed under lock", a.RecordID)
		}
	}
	return nil
}

// creditTx creates or increments the ledger row for (item, warehouse, batch, expiry).
func creditTx(ctx context.Context, tx pgx.Tx, item ItemRef, warehouseID, qty int, batchNo *string, expiry *time.Time) (*InventoryRecord, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: intake quantity must be positive, got %d", ErrInvalidQuantity, qty)
	}
	productID, rawMaterialID := item.ids()
	var rec InventoryRecord
	var pid, rid *int
	err := tx.QueryRow(ctx, `
		INSERT INTO inventory (product_id, raw_material_id, warehouse_id, quantity, batch_no, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ((COALESCE(product_id, 0)), (COALESCE(raw_material_id, 0)), warehouse_id,
		             (COALESCE(batch_no, '')), (COALESCE(expiry_date, 'infinity'::date)))
		DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, product_id, raw_material_id, warehouse_id, quantity, batch_no, expiry_date, created_at, updated_at
	`, productID, rawMaterialID, warehouseID, qty, normalizeBatch(batchNo), dateOnly(expiry)).Scan(
		&rec.ID, &pid, &rid, &rec.WarehouseID, &rec.Quantity, &rec.BatchNo, &rec.ExpiryDate,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to credit ledger for %s in warehouse %d: %w", item, warehouseID, err)
	}
	rec.Item = itemFromIDs(pid, rid)
	return &rec, nil
}

// transferTx moves qty of item between warehouses inside tx. Batch and expiry
// travel with the stock. Rows are locked in ascending warehouse id order.
func transferTx(ctx context.Context, tx pgx.Tx, item ItemRef, name string, fromWarehouseID, toWarehouseID, qty int) ([]BatchAllocation, error) {
	if fromWarehouseID == toWarehouseID {
		return nil, fmt.Errorf("%w: warehouse %d on both sides", ErrInvalidTransfer, fromWarehouseID)
	}
	if toWarehouseID < fromWarehouseID {
		if _, err := lockLedgerRowsTx(ctx, tx, item, toWarehouseID); err != nil {
			return nil, err
		}
	}
	plan, err := planDeductionTx(ctx, tx, item, name, fromWarehouseID, qty)
	if err != nil {
		return nil, err
	}
	if err := applyDeductionTx(ctx, tx, plan); err != nil {
		return nil, err
	}
	for _, a := range plan.allocations {
		if _, err := creditTx(ctx, tx, item, toWarehouseID, a.Quantity, a.BatchNo, a.ExpiryDate); err != nil {
			return nil, err
		}
	}
	return plan.allocations, nil
}

// aggregate sums ledger quantity for item, optionally scoped to one warehouse.
func aggregate(ctx context.Context, q pgxQuerier, item ItemRef, warehouseID *int) (int, error) {
	var total int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM inventory
		WHERE `+item.column()+` = $1 AND ($2::int IS NULL OR warehouse_id = $2)
	`, item.ID, warehouseID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate stock for %s: %w", item, err)
	}
	return total, nil
}

func normalizeBatch(batchNo *string) *string {
	if batchNo == nil {
		return nil
	}
	b := strings.TrimSpace(*batchNo)
	if b == "" {
		return nil
	}
	return &b
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
