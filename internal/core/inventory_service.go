package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryService manages the per-warehouse stock ledger: intake, deduction,
// inter-warehouse transfer, and product status derivation.
//
// Every mutating method runs as one transaction. A failure of any kind leaves
// the ledger unchanged.
type InventoryService interface {
	// Intake creates or increments the ledger row for the item, warehouse, batch
	// and expiry. Product intakes also append a product_stock_intakes row and
	// refresh the product status.
	Intake(ctx context.Context, in IntakeInput) (*InventoryRecord, error)
	// Deduct removes qty of item from one warehouse, earliest expiry first.
	// It fails with ErrInsufficientStock when the warehouse aggregate is short.
	Deduct(ctx context.Context, item ItemRef, warehouseID, qty int) ([]BatchAllocation, error)
	// Transfer moves stock between warehouses and appends a warehouse_transfers row.
	Transfer(ctx context.Context, in TransferInput) (*WarehouseTransfer, error)
	ListTransfers(ctx context.Context, limit int) ([]WarehouseTransfer, error)

	RecomputeStatus(ctx context.Context, productID int) (StockStatus, error)
	// RefreshAllStatuses recomputes every product and returns how many were processed.
	RefreshAllStatuses(ctx context.Context) (int, error)

	// OnHand returns the aggregate for item, across all warehouses when warehouseID is nil.
	OnHand(ctx context.Context, item ItemRef, warehouseID *int) (int, error)
	GetLedgerRows(ctx context.Context, item ItemRef) ([]InventoryRecord, error)
	GetStockLevels(ctx context.Context) ([]StockLevel, error)
	GetRawMaterialLevels(ctx context.Context) ([]RawMaterialLevel, error)
}

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

// ── Mutations ────────────────────────────────────────────────────────────────

func (s *inventoryService) Intake(ctx context.Context, in IntakeInput) (*InventoryRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := beginTx(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := requireWarehouse(ctx, tx, in.WarehouseID); err != nil {
		return nil, err
	}
	if _, err := requireItem(ctx, tx, in.Item); err != nil {
		return nil, err
	}

	rec, err := creditTx(ctx, tx, in.Item, in.WarehouseID, in.Quantity, in.BatchNo, in.ExpiryDate)
	if err != nil {
		return nil, err
	}

	if in.Item.Kind == ItemProduct {
		intakeDate := time.Now().UTC()
		if in.IntakeDate != nil {
			intakeDate = *in.IntakeDate
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO product_stock_intakes
			    (product_id, warehouse_id, quantity, batch_no, intake_date, expiry_date, staff_user_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, in.Item.ID, in.WarehouseID, in.Quantity, normalizeBatch(in.BatchNo),
			dateOnly(&intakeDate), dateOnly(in.ExpiryDate), in.StaffUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to log product intake: %w", err)
		}
		if _, err := recomputeStatusTx(ctx, tx, in.Item.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit intake: %w", err)
	}
	return rec, nil
}

func (s *inventoryService) Deduct(ctx context.Context, item ItemRef, warehouseID, qty int) ([]BatchAllocation, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := checkQuantity("deduction quantity", qty); err != nil {
		return nil, err
	}

	tx, err := beginTx(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := requireWarehouse(ctx, tx, warehouseID); err != nil {
		return nil, err
	}
	name, err := requireItem(ctx, tx, item)
	if err != nil {
		return nil, err
	}

	plan, err := planDeductionTx(ctx, tx, item, name, warehouseID, qty)
	if err != nil {
		return nil, err
	}
	if err := applyDeductionTx(ctx, tx, plan); err != nil {
		return nil, err
	}
	if item.Kind == ItemProduct {
		if _, err := recomputeStatusTx(ctx, tx, item.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit deduction: %w", err)
	}
	return plan.allocations, nil
}

func (s *inventoryService) Transfer(ctx context.Context, in TransferInput) (*WarehouseTransfer, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := beginTx(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for _, id := range []int{in.FromWarehouseID, in.ToWarehouseID} {
		if err := requireWarehouse(ctx, tx, id); err != nil {
			return nil, err
		}
	}
	name, err := requireItem(ctx, tx, in.Item)
	if err != nil {
		return nil, err
	}

	if _, err := transferTx(ctx, tx, in.Item, name, in.FromWarehouseID, in.ToWarehouseID, in.Quantity); err != nil {
		return nil, err
	}

	productID, rawMaterialID := in.Item.ids()
	var t WarehouseTransfer
	var pid, rid *int
	err = tx.QueryRow(ctx, `
		INSERT INTO warehouse_transfers
		    (from_warehouse_id, to_warehouse_id, product_id, raw_material_id, quantity, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, from_warehouse_id, to_warehouse_id, product_id, raw_material_id, quantity, created_by, transferred_at
	`, in.FromWarehouseID, in.ToWarehouseID, productID, rawMaterialID, in.Quantity, in.UserID).Scan(
		&t.ID, &t.FromWarehouseID, &t.ToWarehouseID, &pid, &rid, &t.Quantity, &t.CreatedBy, &t.TransferredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to log transfer: %w", err)
	}
	t.Item = itemFromIDs(pid, rid)

	// The product aggregate is unchanged by a transfer, but recomputing keeps
	// the cached status correct if it had drifted.
	if in.Item.Kind == ItemProduct {
		if _, err := recomputeStatusTx(ctx, tx, in.Item.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}
	return &t, nil
}

func (s *inventoryService) ListTransfers(ctx context.Context, limit int) ([]WarehouseTransfer, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, from_warehouse_id, to_warehouse_id, product_id, raw_material_id,
		       quantity, created_by, transferred_at
		FROM warehouse_transfers
		ORDER BY transferred_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var out []WarehouseTransfer
	for rows.Next() {
		var t WarehouseTransfer
		var pid, rid *int
		if err := rows.Scan(&t.ID, &t.FromWarehouseID, &t.ToWarehouseID, &pid, &rid,
			&t.Quantity, &t.CreatedBy, &t.TransferredAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		t.Item = itemFromIDs(pid, rid)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *inventoryService) RecomputeStatus(ctx context.Context, productID int) (StockStatus, error) {
	tx, err := beginTx(ctx, s.pool)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	status, err := recomputeStatusTx(ctx, tx, productID)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit status: %w", err)
	}
	return status, nil
}

func (s *inventoryService) RefreshAllStatuses(ctx context.Context) (int, error) {
	rows, err := s.pool.Query(ctx, "SELECT id FROM products ORDER BY id")
	if err != nil {
		return 0, fmt.Errorf("failed to query products: %w", err)
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating products: %w", err)
	}

	// One short transaction per product so a long refresh never holds many row locks.
	for _, id := range ids {
		if _, err := s.RecomputeStatus(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *inventoryService) OnHand(ctx context.Context, item ItemRef, warehouseID *int) (int, error) {
	if err := item.Validate(); err != nil {
		return 0, err
	}
	return aggregate(ctx, s.pool, item, warehouseID)
}

func (s *inventoryService) GetLedgerRows(ctx context.Context, item ItemRef) ([]InventoryRecord, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, raw_material_id, warehouse_id, quantity,
		       batch_no, expiry_date, created_at, updated_at
		FROM inventory
		WHERE `+item.column()+` = $1
		ORDER BY warehouse_id, expiry_date ASC NULLS LAST, id
	`, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger rows: %w", err)
	}
	defer rows.Close()

	var out []InventoryRecord
	for rows.Next() {
		var r InventoryRecord
		var pid, rid *int
		if err := rows.Scan(&r.ID, &pid, &rid, &r.WarehouseID, &r.Quantity,
			&r.BatchNo, &r.ExpiryDate, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		r.Item = itemFromIDs(pid, rid)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *inventoryService) GetStockLevels(ctx context.Context) ([]StockLevel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.code, p.name, w.id, w.code, w.name,
		       COALESCE(SUM(i.quantity), 0) AS on_hand,
		       p.reorder_point, p.status
		FROM inventory i
		JOIN products p   ON p.id = i.product_id
		JOIN warehouses w ON w.id = i.warehouse_id
		GROUP BY p.id, p.code, p.name, w.id, w.code, w.name, p.reorder_point, p.status
		ORDER BY p.code, w.code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var sl StockLevel
		var status string
		if err := rows.Scan(
			&sl.ProductID, &sl.ProductCode, &sl.ProductName,
			&sl.WarehouseID, &sl.WarehouseCode, &sl.WarehouseName,
			&sl.OnHand, &sl.ReorderPoint, &status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		sl.Status = StockStatus(status)
		levels = append(levels, sl)
	}
	return levels, rows.Err()
}

func (s *inventoryService) GetRawMaterialLevels(ctx context.Context) ([]RawMaterialLevel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rm.id, rm.code, rm.name, rm.opening_stock,
		       COALESCE((SELECT SUM(i.quantity) FROM inventory i WHERE i.raw_material_id = rm.id), 0),
		       rm.reorder_point
		FROM raw_materials rm
		ORDER BY rm.code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw material levels: %w", err)
	}
	defer rows.Close()

	var levels []RawMaterialLevel
	for rows.Next() {
		var l RawMaterialLevel
		if err := rows.Scan(&l.RawMaterialID, &l.Code, &l.Name, &l.PoolQuantity, &l.Warehoused, &l.ReorderPoint); err != nil {
			return nil, fmt.Errorf("failed to scan raw material level: %w", err)
		}
		l.BelowReorder = l.PoolQuantity < l.ReorderPoint
		levels = append(levels, l)
	}
	return levels, rows.Err()
}
