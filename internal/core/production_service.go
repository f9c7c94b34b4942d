package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductionService resolves bills of materials and consumes raw materials
// when a production run is approved.
type ProductionService interface {
	CreateRequirement(ctx context.Context, in RequirementInput) (*ProductionRequirement, error)
	// ReplaceRequirementItems swaps the whole item list of a requirement.
	ReplaceRequirementItems(ctx context.Context, requirementID int, items []RequirementItemInput) (*ProductionRequirement, error)
	DeleteRequirement(ctx context.Context, requirementID int) error
	GetRequirement(ctx context.Context, requirementID int) (*ProductionRequirement, error)
	GetRequirementByProduct(ctx context.Context, productID int) (*ProductionRequirement, error)
	ListRequirements(ctx context.Context) ([]ProductionRequirement, error)

	// CalculateMaterials is read-only.
	CalculateMaterials(ctx context.Context, productID, buildQuantity int) (*MaterialCalculation, error)
	// ApproveProduction checks every raw material before consuming any of them.
	ApproveProduction(ctx context.Context, in ProductionInput) (*ProductionResult, error)
}

type productionService struct {
	pool *pgxpool.Pool
}

func NewProductionService(pool *pgxpool.Pool) ProductionService {
	return &productionService{pool: pool}
}

// ── Requirement CRUD ─────────────────────────────────────────────────────────

func (s *productionService) CreateRequirement(ctx context.Context, in RequirementInput) (*ProductionRequirement, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := beginTx(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := requireItem(ctx, tx, ProductItem(in.ProductID)); err != nil {
		return nil, err
	}

	var requirementID int
	err = tx.QueryRow(ctx,
		"INSERT INTO production_requirements (product_id) VALUES ($1) RETURNING id", in.ProductID,
	).Scan(&requirementID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: product %d", ErrRequirementExists, in.ProductID)
		}
		return nil, fmt.Errorf("failed to create production requirement: %w", err)
	}

	if err := insertRequirementItemsTx(ctx, tx, requirementID, in.Items); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit production requirement: %w", err)
	}
	return s.GetRequirement(ctx, requirementID)
}

func (s *productionService) ReplaceRequirementItems(ctx context.Context, requirementID int, items []RequirementItemInput) (*ProductionRequirement, error) {
	if err := validateRequirementItems(items); err != nil {
		return nil, err
	}

	tx, err := beginTx(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var id int
	err = tx.QueryRow(ctx, `
		UPDATE production_requirements SET updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`, requirementID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrRequirementNotFound, requirementID)
		}
		return nil, fmt.Errorf("failed to lock production requirement %d: %w", requirementID, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM production_requirement_items WHERE requirement_id = $1", requirementID); err != nil {
		return nil, fmt.Errorf("failed to clear requirement items: %w", err)
	}
	if err := insertRequirementItemsTx(ctx, tx, requirementID, items); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit production requirement: %w", err)
	}
	return s.GetRequirement(ctx, requirementID)
}

func insertRequirementItemsTx(ctx context.Context, tx pgx.Tx, requirementID int, items []RequirementItemInput) error {
	for _, it := range items {
		if _, err := requireItem(ctx, tx, RawMaterialItem(it.RawMaterialID)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO production_requirement_items (requirement_id, raw_material_id, quantity_per_unit)
			VALUES ($1, $2, $3)
		`, requirementID, it.RawMaterialID, it.QuantityPerUnit)
		if err != nil {
			return fmt.Errorf("failed to insert requirement item for raw material %d: %w", it.RawMaterialID, err)
		}
	}
	return nil
}

// DeleteRequirement removes the requirement; its items go with it (ON DELETE CASCADE).
func (s *productionService) DeleteRequirement(ctx context.Context, requirementID int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM production_requirements WHERE id = $1", requirementID)
	if err != nil {
		return fmt.Errorf("failed to delete production requirement %d: %w", requirementID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrRequirementNotFound, requirementID)
	}
	return nil
}

func (s *productionService) GetRequirement(ctx context.Context, requirementID int) (*ProductionRequirement, error) {
	return s.getRequirement(ctx, false, requirementID)
}

func (s *productionService) GetRequirementByProduct(ctx context.Context, productID int) (*ProductionRequirement, error) {
	return s.getRequirement(ctx, true, productID)
}

func (s *productionService) getRequirement(ctx context.Context, byProduct bool, id int) (*ProductionRequirement, error) {
	where, label := "pr.id = $1", fmt.Sprintf("id %d", id)
	if byProduct {
		where, label = "pr.product_id = $1", fmt.Sprintf("product %d", id)
	}
	var r ProductionRequirement
	err := s.pool.QueryRow(ctx, `
		SELECT pr.id, pr.product_id, p.code, p.name, pr.created_at, pr.updated_at
		FROM production_requirements pr
		JOIN products p ON p.id = pr.product_id
		WHERE `+where, id).Scan(&r.ID, &r.ProductID, &r.ProductCode, &r.ProductName, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRequirementNotFound, label)
		}
		return nil, fmt.Errorf("failed to get production requirement: %w", err)
	}

	items, err := requirementItems(ctx, s.pool, r.ID)
	if err != nil {
		return nil, err
	}
	r.Items = items
	return &r, nil
}

func (s *productionService) ListRequirements(ctx context.Context) ([]ProductionRequirement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pr.id, pr.product_id, p.code, p.name, pr.created_at, pr.updated_at
		FROM production_requirements pr
		JOIN products p ON p.id = pr.product_id
		ORDER BY p.code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query production requirements: %w", err)
	}
	var reqs []ProductionRequirement
	for rows.Next() {
		var r ProductionRequirement
		if err := rows.Scan(&r.ID, &r.ProductID, &r.ProductCode, &r.ProductName, &r.CreatedAt, &r.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan production requirement: %w", err)
		}
		reqs = append(reqs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating production requirements: %w", err)
	}

	for i := range reqs {
		items, err := requirementItems(ctx, s.pool, reqs[i].ID)
		if err != nil {
			return nil, err
		}
		reqs[i].Items = items
	}
	return reqs, nil
}

type rowsQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// requirementItems returns the items ordered by raw material id, the order
// in which production locks raw materials.
func requirementItems(ctx context.Context, q rowsQuerier, requirementID int) ([]ProductionRequirementItem, error) {
	rows, err := q.Query(ctx, `
		SELECT pri.id, pri.requirement_id, pri.raw_material_id, rm.code, rm.name, pri.quantity_per_unit
		FROM production_requirement_items pri
		JOIN raw_materials rm ON rm.id = pri.raw_material_id
		WHERE pri.requirement_id = $1
		ORDER BY pri.raw_material_id
	`, requirementID)
	if err != nil {
		return nil, fmt.Errorf("failed to query requirement items: %w", err)
	}
	defer rows.Close()

	var items []ProductionRequirementItem
	for rows.Next() {
		var it ProductionRequirementItem
		if err := rows.Scan(&it.ID, &it.RequirementID, &it.RawMaterialID, &it.RawMaterialCode,
			&it.RawMaterialName, &it.QuantityPerUnit); err != nil {
			return nil, fmt.Errorf("failed to scan requirement item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ── Calculation and approval ─────────────────────────────────────────────────

// loadBOM resolves the product's bill of materials. A requirement with no
// items is treated as missing.
func loadBOM(ctx context.Context, q interface {
	pgxQuerier
	rowsQuerier
}, productID int) (string, []ProductionRequirementItem, error) {
	productName, err := requireItem(ctx, q, ProductItem(productID))
	if err != nil {
		return "", nil, err
	}
	var requirementID int
	err = q.QueryRow(ctx, "SELECT id FROM production_requirements WHERE product_id = $1", productID).Scan(&requirementID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, fmt.Errorf("%w: product %d", ErrRequirementNotFound, productID)
		}
		return "", nil, fmt.Errorf("failed to resolve production requirement: %w", err)
	}
	items, err := requirementItems(ctx, q, requirementID)
	if err != nil {
		return "", nil, err
	}
	if len(items) == 0 {
		return "", nil, fmt.Errorf("%w: product %d has no materials", ErrRequirementNotFound, productID)
	}
	return productName, items, nil
}

func (s *productionService) CalculateMaterials(ctx context.Context, productID, buildQuantity int) (*MaterialCalculation, error) {
	if err := (ProductionInput{ProductID: productID, Quantity: buildQuantity}).Validate(); err != nil {
		return nil, err
	}
	productName, items, err := loadBOM(ctx, s.pool, productID)
	if err != nil {
		return nil, err
	}

	materials, err := scaleRequirement(items, buildQuantity)
	if err != nil {
		return nil, err
	}
	for i := range materials {
		err := s.pool.QueryRow(ctx, "SELECT opening_stock FROM raw_materials WHERE id = $1",
			materials[i].RawMaterialID).Scan(&materials[i].Available)
		if err != nil {
			return nil, fmt.Errorf("failed to read raw material %d: %w", materials[i].RawMaterialID, err)
		}
		materials[i].Sufficient = materials[i].Available >= materials[i].Required
	}
	return &MaterialCalculation{
		ProductID:     productID,
		ProductName:   productName,
		BuildQuantity: buildQuantity,
		Materials:     materials,
	}, nil
}

func (s *productionService) ApproveProduction(ctx context.Context, in ProductionInput) (*ProductionResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := beginTx(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, items, err := loadBOM(ctx, tx, in.ProductID)
	if err != nil {
		return nil, err
	}
	materials, err := scaleRequirement(items, in.Quantity)
	if err != nil {
		return nil, err
	}

	var consumed []ConsumedMaterial
	if in.WarehouseID == nil {
		consumed, err = consumePoolTx(ctx, tx, materials)
	} else {
		consumed, err = consumeLedgerTx(ctx, tx, *in.WarehouseID, materials)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit production: %w", err)
	}
	return &ProductionResult{
		ProductID:     in.ProductID,
		BuildQuantity: in.Quantity,
		WarehouseID:   in.WarehouseID,
		Materials:     consumed,
	}, nil
}

// consumePoolTx decrements raw_materials.opening_stock. Materials arrive
// sorted by raw material id, which is also the lock order.
func consumePoolTx(ctx context.Context, tx pgx.Tx, materials []MaterialRequirement) ([]ConsumedMaterial, error) {
	available := make([]int, len(materials))
	for i, m := range materials {
		err := tx.QueryRow(ctx,
			"SELECT opening_stock FROM raw_materials WHERE id = $1 FOR UPDATE", m.RawMaterialID,
		).Scan(&available[i])
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: id %d", ErrRawMaterialNotFound, m.RawMaterialID)
			}
			return nil, fmt.Errorf("failed to lock raw material %d: %w", m.RawMaterialID, err)
		}
	}

	for i, m := range materials {
		if available[i] < m.Required {
			return nil, &ShortageError{
				Err:       ErrInsufficientRawMaterial,
				Item:      RawMaterialItem(m.RawMaterialID),
				Name:      m.Name,
				Available: available[i],
				Requested: m.Required,
			}
		}
	}

	out := make([]ConsumedMaterial, 0, len(materials))
	for _, m := range materials {
		var remaining int
		err := tx.QueryRow(ctx, `
			UPDATE raw_materials
			SET opening_stock = opening_stock - $1
			WHERE id = $2
			RETURNING opening_stock
		`, m.Required, m.RawMaterialID).Scan(&remaining)
		if err != nil {
			return nil, fmt.Errorf("failed to consume raw material %d: %w", m.RawMaterialID, err)
		}
		out = append(out, ConsumedMaterial{
			RawMaterialID: m.RawMaterialID,
			Code:          m.Code,
			Name:          m.Name,
			Consumed:      m.Required,
			Remaining:     remaining,
		})
	}
	return out, nil
}

// consumeLedgerTx deducts raw materials from one warehouse's ledger rows, FEFO.
func consumeLedgerTx(ctx context.Context, tx pgx.Tx, warehouseID int, materials []MaterialRequirement) ([]ConsumedMaterial, error) {
	if err := requireWarehouse(ctx, tx, warehouseID); err != nil {
		return nil, err
	}

	plans := make([]*deductionPlan, 0, len(materials))
	for _, m := range materials {
		plan, err := planDeductionTx(ctx, tx, RawMaterialItem(m.RawMaterialID), m.Name, warehouseID, m.Required)
		if err != nil {
			var shortage *ShortageError
			if errors.As(err, &shortage) {
				shortage.Err = ErrInsufficientRawMaterial
			}
			return nil, err
		}
		plans = append(plans, plan)
	}

	out := make([]ConsumedMaterial, 0, len(materials))
	for i, plan := range plans {
		if err := applyDeductionTx(ctx, tx, plan); err != nil {
			return nil, err
		}
		remaining, err := aggregate(ctx, tx, plan.item, &warehouseID)
		if err != nil {
			return nil, err
		}
		out = append(out, ConsumedMaterial{
			RawMaterialID: materials[i].RawMaterialID,
			Code:          materials[i].Code,
			Name:          materials[i].Name,
			Consumed:      materials[i].Required,
			Remaining:     remaining,
		})
	}
	return out, nil
}
