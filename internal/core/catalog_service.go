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

// CatalogService owns the master records: products, raw materials and warehouses.
type CatalogService interface {
	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	GetProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, productID int) (*Product, error)

	CreateRawMaterial(ctx context.Context, in RawMaterialInput) (*RawMaterial, error)
	GetRawMaterials(ctx context.Context) ([]RawMaterial, error)
	GetRawMaterial(ctx context.Context, rawMaterialID int) (*RawMaterial, error)
	// ReceiveRawMaterial adds to the production pool (opening_stock) and logs
	// a raw_material_stock_intakes row in the same transaction.
	ReceiveRawMaterial(ctx context.Context, in RawMaterialIntakeInput) (*RawMaterial, error)

	CreateWarehouse(ctx context.Context, in WarehouseInput) (*Warehouse, error)
	GetWarehouses(ctx context.Context) ([]Warehouse, error)
}

type catalogService struct {
	pool *pgxpool.Pool
}

func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

const productColumns = `id, code, name, description, unit_of_measure, unit_price, reorder_point, status, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var status string
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.UnitOfMeasure,
		&p.UnitPrice, &p.ReorderPoint, &status, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Status = StockStatus(status)
	return &p, nil
}

const rawMaterialColumns = `id, code, name, category, unit_of_measure, unit_cost, reorder_point, opening_stock, created_at`

func scanRawMaterial(row pgx.Row) (*RawMaterial, error) {
	var m RawMaterial
	if err := row.Scan(&m.ID, &m.Code, &m.Name, &m.Category, &m.UnitOfMeasure,
		&m.UnitCost, &m.ReorderPoint, &m.OpeningStock, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// ── Products ─────────────────────────────────────────────────────────────────

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	// A new product has no ledger rows, so its status starts from an aggregate of zero.
	status := DeriveStatus(0, in.ReorderPoint)
	p, err := scanProduct(s.pool.QueryRow(ctx, `
		INSERT INTO products (code, name, description, unit_of_measure, unit_price, reorder_point, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		strings.TrimSpace(in.Code), strings.TrimSpace(in.Name), in.Description,
		unitOrDefault(in.UnitOfMeasure), in.UnitPrice, in.ReorderPoint, string(status)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: product %s", ErrDuplicateCode, in.Code)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

func (s *catalogService) GetProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *catalogService) GetProduct(ctx context.Context, productID int) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("failed to get product %d: %w", productID, err)
	}
	return p, nil
}

// ── Raw materials ────────────────────────────────────────────────────────────

func (s *catalogService) CreateRawMaterial(ctx context.Context, in RawMaterialInput) (*RawMaterial, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m, err := scanRawMaterial(s.pool.QueryRow(ctx, `
		INSERT INTO raw_materials (code, name, category, unit_of_measure, unit_cost, reorder_point, opening_stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+rawMaterialColumns,
		strings.TrimSpace(in.Code), strings.TrimSpace(in.Name), in.Category,
		unitOrDefault(in.UnitOfMeasure), in.UnitCost, in.ReorderPoint, in.OpeningStock))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: raw material %s", ErrDuplicateCode, in.Code)
		}
		return nil, fmt.Errorf("failed to create raw material: %w", err)
	}
	return m, nil
}

func (s *catalogService) GetRawMaterials(ctx context.Context) ([]RawMaterial, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+rawMaterialColumns+` FROM raw_materials ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw materials: %w", err)
	}
	defer rows.Close()

	var out []RawMaterial
	for rows.Next() {
		m, err := scanRawMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raw material: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *catalogService) GetRawMaterial(ctx context.Context, rawMaterialID int) (*RawMaterial, error) {
	m, err := scanRawMaterial(s.pool.QueryRow(ctx,
		`SELECT `+rawMaterialColumns+` FROM raw_materials WHERE id = $1`, rawMaterialID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrRawMaterialNotFound, rawMaterialID)
		}
		return nil, fmt.Errorf("failed to get raw material %d: %w", rawMaterialID, err)
	}
	return m, nil
}

func (s *catalogService) ReceiveRawMaterial(ctx context.Context, in RawMaterialIntakeInput) (*RawMaterial, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := beginTx(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	m, err := scanRawMaterial(tx.QueryRow(ctx, `
		UPDATE raw_materials
		SET opening_stock = opening_stock + $1
		WHERE id = $2
		RETURNING `+rawMaterialColumns, in.Quantity, in.RawMaterialID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrRawMaterialNotFound, in.RawMaterialID)
		}
		return nil, fmt.Errorf("failed to increment raw material %d: %w", in.RawMaterialID, err)
	}

	intakeDate := time.Now().UTC()
	if in.IntakeDate != nil {
		intakeDate = *in.IntakeDate
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO raw_material_stock_intakes
		    (raw_material_id, quantity, supplier, batch_no, expiry_date, intake_date, staff_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, in.RawMaterialID, in.Quantity, strings.TrimSpace(in.Supplier), normalizeBatch(in.BatchNo),
		dateOnly(in.ExpiryDate), dateOnly(&intakeDate), in.StaffUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to log raw material intake: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit raw material intake: %w", err)
	}
	return m, nil
}

// ── Warehouses ───────────────────────────────────────────────────────────────

func (s *catalogService) CreateWarehouse(ctx context.Context, in WarehouseInput) (*Warehouse, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var w Warehouse
	err := s.pool.QueryRow(ctx, `
		INSERT INTO warehouses (code, name, location, manager_name, manager_phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, code, name, location, manager_name, manager_phone, is_active, created_at
	`, strings.TrimSpace(in.Code), strings.TrimSpace(in.Name), in.Location, in.ManagerName, in.ManagerPhone).Scan(
		&w.ID, &w.Code, &w.Name, &w.Location, &w.ManagerName, &w.ManagerPhone, &w.IsActive, &w.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: warehouse %s", ErrDuplicateCode, in.Code)
		}
		return nil, fmt.Errorf("failed to create warehouse: %w", err)
	}
	return &w, nil
}

func (s *catalogService) GetWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, location, manager_name, manager_phone, is_active, created_at
		FROM warehouses
		WHERE is_active = true
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.Location, &w.ManagerName, &w.ManagerPhone,
			&w.IsActive, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}
