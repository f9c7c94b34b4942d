package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const invoicePrefix = "INV"

// InvoiceService bills customers and deducts the billed stock atomically.
type InvoiceService interface {
	// CreateInvoice checks every line against the warehouse before writing
	// anything. On success all lines are deducted, the header and items are
	// stored, and the status of each distinct product is recomputed.
	CreateInvoice(ctx context.Context, in InvoiceInput) (*Invoice, error)
	GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error)
	ListInvoices(ctx context.Context, limit int) ([]Invoice, error)
}

type invoiceService struct {
	pool *pgxpool.Pool
	docs DocumentService
}

func NewInvoiceService(pool *pgxpool.Pool, docs DocumentService) InvoiceService {
	return &invoiceService{pool: pool, docs: docs}
}

type invoiceProduct struct {
	code      string
	name      string
	unitPrice decimal.Decimal
}

func (s *invoiceService) CreateInvoice(ctx context.Context, in InvoiceInput) (*Invoice, error) {
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

	demand := productDemand(in.Items)
	productIDs := make([]int, 0, len(demand))
	for id := range demand {
		productIDs = append(productIDs, id)
	}
	productIDs = sortedUnique(productIDs)

	products := make(map[int]invoiceProduct, len(productIDs))
	for _, id := range productIDs {
		var p invoiceProduct
		err := tx.QueryRow(ctx, "SELECT code, name, unit_price FROM products WHERE id = $1", id).
			Scan(&p.code, &p.name, &p.unitPrice)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
			}
			return nil, fmt.Errorf("failed to resolve product %d: %w", id, err)
		}
		products[id] = p
	}

	// Phase 1: lock and check every product, in ascending id order. Nothing is written yet.
	plans := make([]*deductionPlan, 0, len(productIDs))
	for _, id := range productIDs {
		plan, err := planDeductionTx(ctx, tx, ProductItem(id), products[id].name, in.WarehouseID, demand[id])
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	// Phase 2: apply.
	for _, plan := range plans {
		if err := applyDeductionTx(ctx, tx, plan); err != nil {
			return nil, err
		}
	}

	invoiceDate := time.Now().UTC()
	if in.InvoiceDate != nil {
		invoiceDate = *in.InvoiceDate
	}
	invoiceDate = *dateOnly(&invoiceDate)

	items := make([]InvoiceItem, 0, len(in.Items))
	for i, line := range in.Items {
		p := products[line.ProductID]
		price := p.unitPrice
		if line.UnitPrice != nil {
			price = line.UnitPrice.Round(2)
		}
		items = append(items, InvoiceItem{
			LineNumber:  i + 1,
			ProductID:   line.ProductID,
			ProductCode: p.code,
			ProductName: p.name,
			Quantity:    line.Quantity,
			UnitPrice:   price,
			LineTotal:   lineTotal(line.Quantity, price),
		})
	}

	number := strings.TrimSpace(in.InvoiceNumber)
	if number == "" {
		number, err = s.docs.NextNumberTx(ctx, tx, invoicePrefix, invoiceDate.Year())
		if err != nil {
			return nil, err
		}
	}
	status := in.Status
	if status == "" {
		status = "unpaid"
	}

	inv := Invoice{
		InvoiceNumber: number,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		WarehouseID:   in.WarehouseID,
		InvoiceDate:   invoiceDate,
		TotalAmount:   invoiceTotal(items),
		Status:        status,
		CreatedBy:     in.CreatedBy,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (invoice_number, customer_name, warehouse_id, invoice_date, total_amount, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, inv.InvoiceNumber, inv.CustomerName, inv.WarehouseID, inv.InvoiceDate, inv.TotalAmount,
		inv.Status, inv.CreatedBy).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateInvoiceNumber, inv.InvoiceNumber)
		}
		return nil, fmt.Errorf("failed to insert invoice: %w", err)
	}

	for i := range items {
		items[i].InvoiceID = inv.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO invoice_items (invoice_id, line_number, product_id, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, inv.ID, items[i].LineNumber, items[i].ProductID, items[i].Quantity,
			items[i].UnitPrice, items[i].LineTotal).Scan(&items[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert invoice line %d: %w", items[i].LineNumber, err)
		}
	}
	inv.Items = items

	if err := recomputeStatusesTx(ctx, tx, productIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice: %w", err)
	}
	return &inv, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error) {
	var inv Invoice
	err := s.pool.QueryRow(ctx, `
		SELECT id, invoice_number, customer_name, warehouse_id, invoice_date,
		       total_amount, status, created_by, created_at
		FROM invoices
		WHERE id = $1
	`, invoiceID).Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerName, &inv.WarehouseID, &inv.InvoiceDate,
		&inv.TotalAmount, &inv.Status, &inv.CreatedBy, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrInvoiceNotFound, invoiceID)
		}
		return nil, fmt.Errorf("failed to get invoice %d: %w", invoiceID, err)
	}

	items, err := s.getItems(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return &inv, nil
}

func (s *invoiceService) getItems(ctx context.Context, invoiceID int) ([]InvoiceItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ii.id, ii.invoice_id, ii.line_number, ii.product_id, p.code, p.name,
		       ii.quantity, ii.unit_price, ii.line_total
		FROM invoice_items ii
		JOIN products p ON p.id = ii.product_id
		WHERE ii.invoice_id = $1
		ORDER BY ii.line_number
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice items: %w", err)
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.LineNumber, &it.ProductID, &it.ProductCode,
			&it.ProductName, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListInvoices returns headers only, newest first.
func (s *invoiceService) ListInvoices(ctx context.Context, limit int) ([]Invoice, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, invoice_number, customer_name, warehouse_id, invoice_date,
		       total_amount, status, created_by, created_at
		FROM invoices
		ORDER BY invoice_date DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerName, &inv.WarehouseID, &inv.InvoiceDate,
			&inv.TotalAmount, &inv.Status, &inv.CreatedBy, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
