package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is an immutable customer invoice. Creating it deducts every line
// from the invoice's warehouse in the same transaction.
type Invoice struct {
	ID            int             `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	WarehouseID   int             `json:"warehouse_id"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        string          `json:"status"`
	CreatedBy     *int            `json:"created_by,omitempty"`
	Items         []InvoiceItem   `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
}

// InvoiceItem represents one line on an invoice.
type InvoiceItem struct {
	ID          int             `json:"id"`
	InvoiceID   int             `json:"invoice_id"`
	LineNumber  int             `json:"line_number"`
	ProductID   int             `json:"product_id"`
	ProductCode string          `json:"product_code"` // joined from products
	ProductName string          `json:"product_name"` // joined from products
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// InvoiceLineInput is one requested line.
// A nil UnitPrice means "use the product's unit_price".
type InvoiceLineInput struct {
	ProductID int              `json:"product_id" jsonschema:"minimum=1"`
	Quantity  int              `json:"quantity" jsonschema:"minimum=1,maximum=2147483647"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// InvoiceInput is the intent to bill a customer from one warehouse.
type InvoiceInput struct {
	// InvoiceNumber is generated (INV-<year>-NNNNN) when empty.
	InvoiceNumber string             `json:"invoice_number,omitempty"`
	CustomerName  string             `json:"customer_name" jsonschema:"minLength=1"`
	WarehouseID   int                `json:"warehouse_id" jsonschema:"minimum=1"`
	InvoiceDate   *time.Time         `json:"invoice_date,omitempty"`
	Status        string             `json:"status,omitempty" jsonschema:"enum=unpaid,enum=paid,enum=partial"`
	Items         []InvoiceLineInput `json:"items" jsonschema:"minItems=1"`
	CreatedBy     *int               `json:"-"`
}

// Validate checks the intent before any ledger access.
func (in InvoiceInput) Validate() error {
	if strings.TrimSpace(in.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidInvoice)
	}
	if in.WarehouseID <= 0 {
		return fmt.Errorf("%w: id %d", ErrWarehouseNotFound, in.WarehouseID)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: invoice must have at least one line", ErrInvalidInvoice)
	}
	switch in.Status {
	case "", "unpaid", "paid", "partial":
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInvoice, in.Status)
	}
	for i, line := range in.Items {
		if line.ProductID <= 0 {
			return fmt.Errorf("%w: line %d: id %d", ErrProductNotFound, i+1, line.ProductID)
		}
		if err := checkQuantity(fmt.Sprintf("line %d: quantity", i+1), line.Quantity); err != nil {
			return err
		}
		if line.UnitPrice != nil && line.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: line %d: unit price must not be negative", ErrInvalidInvoice, i+1)
		}
	}
	for id, qty := range productDemand(in.Items) {
		if err := checkQuantity(fmt.Sprintf("product %d: total quantity", id), qty); err != nil {
			return err
		}
	}
	return nil
}

// productDemand sums the requested quantity per product. Two lines for the
// same product must be covered together, not each against the full aggregate.
func productDemand(lines []InvoiceLineInput) map[int]int {
	demand := make(map[int]int, len(lines))
	for _, l := range lines {
		demand[l.ProductID] += l.Quantity
	}
	return demand
}

// invoiceTotal sums the line totals.
func invoiceTotal(items []InvoiceItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	return total
}
