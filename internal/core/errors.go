package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Failure kinds returned by the stock engine. Every one of them is detected
// before the operation writes anything, so the store is unchanged and the
// caller may retry.
var (
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrInvalidItem             = errors.New("invalid item reference")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInsufficientRawMaterial = errors.New("insufficient raw material")
	ErrProductNotFound         = errors.New("product not found")
	ErrRawMaterialNotFound     = errors.New("raw material not found")
	ErrWarehouseNotFound       = errors.New("warehouse not found")
	ErrRequirementNotFound     = errors.New("production requirement not found")
	ErrRequirementExists       = errors.New("production requirement already exists for product")
	ErrSameWarehouse           = errors.New("source and destination warehouses must be different")
	ErrInvalidTransfer         = errors.New("invalid transfer")
	ErrWarehouseAccessDenied   = errors.New("warehouse access denied")
	ErrInvoiceNotFound         = errors.New("invoice not found")
	ErrDuplicateInvoiceNumber  = errors.New("invoice number already exists")
	ErrInvalidInvoice          = errors.New("invalid invoice")
	ErrInvalidCatalogEntry     = errors.New("invalid catalog entry")
	ErrDuplicateCode           = errors.New("code already exists")
	ErrInvalidRequirement      = errors.New("invalid production requirement")
)

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ShortageError reports the item that could not be covered. Err is
// ErrInsufficientStock for ledger deductions and ErrInsufficientRawMaterial
// for production consumption.
type ShortageError struct {
	Err         error
	Item        ItemRef
	Name        string
	WarehouseID int // zero for the raw-material pool
	Available   int
	Requested   int
}

func (e *ShortageError) Error() string {
	label := e.Name
	if label == "" {
		label = e.Item.String()
	}
	if e.WarehouseID == 0 {
		return fmt.Sprintf("%s: %s has %d, need %d", e.Err, label, e.Available, e.Requested)
	}
	return fmt.Sprintf("%s: %s has %d in warehouse %d, need %d",
		e.Err, label, e.Available, e.WarehouseID, e.Requested)
}

func (e *ShortageError) Unwrap() error { return e.Err }

// AccessDeniedError names the warehouse the acting user may not touch.
type AccessDeniedError struct {
	UserID      int
	WarehouseID int
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("user %d has no access to warehouse %d", e.UserID, e.WarehouseID)
}

func (e *AccessDeniedError) Unwrap() error { return ErrWarehouseAccessDenied }
