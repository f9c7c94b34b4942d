package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Warehouse represents a physical storage location.
type Warehouse struct {
	ID           int       `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	ManagerName  string    `json:"manager_name"`
	ManagerPhone string    `json:"manager_phone"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ItemKind distinguishes the two kinds of stocked items.
type ItemKind string

const (
	ItemProduct     ItemKind = "product"
	ItemRawMaterial ItemKind = "raw_material"
)

// ItemRef identifies a stocked item: a product or a raw material, never both.
type ItemRef struct {
	Kind ItemKind `json:"kind" jsonschema:"enum=product,enum=raw_material"`
	ID   int      `json:"id" jsonschema:"minimum=1"`
}

// ProductItem returns an ItemRef for a product.
func ProductItem(id int) ItemRef { return ItemRef{Kind: ItemProduct, ID: id} }

// RawMaterialItem returns an ItemRef for a raw material.
func RawMaterialItem(id int) ItemRef { return ItemRef{Kind: ItemRawMaterial, ID: id} }

// Validate checks the kind tag and the id.
func (r ItemRef) Validate() error {
	if r.Kind != ItemProduct && r.Kind != ItemRawMaterial {
		return fmt.Errorf("%w: unknown item kind %q", ErrInvalidItem, r.Kind)
	}
	if r.ID <= 0 {
		return fmt.Errorf("%w: %s id must be positive, got %d", ErrInvalidItem, r.Kind, r.ID)
	}
	return nil
}

func (r ItemRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// ParseItemRef builds an ItemRef from operator input such as ("raw", "3").
func ParseItemRef(kind, id string) (ItemRef, error) {
	var ref ItemRef
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "product", "p":
		ref.Kind = ItemProduct
	case "raw_material", "raw-material", "raw", "rm":
		ref.Kind = ItemRawMaterial
	default:
		return ItemRef{}, fmt.Errorf("%w: unknown item kind %q", ErrInvalidItem, kind)
	}
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return ItemRef{}, fmt.Errorf("%w: id %q is not a number", ErrInvalidItem, id)
	}
	ref.ID = n
	return ref, ref.Validate()
}

// column returns the inventory column holding this item's id.
// The value is one of two constants and is safe to splice into SQL.
func (r ItemRef) column() string {
	if r.Kind == ItemRawMaterial {
		return "raw_material_id"
	}
	return "product_id"
}

// ids splits the ref into the (product_id, raw_material_id) pair stored on ledger rows.
func (r ItemRef) ids() (productID, rawMaterialID *int) {
	id := r.ID
	if r.Kind == ItemRawMaterial {
		return nil, &id
	}
	return &id, nil
}

func itemFromIDs(productID, rawMaterialID *int) ItemRef {
	if productID != nil {
		return ProductItem(*productID)
	}
	if rawMaterialID != nil {
		return RawMaterialItem(*rawMaterialID)
	}
	return ItemRef{}
}

// InventoryRecord is one ledger row: a quantity of one item in one warehouse,
// optionally scoped to a batch and an expiry date.
type InventoryRecord struct {
	ID          int        `json:"id"`
	Item        ItemRef    `json:"item"`
	WarehouseID int        `json:"warehouse_id"`
	Quantity    int        `json:"quantity"`
	BatchNo     *string    `json:"batch_no,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// StockLevel is the aggregate on-hand quantity of a product in one warehouse.
type StockLevel struct {
	ProductID     int         `json:"product_id"`
	ProductCode   string      `json:"product_code"`
	ProductName   string      `json:"product_name"`
	WarehouseID   int         `json:"warehouse_id"`
	WarehouseCode string      `json:"warehouse_code"`
	WarehouseName string      `json:"warehouse_name"`
	OnHand        int         `json:"on_hand"`
	ReorderPoint  int         `json:"reorder_point"`
	Status        StockStatus `json:"status"` // product-level status, derived across all warehouses
}

// RawMaterialLevel is the flat production pool of one raw material plus what is held in warehouses.
type RawMaterialLevel struct {
	RawMaterialID int    `json:"raw_material_id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	PoolQuantity  int    `json:"pool_quantity"`
	Warehoused    int    `json:"warehoused_quantity"`
	ReorderPoint  int    `json:"reorder_point"`
	BelowReorder  bool   `json:"below_reorder"`
}

// MaxQuantity is the largest quantity a single intent may carry. Ledger and
// pool quantities are INT4 columns.
const MaxQuantity = math.MaxInt32

// checkQuantity rejects quantities outside 1..MaxQuantity.
func checkQuantity(what string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidQuantity, what, qty)
	}
	if qty > MaxQuantity {
		return fmt.Errorf("%w: %s %d exceeds %d", ErrInvalidQuantity, what, qty, MaxQuantity)
	}
	return nil
}

// IntakeInput is the intent to put stock into a warehouse.
type IntakeInput struct {
	Item        ItemRef    `json:"item"`
	WarehouseID int        `json:"warehouse_id" jsonschema:"minimum=1"`
	Quantity    int        `json:"quantity" jsonschema:"minimum=1,maximum=2147483647"`
	BatchNo     *string    `json:"batch_no,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	IntakeDate  *time.Time `json:"intake_date,omitempty"`
	StaffUserID *int       `json:"-"`
}

// Validate checks the intent before any ledger access.
func (in IntakeInput) Validate() error {
	if err := in.Item.Validate(); err != nil {
		return err
	}
	if in.WarehouseID <= 0 {
		return fmt.Errorf("%w: id %d", ErrWarehouseNotFound, in.WarehouseID)
	}
	if err := checkQuantity("intake quantity", in.Quantity); err != nil {
		return err
	}
	return nil
}

// TransferInput is the intent to move stock between two warehouses.
type TransferInput struct {
	Item            ItemRef `json:"item"`
	FromWarehouseID int     `json:"from_warehouse_id" jsonschema:"minimum=1"`
	ToWarehouseID   int     `json:"to_warehouse_id" jsonschema:"minimum=1"`
	Quantity        int     `json:"quantity" jsonschema:"minimum=1,maximum=2147483647"`
	UserID          *int    `json:"-"`
}

// Validate checks the intent before any ledger access.
func (in TransferInput) Validate() error {
	if err := in.Item.Validate(); err != nil {
		return err
	}
	if err := checkQuantity("transfer quantity", in.Quantity); err != nil {
		return err
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return fmt.Errorf("%w: warehouse %d", ErrSameWarehouse, in.FromWarehouseID)
	}
	return nil
}

// WarehouseTransfer is the immutable log row written by a successful transfer.
type WarehouseTransfer struct {
	ID              int       `json:"id"`
	FromWarehouseID int       `json:"from_warehouse_id"`
	ToWarehouseID   int       `json:"to_warehouse_id"`
	Item            ItemRef   `json:"item"`
	Quantity        int       `json:"quantity"`
	CreatedBy       *int      `json:"created_by,omitempty"`
	TransferredAt   time.Time `json:"transferred_at"`
}

// RawMaterialIntakeInput adds stock to a raw material's production pool.
type RawMaterialIntakeInput struct {
	RawMaterialID int        `json:"raw_material_id" jsonschema:"minimum=1"`
	Quantity      int        `json:"quantity" jsonschema:"minimum=1,maximum=2147483647"`
	Supplier      string     `json:"supplier,omitempty"`
	BatchNo       *string    `json:"batch_no,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	IntakeDate    *time.Time `json:"intake_date,omitempty"`
	StaffUserID   *int       `json:"-"`
}

// Validate checks the intent before any write.
func (in RawMaterialIntakeInput) Validate() error {
	if in.RawMaterialID <= 0 {
		return fmt.Errorf("%w: id %d", ErrRawMaterialNotFound, in.RawMaterialID)
	}
	if err := checkQuantity("intake quantity", in.Quantity); err != nil {
		return err
	}
	return nil
}

// BatchAllocation records how much of a deduction was taken from one ledger row.
type BatchAllocation struct {
	RecordID   int        `json:"record_id"`
	BatchNo    *string    `json:"batch_no,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Quantity   int        `json:"quantity"`
}

// lineTotal multiplies an integer quantity by a unit price rounded to cents,
// matching what the NUMERIC(14,2) columns store.
func lineTotal(qty int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Round(2).Mul(decimal.NewFromInt(int64(qty)))
}
