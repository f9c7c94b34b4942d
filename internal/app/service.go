package app

import (
	"context"

	"stock-engine/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
//
// Mutations take an Actor. Warehouse access is checked for the actor before
// the core is called, so a denied request never touches the ledger.
type ApplicationService interface {
	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)

	// Catalog
	ListProducts(ctx context.Context) (*ProductListResult, error)
	CreateProduct(ctx context.Context, in core.ProductInput) (*core.Product, error)
	ListRawMaterials(ctx context.Context) (*RawMaterialListResult, error)
	CreateRawMaterial(ctx context.Context, in core.RawMaterialInput) (*core.RawMaterial, error)
	// ReceiveRawMaterial adds to a raw material's production pool.
	ReceiveRawMaterial(ctx context.Context, actor Actor, in core.RawMaterialIntakeInput) (*core.RawMaterial, error)
	ListWarehouses(ctx context.Context) (*WarehouseListResult, error)
	CreateWarehouse(ctx context.Context, in core.WarehouseInput) (*core.Warehouse, error)

	// Stock
	GetStockLevels(ctx context.Context) (*StockResult, error)
	GetRawMaterialLevels(ctx context.Context) (*RawMaterialLevelsResult, error)
	GetItemLedger(ctx context.Context, item core.ItemRef) (*LedgerResult, error)
	IntakeStock(ctx context.Context, actor Actor, in core.IntakeInput) (*core.InventoryRecord, error)
	TransferStock(ctx context.Context, actor Actor, in core.TransferInput) (*core.WarehouseTransfer, error)
	ListTransfers(ctx context.Context, limit int) (*TransferListResult, error)
	RecomputeStatus(ctx context.Context, productID int) (*StatusResult, error)
	// RefreshStatuses recomputes every product's status from the ledger.
	RefreshStatuses(ctx context.Context) (*RefreshResult, error)

	// Invoices
	CreateInvoice(ctx context.Context, actor Actor, in core.InvoiceInput) (*core.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID int) (*core.Invoice, error)
	ListInvoices(ctx context.Context, limit int) (*InvoiceListResult, error)

	// Production
	ListRequirements(ctx context.Context) (*RequirementListResult, error)
	GetRequirement(ctx context.Context, requirementID int) (*core.ProductionRequirement, error)
	GetRequirementByProduct(ctx context.Context, productID int) (*core.ProductionRequirement, error)
	CreateRequirement(ctx context.Context, in core.RequirementInput) (*core.ProductionRequirement, error)
	ReplaceRequirementItems(ctx context.Context, requirementID int, items []core.RequirementItemInput) (*core.ProductionRequirement, error)
	DeleteRequirement(ctx context.Context, requirementID int) error
	CalculateMaterials(ctx context.Context, productID, buildQuantity int) (*core.MaterialCalculation, error)
	ApproveProduction(ctx context.Context, actor Actor, in core.ProductionInput) (*core.ProductionResult, error)
}
