package app

import "stock-engine/internal/core"

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserResult is returned by GetUser.
type UserResult struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// RawMaterialListResult is returned by ListRawMaterials.
type RawMaterialListResult struct {
	RawMaterials []core.RawMaterial `json:"raw_materials"`
}

// WarehouseListResult is returned by ListWarehouses.
type WarehouseListResult struct {
	Warehouses []core.Warehouse `json:"warehouses"`
}

// StockResult is returned by GetStockLevels.
type StockResult struct {
	Levels []core.StockLevel `json:"levels"`
}

// RawMaterialLevelsResult is returned by GetRawMaterialLevels.
type RawMaterialLevelsResult struct {
	Levels []core.RawMaterialLevel `json:"levels"`
}

// LedgerResult is returned by GetItemLedger.
type LedgerResult struct {
	Item    core.ItemRef           `json:"item"`
	OnHand  int                    `json:"on_hand"`
	Records []core.InventoryRecord `json:"records"`
}

// TransferListResult is returned by ListTransfers.
type TransferListResult struct {
	Transfers []core.WarehouseTransfer `json:"transfers"`
}

// StatusResult is returned by RecomputeStatus.
type StatusResult struct {
	ProductID int              `json:"product_id"`
	Status    core.StockStatus `json:"status"`
}

// RefreshResult is returned by RefreshStatuses.
type RefreshResult struct {
	Products int `json:"products"`
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Invoices []core.Invoice `json:"invoices"`
}

// RequirementListResult is returned by ListRequirements.
type RequirementListResult struct {
	Requirements []core.ProductionRequirement `json:"requirements"`
}
