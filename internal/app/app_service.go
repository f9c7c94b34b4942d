package app

import (
	"context"
	"fmt"

	"stock-engine/internal/core"
)

type appService struct {
	catalogService    core.CatalogService
	inventoryService  core.InventoryService
	invoiceService    core.InvoiceService
	productionService core.ProductionService
	userService       core.UserService
	access            core.WarehouseAccessChecker
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	catalogService core.CatalogService,
	inventoryService core.InventoryService,
	invoiceService core.InvoiceService,
	productionService core.ProductionService,
	userService core.UserService,
	access core.WarehouseAccessChecker,
) ApplicationService {
	return &appService{
		catalogService:    catalogService,
		inventoryService:  inventoryService,
		invoiceService:    invoiceService,
		productionService: productionService,
		userService:       userService,
		access:            access,
	}
}

// checkAccess enforces hasWarehouseAccess for every warehouse the mutation touches.
func (s *appService) checkAccess(ctx context.Context, actor Actor, warehouseIDs ...int) error {
	if actor.isLocal() || actor.isAdmin() {
		return nil
	}
	return core.CheckWarehouseAccess(ctx, s.access, actor.UserID, warehouseIDs...)
}

// ── Users ────────────────────────────────────────────────────────────────────

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.userService.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return &UserSession{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	u, err := s.userService.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}, nil
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (s *appService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.catalogService.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) CreateProduct(ctx context.Context, in core.ProductInput) (*core.Product, error) {
	return s.catalogService.CreateProduct(ctx, in)
}

func (s *appService) ListRawMaterials(ctx context.Context) (*RawMaterialListResult, error) {
	materials, err := s.catalogService.GetRawMaterials(ctx)
	if err != nil {
		return nil, err
	}
	return &RawMaterialListResult{RawMaterials: materials}, nil
}

func (s *appService) CreateRawMaterial(ctx context.Context, in core.RawMaterialInput) (*core.RawMaterial, error) {
	return s.catalogService.CreateRawMaterial(ctx, in)
}

func (s *appService) ReceiveRawMaterial(ctx context.Context, actor Actor, in core.RawMaterialIntakeInput) (*core.RawMaterial, error) {
	in.StaffUserID = actor.userRef()
	return s.catalogService.ReceiveRawMaterial(ctx, in)
}

func (s *appService) ListWarehouses(ctx context.Context) (*WarehouseListResult, error) {
	warehouses, err := s.catalogService.GetWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	return &WarehouseListResult{Warehouses: warehouses}, nil
}

func (s *appService) CreateWarehouse(ctx context.Context, in core.WarehouseInput) (*core.Warehouse, error) {
	return s.catalogService.CreateWarehouse(ctx, in)
}

// ── Stock ────────────────────────────────────────────────────────────────────

func (s *appService) GetStockLevels(ctx context.Context) (*StockResult, error) {
	levels, err := s.inventoryService.GetStockLevels(ctx)
	if err != nil {
		return nil, err
	}
	return &StockResult{Levels: levels}, nil
}

func (s *appService) GetRawMaterialLevels(ctx context.Context) (*RawMaterialLevelsResult, error) {
	levels, err := s.inventoryService.GetRawMaterialLevels(ctx)
	if err != nil {
		return nil, err
	}
	return &RawMaterialLevelsResult{Levels: levels}, nil
}

func (s *appService) GetItemLedger(ctx context.Context, item core.ItemRef) (*LedgerResult, error) {
	records, err := s.inventoryService.GetLedgerRows(ctx, item)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, r := range records {
		total += r.Quantity
	}
	return &LedgerResult{Item: item, OnHand: total, Records: records}, nil
}

func (s *appService) IntakeStock(ctx context.Context, actor Actor, in core.IntakeInput) (*core.InventoryRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, actor, in.WarehouseID); err != nil {
		return nil, err
	}
	in.StaffUserID = actor.userRef()
	return s.inventoryService.Intake(ctx, in)
}

func (s *appService) TransferStock(ctx context.Context, actor Actor, in core.TransferInput) (*core.WarehouseTransfer, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, actor, in.FromWarehouseID, in.ToWarehouseID); err != nil {
		return nil, err
	}
	in.UserID = actor.userRef()
	return s.inventoryService.Transfer(ctx, in)
}

func (s *appService) ListTransfers(ctx context.Context, limit int) (*TransferListResult, error) {
	transfers, err := s.inventoryService.ListTransfers(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &TransferListResult{Transfers: transfers}, nil
}

func (s *appService) RecomputeStatus(ctx context.Context, productID int) (*StatusResult, error) {
	status, err := s.inventoryService.RecomputeStatus(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &StatusResult{ProductID: productID, Status: status}, nil
}

func (s *appService) RefreshStatuses(ctx context.Context) (*RefreshResult, error) {
	n, err := s.inventoryService.RefreshAllStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("status refresh stopped: %w", err)
	}
	return &RefreshResult{Products: n}, nil
}

// ── Invoices ─────────────────────────────────────────────────────────────────

func (s *appService) CreateInvoice(ctx context.Context, actor Actor, in core.InvoiceInput) (*core.Invoice, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, actor, in.WarehouseID); err != nil {
		return nil, err
	}
	in.CreatedBy = actor.userRef()
	return s.invoiceService.CreateInvoice(ctx, in)
}

func (s *appService) GetInvoice(ctx context.Context, invoiceID int) (*core.Invoice, error) {
	return s.invoiceService.GetInvoice(ctx, invoiceID)
}

func (s *appService) ListInvoices(ctx context.Context, limit int) (*InvoiceListResult, error) {
	invoices, err := s.invoiceService.ListInvoices(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices}, nil
}

// ── Production ───────────────────────────────────────────────────────────────

func (s *appService) ListRequirements(ctx context.Context) (*RequirementListResult, error) {
	reqs, err := s.productionService.ListRequirements(ctx)
	if err != nil {
		return nil, err
	}
	return &RequirementListResult{Requirements: reqs}, nil
}

func (s *appService) GetRequirement(ctx context.Context, requirementID int) (*core.ProductionRequirement, error) {
	return s.productionService.GetRequirement(ctx, requirementID)
}

func (s *appService) GetRequirementByProduct(ctx context.Context, productID int) (*core.ProductionRequirement, error) {
	return s.productionService.GetRequirementByProduct(ctx, productID)
}

func (s *appService) CreateRequirement(ctx context.Context, in core.RequirementInput) (*core.ProductionRequirement, error) {
	return s.productionService.CreateRequirement(ctx, in)
}

func (s *appService) ReplaceRequirementItems(ctx context.Context, requirementID int, items []core.RequirementItemInput) (*core.ProductionRequirement, error) {
	return s.productionService.ReplaceRequirementItems(ctx, requirementID, items)
}

func (s *appService) DeleteRequirement(ctx context.Context, requirementID int) error {
	return s.productionService.DeleteRequirement(ctx, requirementID)
}

func (s *appService) CalculateMaterials(ctx context.Context, productID, buildQuantity int) (*core.MaterialCalculation, error) {
	return s.productionService.CalculateMaterials(ctx, productID, buildQuantity)
}

func (s *appService) ApproveProduction(ctx context.Context, actor Actor, in core.ProductionInput) (*core.ProductionResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.WarehouseID != nil {
		if err := s.checkAccess(ctx, actor, *in.WarehouseID); err != nil {
			return nil, err
		}
	}
	return s.productionService.ApproveProduction(ctx, in)
}
