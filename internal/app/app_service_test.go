package app_test

import (
	"context"
	"errors"
	"testing"

	"stock-engine/internal/app"
	"stock-engine/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fakes embed the core interfaces; any method a test does not expect panics.

type fakeInventory struct {
	core.InventoryService
	intakes   []core.IntakeInput
	transfers []core.TransferInput
}

func (f *fakeInventory) Intake(_ context.Context, in core.IntakeInput) (*core.InventoryRecord, error) {
	f.intakes = append(f.intakes, in)
	return &core.InventoryRecord{ID: 1, Item: in.Item, WarehouseID: in.WarehouseID, Quantity: in.Quantity}, nil
}

func (f *fakeInventory) Transfer(_ context.Context, in core.TransferInput) (*core.WarehouseTransfer, error) {
	f.transfers = append(f.transfers, in)
	return &core.WarehouseTransfer{ID: 1, Item: in.Item, Quantity: in.Quantity}, nil
}

func (f *fakeInventory) GetLedgerRows(_ context.Context, item core.ItemRef) ([]core.InventoryRecord, error) {
	return []core.InventoryRecord{{Item: item, Quantity: 3}, {Item: item, Quantity: 4}}, nil
}

type fakeInvoices struct {
	core.InvoiceService
	created []core.InvoiceInput
}

func (f *fakeInvoices) CreateInvoice(_ context.Context, in core.InvoiceInput) (*core.Invoice, error) {
	f.created = append(f.created, in)
	return &core.Invoice{ID: 7, CustomerName: in.CustomerName, WarehouseID: in.WarehouseID}, nil
}

type fakeProduction struct {
	core.ProductionService
	approved []core.ProductionInput
}

func (f *fakeProduction) ApproveProduction(_ context.Context, in core.ProductionInput) (*core.ProductionResult, error) {
	f.approved = append(f.approved, in)
	return &core.ProductionResult{ProductID: in.ProductID, BuildQuantity: in.Quantity}, nil
}

type fakeUsers struct {
	core.UserService
}

func (fakeUsers) Authenticate(_ context.Context, username, password string) (*core.User, error) {
	if username == "alice" && password == "secret" {
		return &core.User{ID: 5, Username: "alice", Role: "staff"}, nil
	}
	return nil, core.ErrInvalidCredentials
}

// grants maps user id to the warehouses they may touch.
type fakeAccess map[int][]int

func (f fakeAccess) HasWarehouseAccess(_ context.Context, userID, warehouseID int) (bool, error) {
	for _, w := range f[userID] {
		if w == warehouseID {
			return true, nil
		}
	}
	return false, nil
}

type fixture struct {
	svc        app.ApplicationService
	inventory  *fakeInventory
	invoices   *fakeInvoices
	production *fakeProduction
}

func newFixture() fixture {
	inv := &fakeInventory{}
	invoices := &fakeInvoices{}
	prod := &fakeProduction{}
	access := fakeAccess{5: {1}}
	return fixture{
		svc:        app.NewAppService(nil, inv, invoices, prod, fakeUsers{}, access),
		inventory:  inv,
		invoices:   invoices,
		production: prod,
	}
}

var staff = app.Actor{UserID: 5, Username: "alice", Role: "staff"}

func TestIntakeStock_ChecksAccessAndStampsUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.IntakeStock(ctx, staff, core.IntakeInput{Item: core.ProductItem(1), WarehouseID: 1, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, f.inventory.intakes, 1)
	require.NotNil(t, f.inventory.intakes[0].StaffUserID)
	assert.Equal(t, 5, *f.inventory.intakes[0].StaffUserID)

	_, err = f.svc.IntakeStock(ctx, staff, core.IntakeInput{Item: core.ProductItem(1), WarehouseID: 2, Quantity: 2})
	assert.ErrorIs(t, err, core.ErrWarehouseAccessDenied)
	assert.Len(t, f.inventory.intakes, 1, "denied intake must not reach the ledger")
}

func TestIntakeStock_ValidatesBeforeAccess(t *testing.T) {
	f := newFixture()
	_, err := f.svc.IntakeStock(context.Background(), staff, core.IntakeInput{Item: core.ProductItem(1), WarehouseID: 2, Quantity: 0})
	assert.ErrorIs(t, err, core.ErrInvalidQuantity)
}

func TestTransferStock_RequiresBothWarehouses(t *testing.T) {
	f := newFixture()
	_, err := f.svc.TransferStock(context.Background(), staff, core.TransferInput{
		Item: core.ProductItem(1), FromWarehouseID: 1, ToWarehouseID: 2, Quantity: 1,
	})
	var denied *core.AccessDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, 2, denied.WarehouseID)
	assert.Empty(t, f.inventory.transfers)
}

func TestLocalAndAdminActorsBypassAccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	in := core.TransferInput{Item: core.ProductItem(1), FromWarehouseID: 3, ToWarehouseID: 4, Quantity: 1}

	_, err := f.svc.TransferStock(ctx, app.Actor{}, in)
	require.NoError(t, err)
	assert.Nil(t, f.inventory.transfers[0].UserID)

	_, err = f.svc.TransferStock(ctx, app.Actor{UserID: 9, Role: core.RoleAdmin}, in)
	require.NoError(t, err)
	assert.Equal(t, 9, *f.inventory.transfers[1].UserID)
}

func TestCreateInvoice_AccessDenied(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateInvoice(context.Background(), staff, core.InvoiceInput{
		CustomerName: "Acme", WarehouseID: 2,
		Items: []core.InvoiceLineInput{{ProductID: 1, Quantity: 1}},
	})
	assert.ErrorIs(t, err, core.ErrWarehouseAccessDenied)
	assert.Empty(t, f.invoices.created)

	inv, err := f.svc.CreateInvoice(context.Background(), staff, core.InvoiceInput{
		CustomerName: "Acme", WarehouseID: 1,
		Items: []core.InvoiceLineInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, inv.ID)
	assert.Equal(t, 5, *f.invoices.created[0].CreatedBy)
}

func TestApproveProduction_ChecksWarehouseOnlyWhenGiven(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.ApproveProduction(ctx, staff, core.ProductionInput{ProductID: 1, Quantity: 5})
	require.NoError(t, err)

	wh := 2
	_, err = f.svc.ApproveProduction(ctx, staff, core.ProductionInput{ProductID: 1, Quantity: 5, WarehouseID: &wh})
	assert.ErrorIs(t, err, core.ErrWarehouseAccessDenied)
	assert.Len(t, f.production.approved, 1)
}

func TestAuthenticateUser(t *testing.T) {
	f := newFixture()
	session, err := f.svc.AuthenticateUser(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, app.UserSession{UserID: 5, Username: "alice", Role: "staff"}, *session)

	_, err = f.svc.AuthenticateUser(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestGetItemLedger_SumsRecords(t *testing.T) {
	f := newFixture()
	res, err := f.svc.GetItemLedger(context.Background(), core.RawMaterialItem(2))
	require.NoError(t, err)
	assert.Equal(t, 7, res.OnHand)
	assert.Len(t, res.Records, 2)
}
