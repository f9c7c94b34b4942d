package core_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"stock-engine/internal/core"

	"github.com/shopspring/decimal"
)

func TestInvoice_DeductsAndTurnsRed(t *testing.T) {
	pool, ctx := setupTestDB(t)
	inv := core.NewInventoryService(pool)
	invoices := core.NewInvoiceService(pool, core.NewDocumentService(pool))
	intake(t, ctx, inv, core.ProductItem(prodWidget), whMain, 10)

	got, err := invoices.CreateInvoice(ctx, core.InvoiceInput{
		CustomerName: "Acme Corp",
		WarehouseID:  whMain,
		Items:        []core.InvoiceLineInput{{ProductID: prodWidget, Quantity: 7}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	if n := onHand(t, ctx, inv, core.ProductItem(prodWidget), 0); n != 3 {
		t.Errorf("expected aggregate 3, got %d", n)
	}
	if s := productStatus(t, ctx, pool, prodWidget); s != core.StatusRed {
		t.Errorf("expected Red at 3 vs reorder 5, got %s", s)
	}
	if !got.TotalAmount.Equal(decimal.NewFromInt(70)) {
		t.Errorf("expected total 70 at the product's unit price, got %s", got.TotalAmount)
	}
	if got.Status != "unpaid" {
		t.Errorf("expected default status unpaid, got %s", got.Status)
	}
	if want := fmt.Sprintf("INV-%d-00001", time.Now().UTC().Year()); got.InvoiceNumber != want {
		t.Errorf("expected generated number %s, got %s", want, got.InvoiceNumber)
	}
	if len(got.Items) != 1 || got.Items[0].ID == 0 || got.Items[0].ProductName != "Widget" {
		t.Errorf("unexpected items: %+v", got.Items)
	}

	loaded, err := invoices.GetInvoice(ctx, got.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if loaded.InvoiceNumber != got.InvoiceNumber || len(loaded.Items) != 1 || loaded.Items[0].Quantity != 7 {
		t.Errorf("stored invoice differs: %+v", loaded)
	}
}

func TestInvoice_InsufficientStockLeavesLedger(t *testing.T) {
	pool, ctx := setupTestDB(t)
	inv := core.NewInventoryService(pool)
	invoices := core.NewInvoiceService(pool, core.NewDocumentService(pool))
	intake(t, ctx, inv, core.ProductItem(prodWidget), whMain, 10)

	_, err := invoices.CreateInvoice(ctx, core.InvoiceInput{
		CustomerName: "Acme Corp",
		WarehouseID:  whMain,
		Items:        []core.InvoiceLineInput{{ProductID: prodWidget, Quantity: 12}},
	})
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if !strings.Contains(err.Error(), "Widget") {
		t.Errorf("error should name the product: %v", err)
	}
	if n := onHand(t, ctx, inv, core.ProductItem(prodWidget), whMain); n != 10 {
		t.Errorf("expected 10 untouched, got %d", n)
	}
	list, err := invoices.ListInvoices(ctx, 10)
	if err != nil {
		t.Fatalf("ListInvoices failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("no invoice should be stored, got %d", len(list))
	}
}

func TestInvoice_FailingLineKeepsEveryLineUntouched(t *testing.T) {
	pool, ctx := setupTestDB(t)
	inv := core.NewInventoryService(pool)
	invoices := core.NewInvoiceService(pool, core.NewDocumentService(pool))
	intake(t, ctx, inv, core.ProductItem(prodWidget), whMain, 10)
	intake(t, ctx, inv, core.ProductItem(prodGadget), whMain, 1)

	_, err := invoices.CreateInvoice(ctx, core.InvoiceInput{
		CustomerName: "Acme Corp",
		WarehouseID:  whMain,
		Items: []core.InvoiceLineInput{
			{ProductID: prodWidget, Quantity: 4},
			{ProductID: prodGadget, Quantity: 2},
		},
	})
	var se *core.ShortageError
	if !errors.As(err, &se) || se.Item != core.ProductItem(prodGadget) {
		t.Fatalf("expected a shortage on Gadget, got %v", err)
	}
	if n := onHand(t, ctx, inv, core.ProductItem(prodWidget), whMain); n != 10 {
		t.Errorf("Widget must be untouched, got %d", n)
	}
	if n := onHand(t, ctx, inv, core.ProductItem(prodGadget), whMain); n != 1 {
		t.Errorf("Gadget must be untouched, got %d", n)
	}
}

func TestInvoice_SameProductOnTwoLinesIsCheckedTogether(t *testing.T) {
	pool, ctx := setupTestDB(t)
	inv := core.NewInventoryService(pool)
	invoices := core.NewInvoiceService(pool, core.NewDocumentService(pool))
	intake(t, ctx, inv, core.ProductItem(prodWidget), whMain, 5)

	_, err := invoices.CreateInvoice(ctx, core.InvoiceInput{
		CustomerName: "Acme Corp",
		WarehouseID:  whMain,
		Items: []core.InvoiceLineInput{
			{ProductID: prodWidget, Quantity: 3},
			{ProductID: prodWidget, Quantity: 3},
		},
	})
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for 6 against 5, got %v", err)
	}
	if n := onHand(t, ctx, inv, core.ProductItem(prodWidget), whMain); n != 5 {
		t.Errorf("expected 5 untouched, got %d", n)
	}
}

func TestInvoice_ExplicitPriceNumberAndUnknownProduct(t *testing.T) {
	pool, ctx := setupTestDB(t)
	inv := core.NewInventoryService(pool)
	invoices := core.NewInvoiceService(pool, core.NewDocumentService(pool))
	intake(t, ctx, inv, core.ProductItem(prodGadget), whNorth, 6)

	price := decimal.RequireFromString("19.99")
	got, err := invoices.CreateInvoice(ctx, core.InvoiceInput{
		InvoiceNumber: "MANUAL-1",
		CustomerName:  "Beta Industries",
		WarehouseID:   whNorth,
		Status:        "paid",
		Items:         []core.InvoiceLineInput{{ProductID: prodGadget, Quantity: 2, UnitPrice: &price}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if !got.TotalAmount.Equal(decimal.RequireFromString("39.98")) {
		t.Errorf("expected 39.98, got %s", got.TotalAmount)
	}

	_, err = invoices.CreateInvoice(ctx, core.InvoiceInput{
		InvoiceNumber: "MANUAL-1",
		CustomerName:  "Beta Industries",
		WarehouseID:   whNorth,
		Items:         []core.InvoiceLineInput{{ProductID: prodGadget, Quantity: 1}},
	})
	if !errors.Is(err, core.ErrDuplicateInvoiceNumber) {
		t.Errorf("expected ErrDuplicateInvoiceNumber, got %v", err)
	}
	if n := onHand(t, ctx, inv, core.ProductItem(prodGadget), whNorth); n != 4 {
		t.Errorf("duplicate-number invoice must roll back its deduction, got %d", n)
	}

	_, err = invoices.CreateInvoice(ctx, core.InvoiceInput{
		CustomerName: "Beta Industries",
		WarehouseID:  whNorth,
		Items:        []core.InvoiceLineInput{{ProductID: 404, Quantity: 1}},
	})
	if !errors.Is(err, core.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}

	if _, err := invoices.GetInvoice(ctx, 999); !errors.Is(err, core.ErrInvoiceNotFound) {
		t.Errorf("expected ErrInvoiceNotFound, got %v", err)
	}
}

func TestInvoice_SubCentPriceIsStoredAsReturned(t *testing.T) {
	pool, ctx := setupTestDB(t)
	inv := core.NewInventoryService(pool)
	invoices := core.NewInvoiceService(pool, core.NewDocumentService(pool))
	intake(t, ctx, inv, core.ProductItem(prodWidget), whMain, 10)

	price := decimal.RequireFromString("1.239")
	got, err := invoices.CreateInvoice(ctx, core.InvoiceInput{
		CustomerName: "Acme Corp",
		WarehouseID:  whMain,
		Items:        []core.InvoiceLineInput{{ProductID: prodWidget, Quantity: 3, UnitPrice: &price}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if !got.Items[0].UnitPrice.Equal(decimal.RequireFromString("1.24")) {
		t.Errorf("expected unit price 1.24, got %s", got.Items[0].UnitPrice)
	}
	if !got.TotalAmount.Equal(decimal.RequireFromString("3.72")) {
		t.Errorf("expected total 3.72, got %s", got.TotalAmount)
	}

	loaded, err := invoices.GetInvoice(ctx, got.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if !loaded.TotalAmount.Equal(got.TotalAmount) ||
		!loaded.Items[0].LineTotal.Equal(got.Items[0].LineTotal) ||
		!loaded.Items[0].UnitPrice.Equal(got.Items[0].UnitPrice) {
		t.Errorf("stored invoice differs from returned: stored %s/%s/%s, returned %s/%s/%s",
			loaded.Items[0].UnitPrice, loaded.Items[0].LineTotal, loaded.TotalAmount,
			got.Items[0].UnitPrice, got.Items[0].LineTotal, got.TotalAmount)
	}
}

// runConcurrentInvoices starts every invoice at the same moment and returns their errors.
func runConcurrentInvoices(invoices core.InvoiceService, inputs ...core.InvoiceInput) []error {
	var wg sync.WaitGroup
	errs := make([]error, len(inputs))
	start := make(chan struct{})
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = invoices.CreateInvoice(context.Background(), inputs[i])
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func TestInvoice_ConcurrentInvoicesOnLastUnits(t *testing.T) {
	pool, ctx := setupTestDB(t)
	inv := core.NewInventoryService(pool)
	invoices := core.NewInvoiceService(pool, core.NewDocumentService(pool))
	intake(t, ctx, inv, core.ProductItem(prodWidget), whMain, 6)
	intake(t, ctx, inv, core.ProductItem(prodGadget), whMain, 2)

	// Opposite line orders: both invoices must still lock products in the same order.
	errs := runConcurrentInvoices(invoices,
		core.InvoiceInput{CustomerName: "Acme", WarehouseID: whMain, Items: []core.InvoiceLineInput{
			{ProductID: prodWidget, Quantity: 6}, {ProductID: prodGadget, Quantity: 1}}},
		core.InvoiceInput{CustomerName: "Beta", WarehouseID: whMain, Items: []core.InvoiceLineInput{
			{ProductID: prodGadget, Quantity: 1}, {ProductID: prodWidget, Quantity: 6}}},
	)

	succeeded, short := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, core.ErrInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error (deadlock or lock failure?): %v", err)
		}
	}
	if succeeded != 1 || short != 1 {
		t.Fatalf("expected one success and one InsufficientStock, got %d and %d", succeeded, short)
	}
	if n := onHand(t, ctx, inv, core.ProductItem(prodWidget), whMain); n != 0 {
		t.Errorf("expected 0 widgets left, got %d", n)
	}
	if n := onHand(t, ctx, inv, core.ProductItem(prodGadget), whMain); n != 1 {
		t.Errorf("the rejected invoice must not deduct its gadget line, got %d left", n)
	}
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices").Scan(&count); err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one stored invoice, got %d", count)
	}
}

func TestInvoice_ConcurrentInvoicesBothFit(t *testing.T) {
	pool, ctx := setupTestDB(t)
	inv := core.NewInventoryService(pool)
	invoices := core.NewInvoiceService(pool, core.NewDocumentService(pool))
	intake(t, ctx, inv, core.ProductItem(prodWidget), whMain, 10)
	intake(t, ctx, inv, core.ProductItem(prodGadget), whMain, 10)

	errs := runConcurrentInvoices(invoices,
		core.InvoiceInput{CustomerName: "Acme", WarehouseID: whMain, Items: []core.InvoiceLineInput{
			{ProductID: prodWidget, Quantity: 3}, {ProductID: prodGadget, Quantity: 4}}},
		core.InvoiceInput{CustomerName: "Beta", WarehouseID: whMain, Items: []core.InvoiceLineInput{
			{ProductID: prodGadget, Quantity: 4}, {ProductID: prodWidget, Quantity: 3}}},
	)
	for i, err := range errs {
		if err != nil {
			t.Fatalf("invoice %d failed: %v", i, err)
		}
	}
	if n := onHand(t, ctx, inv, core.ProductItem(prodWidget), whMain); n != 4 {
		t.Errorf("expected 4 widgets left, got %d", n)
	}
	if n := onHand(t, ctx, inv, core.ProductItem(prodGadget), whMain); n != 2 {
		t.Errorf("expected 2 gadgets left, got %d", n)
	}
	var distinct int
	if err := pool.QueryRow(ctx, "SELECT COUNT(DISTINCT invoice_number) FROM invoices").Scan(&distinct); err != nil {
		t.Fatalf("count invoice numbers: %v", err)
	}
	if distinct != 2 {
		t.Errorf("expected two distinct invoice numbers, got %d", distinct)
	}
}
