package core_test

import (
	"errors"
	"testing"

	"stock-engine/internal/core"
)

func TestProduction_CalculateAndRejectShortPool(t *testing.T) {
	pool, ctx := setupTestDB(t)
	prod := core.NewProductionService(pool)

	if _, err := prod.CreateRequirement(ctx, core.RequirementInput{
		ProductID: prodWidget,
		Items:     []core.RequirementItemInput{{RawMaterialID: rawFlour, QuantityPerUnit: 2}},
	}); err != nil {
		t.Fatalf("CreateRequirement failed: %v", err)
	}

	calc, err := prod.CalculateMaterials(ctx, prodWidget, 5)
	if err != nil {
		t.Fatalf("CalculateMaterials failed: %v", err)
	}
	if len(calc.Materials) != 1 || calc.Materials[0].Required != 10 || calc.Materials[0].RawMaterialID != rawFlour {
		t.Fatalf("expected {Flour: 10}, got %+v", calc.Materials)
	}
	if calc.Materials[0].Sufficient {
		t.Error("pool of 8 should not be sufficient for 10")
	}

	_, err = prod.ApproveProduction(ctx, core.ProductionInput{ProductID: prodWidget, Quantity: 5})
	if !errors.Is(err, core.ErrInsufficientRawMaterial) {
		t.Fatalf("expected ErrInsufficientRawMaterial, got %v", err)
	}
	var se *core.ShortageError
	if !errors.As(err, &se) || se.Name != "Flour" || se.Available != 8 || se.Requested != 10 {
		t.Errorf("unexpected shortage details: %+v", se)
	}

	var pool8 int
	if err := pool.QueryRow(ctx, "SELECT opening_stock FROM raw_materials WHERE id = $1", rawFlour).Scan(&pool8); err != nil {
		t.Fatalf("read pool: %v", err)
	}
	if pool8 != 8 {
		t.Errorf("expected pool still 8, got %d", pool8)
	}
}

func TestProduction_ApproveConsumesEveryMaterialOrNone(t *testing.T) {
	pool, ctx := setupTestDB(t)
	prod := core.NewProductionService(pool)

	if _, err := prod.CreateRequirement(ctx, core.RequirementInput{
		ProductID: prodGadget,
		Items: []core.RequirementItemInput{
			{RawMaterialID: rawSugar, QuantityPerUnit: 10},
			{RawMaterialID: rawFlour, QuantityPerUnit: 2},
		},
	}); err != nil {
		t.Fatalf("CreateRequirement failed: %v", err)
	}

	// Flour limits the run to 4 units.
	if _, err := prod.ApproveProduction(ctx, core.ProductionInput{ProductID: prodGadget, Quantity: 5}); !errors.Is(err, core.ErrInsufficientRawMaterial) {
		t.Fatalf("expected ErrInsufficientRawMaterial, got %v", err)
	}
	var sugar int
	_ = pool.QueryRow(ctx, "SELECT opening_stock FROM raw_materials WHERE id = $1", rawSugar).Scan(&sugar)
	if sugar != 100 {
		t.Errorf("sugar must not be consumed by a rejected run, got %d", sugar)
	}

	res, err := prod.ApproveProduction(ctx, core.ProductionInput{ProductID: prodGadget, Quantity: 4})
	if err != nil {
		t.Fatalf("ApproveProduction failed: %v", err)
	}
	if len(res.Materials) != 2 {
		t.Fatalf("expected 2 consumed materials, got %+v", res.Materials)
	}
	for _, m := range res.Materials {
		switch m.RawMaterialID {
		case rawFlour:
			if m.Consumed != 8 || m.Remaining != 0 {
				t.Errorf("unexpected flour consumption: %+v", m)
			}
		case rawSugar:
			if m.Consumed != 40 || m.Remaining != 60 {
				t.Errorf("unexpected sugar consumption: %+v", m)
			}
		}
	}
}

func TestProduction_LedgerBackedConsumption(t *testing.T) {
	pool, ctx := setupTestDB(t)
	prod := core.NewProductionService(pool)
	inv := core.NewInventoryService(pool)
	intake(t, ctx, inv, core.RawMaterialItem(rawFlour), whNorth, 12)

	if _, err := prod.CreateRequirement(ctx, core.RequirementInput{
		ProductID: prodWidget,
		Items:     []core.RequirementItemInput{{RawMaterialID: rawFlour, QuantityPerUnit: 2}},
	}); err != nil {
		t.Fatalf("CreateRequirement failed: %v", err)
	}

	wh := whNorth
	res, err := prod.ApproveProduction(ctx, core.ProductionInput{ProductID: prodWidget, Quantity: 5, WarehouseID: &wh})
	if err != nil {
		t.Fatalf("ApproveProduction failed: %v", err)
	}
	if res.Materials[0].Remaining != 2 {
		t.Errorf("expected 2 left in NORTH, got %+v", res.Materials[0])
	}

	var poolQty int
	_ = pool.QueryRow(ctx, "SELECT opening_stock FROM raw_materials WHERE id = $1", rawFlour).Scan(&poolQty)
	if poolQty != 8 {
		t.Errorf("ledger-backed run must not touch the pool, got %d", poolQty)
	}

	_, err = prod.ApproveProduction(ctx, core.ProductionInput{ProductID: prodWidget, Quantity: 2, WarehouseID: &wh})
	if !errors.Is(err, core.ErrInsufficientRawMaterial) {
		t.Errorf("expected ErrInsufficientRawMaterial from the ledger, got %v", err)
	}
}

func TestProductionRequirement_CRUD(t *testing.T) {
	pool, ctx := setupTestDB(t)
	prod := core.NewProductionService(pool)

	req, err := prod.CreateRequirement(ctx, core.RequirementInput{
		ProductID: prodWidget,
		Items:     []core.RequirementItemInput{{RawMaterialID: rawFlour, QuantityPerUnit: 2}},
	})
	if err != nil {
		t.Fatalf("CreateRequirement failed: %v", err)
	}
	if req.ProductName != "Widget" || len(req.Items) != 1 {
		t.Errorf("unexpected requirement: %+v", req)
	}

	_, err = prod.CreateRequirement(ctx, core.RequirementInput{
		ProductID: prodWidget,
		Items:     []core.RequirementItemInput{{RawMaterialID: rawSugar, QuantityPerUnit: 1}},
	})
	if !errors.Is(err, core.ErrRequirementExists) {
		t.Errorf("expected ErrRequirementExists, got %v", err)
	}

	updated, err := prod.ReplaceRequirementItems(ctx, req.ID, []core.RequirementItemInput{
		{RawMaterialID: rawSugar, QuantityPerUnit: 3},
		{RawMaterialID: rawFlour, QuantityPerUnit: 1},
	})
	if err != nil {
		t.Fatalf("ReplaceRequirementItems failed: %v", err)
	}
	if len(updated.Items) != 2 || updated.Items[0].RawMaterialID != rawFlour {
		t.Errorf("expected 2 items ordered by raw material id, got %+v", updated.Items)
	}

	byProduct, err := prod.GetRequirementByProduct(ctx, prodWidget)
	if err != nil || byProduct.ID != req.ID {
		t.Errorf("GetRequirementByProduct = %+v, %v", byProduct, err)
	}
	all, err := prod.ListRequirements(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("ListRequirements = %d, %v", len(all), err)
	}

	if err := prod.DeleteRequirement(ctx, req.ID); err != nil {
		t.Fatalf("DeleteRequirement failed: %v", err)
	}
	var items int
	_ = pool.QueryRow(ctx, "SELECT COUNT(*) FROM production_requirement_items").Scan(&items)
	if items != 0 {
		t.Errorf("items should cascade with the requirement, %d left", items)
	}
	if err := prod.DeleteRequirement(ctx, req.ID); !errors.Is(err, core.ErrRequirementNotFound) {
		t.Errorf("expected ErrRequirementNotFound, got %v", err)
	}
	if _, err := prod.CalculateMaterials(ctx, prodWidget, 1); !errors.Is(err, core.ErrRequirementNotFound) {
		t.Errorf("expected ErrRequirementNotFound, got %v", err)
	}
}

func TestProduction_OversizedBuildNeverGrowsPool(t *testing.T) {
	pool, ctx := setupTestDB(t)
	prod := core.NewProductionService(pool)
	inv := core.NewInventoryService(pool)

	if _, err := prod.CreateRequirement(ctx, core.RequirementInput{
		ProductID: prodWidget,
		Items:     []core.RequirementItemInput{{RawMaterialID: rawFlour, QuantityPerUnit: 2}},
	}); err != nil {
		t.Fatalf("CreateRequirement failed: %v", err)
	}
	intake(t, ctx, inv, core.RawMaterialItem(rawFlour), whMain, 8)

	// Passes ProductionInput validation, but 2 per unit exceeds the int4 range.
	build := core.MaxQuantity/2 + 1

	if _, err := prod.CalculateMaterials(ctx, prodWidget, build); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Errorf("CalculateMaterials: expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := prod.ApproveProduction(ctx, core.ProductionInput{ProductID: prodWidget, Quantity: build}); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Errorf("ApproveProduction (pool): expected ErrInvalidQuantity, got %v", err)
	}
	wh := whMain
	if _, err := prod.ApproveProduction(ctx, core.ProductionInput{ProductID: prodWidget, Quantity: build, WarehouseID: &wh}); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Errorf("ApproveProduction (ledger): expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := prod.ApproveProduction(ctx, core.ProductionInput{ProductID: prodWidget, Quantity: 9223372036854775804}); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Errorf("ApproveProduction (wrapping build): expected ErrInvalidQuantity, got %v", err)
	}

	var remaining int
	if err := pool.QueryRow(ctx, "SELECT opening_stock FROM raw_materials WHERE id = $1", rawFlour).Scan(&remaining); err != nil {
		t.Fatalf("read pool: %v", err)
	}
	if remaining != 8 {
		t.Errorf("expected pool still 8, got %d", remaining)
	}
	if n := onHand(t, ctx, inv, core.RawMaterialItem(rawFlour), whMain); n != 8 {
		t.Errorf("expected ledger still 8, got %d", n)
	}
}
