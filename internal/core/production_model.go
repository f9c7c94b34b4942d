package core

import (
	"fmt"
	"time"
)

// ProductionRequirement is the bill of materials for one product.
type ProductionRequirement struct {
	ID          int                         `json:"id"`
	ProductID   int                         `json:"product_id"`
	ProductCode string                      `json:"product_code"`
	ProductName string                      `json:"product_name"`
	Items       []ProductionRequirementItem `json:"items"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// ProductionRequirementItem is one (raw material, quantity per unit) pair.
type ProductionRequirementItem struct {
	ID              int    `json:"id"`
	RequirementID   int    `json:"requirement_id"`
	RawMaterialID   int    `json:"raw_material_id"`
	RawMaterialCode string `json:"raw_material_code"`
	RawMaterialName string `json:"raw_material_name"`
	QuantityPerUnit int    `json:"quantity_per_unit"`
}

type RequirementItemInput struct {
	RawMaterialID   int `json:"raw_material_id" jsonschema:"minimum=1"`
	QuantityPerUnit int `json:"quantity_per_unit" jsonschema:"minimum=1,maximum=2147483647"`
}

// RequirementInput creates or replaces a bill of materials.
type RequirementInput struct {
	ProductID int                    `json:"product_id" jsonschema:"minimum=1"`
	Items     []RequirementItemInput `json:"items" jsonschema:"minItems=1"`
}

func (in RequirementInput) Validate() error {
	if in.ProductID <= 0 {
		return fmt.Errorf("%w: id %d", ErrProductNotFound, in.ProductID)
	}
	return validateRequirementItems(in.Items)
}

func validateRequirementItems(items []RequirementItemInput) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one raw material is required", ErrInvalidRequirement)
	}
	seen := make(map[int]bool, len(items))
	for _, it := range items {
		if it.RawMaterialID <= 0 {
			return fmt.Errorf("%w: id %d", ErrRawMaterialNotFound, it.RawMaterialID)
		}
		if err := checkQuantity("quantity per unit", it.QuantityPerUnit); err != nil {
			return err
		}
		if seen[it.RawMaterialID] {
			return fmt.Errorf("%w: raw material %d listed twice", ErrInvalidRequirement, it.RawMaterialID)
		}
		seen[it.RawMaterialID] = true
	}
	return nil
}

// ProductionInput is the intent to build Quantity units of a product.
type ProductionInput struct {
	ProductID int `json:"product_id" jsonschema:"minimum=1"`
	Quantity  int `json:"quantity" jsonschema:"minimum=1,maximum=2147483647"`
	// WarehouseID, when set, consumes raw materials from that warehouse's
	// ledger rows instead of the flat opening_stock pool.
	WarehouseID *int `json:"warehouse_id,omitempty"`
}

func (in ProductionInput) Validate() error {
	if in.ProductID <= 0 {
		return fmt.Errorf("%w: id %d", ErrProductNotFound, in.ProductID)
	}
	if err := checkQuantity("build quantity", in.Quantity); err != nil {
		return err
	}
	if in.WarehouseID != nil && *in.WarehouseID <= 0 {
		return fmt.Errorf("%w: id %d", ErrWarehouseNotFound, *in.WarehouseID)
	}
	return nil
}

// MaterialRequirement is one line of a material calculation.
type MaterialRequirement struct {
	RawMaterialID   int    `json:"raw_material_id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	QuantityPerUnit int    `json:"quantity_per_unit"`
	Required        int    `json:"required"`
	Available       int    `json:"available"` // opening_stock pool
	Sufficient      bool   `json:"sufficient"`
}

// MaterialCalculation is the read-only answer to "what does building N units take".
type MaterialCalculation struct {
	ProductID     int                   `json:"product_id"`
	ProductName   string                `json:"product_name"`
	BuildQuantity int                   `json:"build_quantity"`
	Materials     []MaterialRequirement `json:"materials"`
}

// ConsumedMaterial reports one raw material after an approved production run.
type ConsumedMaterial struct {
	RawMaterialID int    `json:"raw_material_id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Consumed      int    `json:"consumed"`
	Remaining     int    `json:"remaining"`
}

// ProductionResult is returned by an approved production run.
type ProductionResult struct {
	ProductID     int                `json:"product_id"`
	BuildQuantity int                `json:"build_quantity"`
	WarehouseID   *int               `json:"warehouse_id,omitempty"`
	Materials     []ConsumedMaterial `json:"materials"`
}

// scaleRequirement multiplies every per-unit quantity by the build quantity.
// A product that would exceed MaxQuantity fails with ErrInvalidQuantity, so a
// required amount is never negative.
func scaleRequirement(items []ProductionRequirementItem, buildQuantity int) ([]MaterialRequirement, error) {
	if err := checkQuantity("build quantity", buildQuantity); err != nil {
		return nil, err
	}
	out := make([]MaterialRequirement, 0, len(items))
	for _, it := range items {
		if err := checkQuantity("quantity per unit", it.QuantityPerUnit); err != nil {
			return nil, err
		}
		if buildQuantity > MaxQuantity/it.QuantityPerUnit {
			return nil, fmt.Errorf("%w: building %d needs more than %d of %s",
				ErrInvalidQuantity, buildQuantity, MaxQuantity, it.RawMaterialName)
		}
		out = append(out, MaterialRequirement{
			RawMaterialID:   it.RawMaterialID,
			Code:            it.RawMaterialCode,
			Name:            it.RawMaterialName,
			QuantityPerUnit: it.QuantityPerUnit,
			Required:        it.QuantityPerUnit * buildQuantity,
		})
	}
	return out, nil
}
