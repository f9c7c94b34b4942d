package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a finished, sellable item.
// Status is derived from the ledger and is only written by the status deriver.
type Product struct {
	ID            int             `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ReorderPoint  int             `json:"reorder_point"`
	Status        StockStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RawMaterial is an input to production. OpeningStock is the flat,
// non-warehoused pool that production approval consumes.
type RawMaterial struct {
	ID            int             `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	ReorderPoint  int             `json:"reorder_point"`
	OpeningStock  int             `json:"opening_stock"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ProductInput is used when creating a product.
type ProductInput struct {
	Code          string          `json:"code" jsonschema:"minLength=1"`
	Name          string          `json:"name" jsonschema:"minLength=1"`
	Description   string          `json:"description,omitempty"`
	UnitOfMeasure string          `json:"unit_of_measure,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ReorderPoint  int             `json:"reorder_point" jsonschema:"minimum=0"`
}

func (in ProductInput) Validate() error {
	if err := requireCodeAndName(in.Code, in.Name); err != nil {
		return err
	}
	if in.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must not be negative", ErrInvalidCatalogEntry)
	}
	if in.ReorderPoint < 0 {
		return fmt.Errorf("%w: reorder point must not be negative", ErrInvalidCatalogEntry)
	}
	return nil
}

// RawMaterialInput is used when creating a raw material.
type RawMaterialInput struct {
	Code          string          `json:"code" jsonschema:"minLength=1"`
	Name          string          `json:"name" jsonschema:"minLength=1"`
	Category      string          `json:"category,omitempty"`
	UnitOfMeasure string          `json:"unit_of_measure,omitempty"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	ReorderPoint  int             `json:"reorder_point" jsonschema:"minimum=0"`
	OpeningStock  int             `json:"opening_stock" jsonschema:"minimum=0"`
}

func (in RawMaterialInput) Validate() error {
	if err := requireCodeAndName(in.Code, in.Name); err != nil {
		return err
	}
	if in.UnitCost.IsNegative() {
		return fmt.Errorf("%w: unit cost must not be negative", ErrInvalidCatalogEntry)
	}
	if in.ReorderPoint < 0 || in.OpeningStock < 0 {
		return fmt.Errorf("%w: reorder point and opening stock must not be negative", ErrInvalidCatalogEntry)
	}
	return nil
}

// WarehouseInput is used when creating a warehouse.
type WarehouseInput struct {
	Code         string `json:"code" jsonschema:"minLength=1"`
	Name         string `json:"name" jsonschema:"minLength=1"`
	Location     string `json:"location,omitempty"`
	ManagerName  string `json:"manager_name,omitempty"`
	ManagerPhone string `json:"manager_phone,omitempty"`
}

func (in WarehouseInput) Validate() error {
	return requireCodeAndName(in.Code, in.Name)
}

func requireCodeAndName(code, name string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidCatalogEntry)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCatalogEntry)
	}
	return nil
}

func unitOrDefault(u string) string {
	if strings.TrimSpace(u) == "" {
		return "unit"
	}
	return strings.TrimSpace(u)
}
