package inventory

import (
	"errors"
	"time"
)

// CatalogItem is one inventory record, the authoritative source for prices
// during reconciliation and discrepancy detection.
type CatalogItem struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"-"`
	CatalogNumber string    `json:"catalog_number"`
	Barcode       string    `json:"barcode"`
	Description   string    `json:"description"`
	UnitPrice     float64   `json:"unit_price"`
	SalePrice     *float64  `json:"sale_price,omitempty"`
	MinStock      *float64  `json:"min_stock,omitempty"`
	MaxStock      *float64  `json:"max_stock,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UpsertItem is one record applied by a catalog sync.
type UpsertItem struct {
	InventoryID   int64    `json:"inventory_id"`
	CatalogNumber string   `json:"catalog_number"`
	Barcode       string   `json:"barcode"`
	Description   string   `json:"description"`
	UnitPrice     float64  `json:"unit_price"`
	SalePrice     *float64 `json:"sale_price,omitempty"`
	MinStock      *float64 `json:"min_stock,omitempty"`
	MaxStock      *float64 `json:"max_stock,omitempty"`
}

// ErrValidation indicates invalid sync input.
var ErrValidation = errors.New("inventory: invalid input")
