package carts

import (
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/shopspring/decimal"
)

// Line is one requested cart line. An empty VariantID targets the
// product's own stock.
type Line struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	VariantID string `json:"variant_id,omitempty" validate:"max=64"`
	Quantity  int    `json:"quantity"`
}

func (l Line) Unit() catalog.UnitRef {
	if l.VariantID != "" {
		return catalog.VariantUnit(l.VariantID)
	}
	return catalog.ProductUnit(l.ProductID)
}

type Cart struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// Item prices are snapshots taken at assembly; later catalog changes do
// not touch them.
type Item struct {
	ID        string          `json:"id"`
	Position  int             `json:"position"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func (i Item) Unit() catalog.UnitRef {
	return Line{ProductID: i.ProductID, VariantID: i.VariantID}.Unit()
}
