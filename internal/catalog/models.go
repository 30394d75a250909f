package catalog

import (
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/pricing"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Discount    int             `json:"discount"` // percent, 0..100
	FinalPrice  decimal.Decimal `json:"final_price"`
	Stock       int             `json:"stock"`
	BrandID     string          `json:"brand_id,omitempty"`
	MaterialID  string          `json:"material_id,omitempty"`
	CategoryIDs []string        `json:"category_ids,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SetPricing is the only way price or discount change; FinalPrice follows.
func (p *Product) SetPricing(price decimal.Decimal, discount int) error {
	if price.IsNegative() {
		return invalidProduct("price must be >= 0")
	}
	if !pricing.ValidDiscount(discount) {
		return invalidProduct("discount must be within 0..100")
	}
	p.Price = price
	p.Discount = discount
	p.FinalPrice = pricing.FinalPrice(price, discount)
	return nil
}

func (p *Product) Ref() UnitRef { return ProductUnit(p.ID) }

type Variant struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	ColorID   string          `json:"color_id"`
	SizeID    string          `json:"size_id"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Status    VariantStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (v *Variant) Ref() UnitRef { return VariantUnit(v.ID) }

// Offerable reports whether the cart engine may sell this variant.
func (v *Variant) Offerable() bool {
	return v.Status != StatusInactive && v.Status != StatusDiscontinued
}

// StockLevel is the lockable state of one sellable unit.
type StockLevel struct {
	Ref    UnitRef
	Stock  int
	Status VariantStatus // always ACTIVE for product-level units
}

func (s StockLevel) Offerable() bool {
	return s.Status != StatusInactive && s.Status != StatusDiscontinued
}
