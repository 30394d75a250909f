package memstore

import (
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/ariefcatur/go-catalog-carts/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PutProduct stores p as is, assigning an id when empty. FinalPrice is
// recomputed from Price and Discount.
func (s *Store) PutProduct(p catalog.Product) catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.SKU == "" {
		p.SKU = catalog.DefaultSKU(p.ID)
	}
	p.FinalPrice = pricing.FinalPrice(p.Price, p.Discount)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
		p.UpdatedAt = p.CreatedAt
	}
	s.st.products[p.ID] = p
	return p
}

// PutVariant stores v as is, assigning an id when empty and ACTIVE when
// no status is set.
func (s *Store) PutVariant(v catalog.Variant) catalog.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = catalog.StatusActive
	}
	if v.SKU == "" {
		v.SKU = "SKU-" + v.ID
	}
	s.st.variants[v.ID] = v
	return v
}

// SimpleProduct is a product with its own stock and no variants.
func (s *Store) SimpleProduct(name, price string, stock int) catalog.Product {
	return s.PutProduct(catalog.Product{
		Name:  name,
		Slug:  catalog.ProductSlug(name, "", uuid.NewString()),
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
}
