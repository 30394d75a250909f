package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/ariefcatur/go-catalog-carts/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type CatalogService interface {
	CreateProduct(ctx context.Context, in catalog.ProductInput) (*catalog.Product, []catalog.Variant, error)
	Reprice(ctx context.Context, productID string, price decimal.Decimal, discount int) (*catalog.Product, error)
	Restock(ctx context.Context, ref catalog.UnitRef, amount int) (catalog.StockLevel, error)
	SetVariantStatus(ctx context.Context, variantID string, status catalog.VariantStatus) (catalog.VariantStatus, error)
}

type ProductReader interface {
	FindProduct(ctx context.Context, id string) (*catalog.Product, error)
	FindVariantsByProduct(ctx context.Context, productID string) ([]catalog.Variant, error)
}

type CatalogHandler struct {
	Service CatalogService
	Reader  ProductReader
	Money   pricing.Formatter

	validate *validator.Validate
}

type overrideReq struct {
	ColorID string           `json:"color_id" validate:"required"`
	SizeID  string           `json:"size_id" validate:"required"`
	Price   *decimal.Decimal `json:"price,omitempty"`
	Stock   *int             `json:"stock,omitempty" validate:"omitempty,min=0"`
}

type CreateProductReq struct {
	Name         string           `json:"name" validate:"required,max=255"`
	Description  string           `json:"description" validate:"max=5000"`
	SKU          string           `json:"sku" validate:"max=100"`
	Price        decimal.Decimal  `json:"price"`
	Discount     int              `json:"discount" validate:"min=0,max=100"`
	Stock        int              `json:"stock" validate:"min=0"`
	BrandID      string           `json:"brand_id"`
	MaterialID   string           `json:"material_id"`
	CategoryIDs  []string         `json:"category_ids"`
	ColorIDs     []string         `json:"color_ids"`
	SizeIDs      []string         `json:"size_ids"`
	VariantPrice *decimal.Decimal `json:"variant_price,omitempty"`
	VariantStock *int             `json:"variant_stock,omitempty" validate:"omitempty,min=0"`
	Overrides    []overrideReq    `json:"overrides" validate:"dive"`
	Unpublished  bool             `json:"unpublished"`
}

func (req CreateProductReq) input() catalog.ProductInput {
	in := catalog.ProductInput{
		Name:         req.Name,
		Description:  req.Description,
		SKU:          req.SKU,
		Price:        req.Price,
		Discount:     req.Discount,
		Stock:        req.Stock,
		BrandID:      req.BrandID,
		MaterialID:   req.MaterialID,
		CategoryIDs:  req.CategoryIDs,
		ColorIDs:     req.ColorIDs,
		SizeIDs:      req.SizeIDs,
		VariantPrice: req.VariantPrice,
		VariantStock: req.VariantStock,
		Unpublished:  req.Unpublished,
	}
	if len(req.Overrides) > 0 {
		in.Overrides = make(map[string]catalog.DraftOverride, len(req.Overrides))
		for _, o := range req.Overrides {
			in.Overrides[catalog.OverrideKey(o.ColorID, o.SizeID)] = catalog.DraftOverride{Price: o.Price, Stock: o.Stock}
		}
	}
	return in
}

type PricingReq struct {
	Price    decimal.Decimal `json:"price"`
	Discount int             `json:"discount" validate:"min=0,max=100"`
}

type RestockReq struct {
	Amount int `json:"amount" validate:"gt=0"`
}

type StatusReq struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE DISCONTINUED OUT_OF_STOCK"`
}

type productResp struct {
	*catalog.Product
	FinalPriceDisplay string            `json:"final_price_display"`
	Variants          []catalog.Variant `json:"variants"`
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}/pricing", h.reprice)
	r.Post("/stock/{kind}/{id}/restock", h.restock)
	r.Put("/variants/{id}/status", h.setStatus)
}

func (h *CatalogHandler) validator() *validator.Validate {
	if h.validate == nil {
		h.validate = validator.New()
	}
	return h.validate
}

// bind decodes and validates the body; on failure the response is written.
func (h *CatalogHandler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		badRequest(w, "invalid json")
		return false
	}
	if err := h.validator().Struct(dst); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

func (h *CatalogHandler) render(p *catalog.Product, vs []catalog.Variant) productResp {
	if vs == nil {
		vs = []catalog.Variant{}
	}
	return productResp{Product: p, FinalPriceDisplay: h.Money.Format(p.FinalPrice), Variants: vs}
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductReq
	if !h.bind(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, vs, err := h.Service.CreateProduct(ctx, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.render(p, vs))
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	p, err := h.Reader.FindProduct(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	vs, err := h.Reader.FindVariantsByProduct(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.render(p, vs))
}

func (h *CatalogHandler) reprice(w http.ResponseWriter, r *http.Request) {
	var req PricingReq
	if !h.bind(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Service.Reprice(ctx, chi.URLParam(r, "id"), req.Price, req.Discount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.render(p, nil))
}

func (h *CatalogHandler) restock(w http.ResponseWriter, r *http.Request) {
	ref := catalog.UnitRef{Kind: catalog.UnitKind(chi.URLParam(r, "kind")), ID: chi.URLParam(r, "id")}
	if !ref.Valid() {
		badRequest(w, "kind must be product or variant")
		return
	}
	var req RestockReq
	if !h.bind(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	lvl, err := h.Service.Restock(ctx, ref, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unit": ref.String(), "stock": lvl.Stock, "status": lvl.Status})
}

func (h *CatalogHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusReq
	if !h.bind(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	status, err := h.Service.SetVariantStatus(ctx, id, catalog.VariantStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}
