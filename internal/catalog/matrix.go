package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// VariantDraft is one color x size combination before persistence.
type VariantDraft struct {
	ColorID string
	SizeID  string
	SKU     string
	Price   decimal.Decimal
	Stock   int
}

// MatrixInput carries the dimensions of a new product. Override keys are
// "colorID/sizeID".
type MatrixInput struct {
	ProductID   string
	Colors      []Ref
	Sizes       []Ref
	BasePrice   decimal.Decimal
	BaseStock   int
	SKUTemplate string
	Overrides   map[string]DraftOverride
}

type DraftOverride struct {
	Price *decimal.Decimal
	Stock *int
}

func OverrideKey(colorID, sizeID string) string { return colorID + "/" + sizeID }

// BuildVariantMatrix expands colors x sizes, colors outer and sizes inner.
// The running index is part of every SKU, so two drafts of one call never
// collide even when names normalize to the same token. Empty dimensions
// yield no drafts; duplicate ids are ignored after their first occurrence.
func BuildVariantMatrix(in MatrixInput) []VariantDraft {
	colors := dedupRefs(in.Colors)
	sizes := dedupRefs(in.Sizes)
	if len(colors) == 0 || len(sizes) == 0 {
		return nil
	}

	base := skuBase(in.SKUTemplate, in.ProductID)
	out := make([]VariantDraft, 0, len(colors)*len(sizes))
	idx := 0
	for _, c := range colors {
		for _, s := range sizes {
			idx++
			d := VariantDraft{
				ColorID: c.ID,
				SizeID:  s.ID,
				SKU:     fmt.Sprintf("%s-%s-%s-%03d", base, skuSegment(c.Name), skuSegment(s.Name), idx),
				Price:   in.BasePrice,
				Stock:   in.BaseStock,
			}
			if o, ok := in.Overrides[OverrideKey(c.ID, s.ID)]; ok {
				if o.Price != nil {
					d.Price = *o.Price
				}
				if o.Stock != nil {
					d.Stock = *o.Stock
				}
			}
			out = append(out, d)
		}
	}
	return out
}

func dedupRefs(in []Ref) []Ref {
	seen := make(map[string]bool, len(in))
	out := make([]Ref, 0, len(in))
	for _, r := range in {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

func skuBase(template, productID string) string {
	return ProductSKU(template, productID)
}

// ProductSKU is the stored product sku: the supplied one tokenized and
// upper-cased, so spellings that would yield the same variant SKUs are one
// sku. An empty result falls back to DefaultSKU.
func ProductSKU(sku, productID string) string {
	if t := tokenize(sku); t != "" {
		return strings.ToUpper(t)
	}
	return DefaultSKU(productID)
}

// DefaultSKU is the product sku when none is supplied.
func DefaultSKU(productID string) string {
	id := strings.ReplaceAll(productID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

func skuSegment(name string) string {
	s := strings.ToUpper(tokenize(name))
	if s == "" {
		return "X"
	}
	return s
}
