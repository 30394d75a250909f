package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// productFile is the YAML shape accepted by create-product. References
// are given by name and created on first use.
type productFile struct {
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	SKU          string         `yaml:"sku"`
	Price        string         `yaml:"price"`
	Discount     int            `yaml:"discount"`
	Stock        int            `yaml:"stock"`
	Brand        string         `yaml:"brand"`
	Material     string         `yaml:"material"`
	Categories   []string       `yaml:"categories"`
	Colors       []string       `yaml:"colors"`
	Sizes        []string       `yaml:"sizes"`
	VariantPrice string         `yaml:"variant_price"`
	VariantStock *int           `yaml:"variant_stock"`
	Unpublished  bool           `yaml:"unpublished"`
	Overrides    []overrideFile `yaml:"overrides"`
}

type overrideFile struct {
	Color string `yaml:"color"`
	Size  string `yaml:"size"`
	Price string `yaml:"price"`
	Stock *int   `yaml:"stock"`
}

func parseProductFile(r io.Reader) (productFile, error) {
	var f productFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return f, fmt.Errorf("parse product file: %w", err)
	}
	return f, nil
}

func parseMoney(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return d, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// input resolves every reference name to an id, creating missing ones.
func (f productFile) input(ctx context.Context, repo catalog.Repository) (catalog.ProductInput, error) {
	in := catalog.ProductInput{
		Name:         f.Name,
		Description:  f.Description,
		SKU:          f.SKU,
		Discount:     f.Discount,
		Stock:        f.Stock,
		VariantStock: f.VariantStock,
		Unpublished:  f.Unpublished,
	}
	var err error
	if in.Price, err = parseMoney("price", f.Price); err != nil {
		return in, err
	}
	if f.VariantPrice != "" {
		vp, err := parseMoney("variant_price", f.VariantPrice)
		if err != nil {
			return in, err
		}
		in.VariantPrice = &vp
	}

	ensure := func(kind catalog.RefKind, name string) (string, error) {
		ref, err := repo.EnsureRef(ctx, kind, name)
		if err != nil {
			return "", fmt.Errorf("%s %q: %w", kind, name, err)
		}
		return ref.ID, nil
	}
	ensureAll := func(kind catalog.RefKind, names []string) ([]string, error) {
		ids := make([]string, 0, len(names))
		for _, n := range names {
			id, err := ensure(kind, n)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	if f.Brand != "" {
		if in.BrandID, err = ensure(catalog.RefBrand, f.Brand); err != nil {
			return in, err
		}
	}
	if f.Material != "" {
		if in.MaterialID, err = ensure(catalog.RefMaterial, f.Material); err != nil {
			return in, err
		}
	}
	if in.CategoryIDs, err = ensureAll(catalog.RefCategory, f.Categories); err != nil {
		return in, err
	}
	if in.ColorIDs, err = ensureAll(catalog.RefColor, f.Colors); err != nil {
		return in, err
	}
	if in.SizeIDs, err = ensureAll(catalog.RefSize, f.Sizes); err != nil {
		return in, err
	}

	if len(f.Overrides) > 0 {
		in.Overrides = make(map[string]catalog.DraftOverride, len(f.Overrides))
		for _, o := range f.Overrides {
			colorID, err := ensure(catalog.RefColor, o.Color)
			if err != nil {
				return in, err
			}
			sizeID, err := ensure(catalog.RefSize, o.Size)
			if err != nil {
				return in, err
			}
			ov := catalog.DraftOverride{Stock: o.Stock}
			if o.Price != "" {
				p, err := parseMoney("override price", o.Price)
				if err != nil {
					return in, err
				}
				ov.Price = &p
			}
			in.Overrides[catalog.OverrideKey(colorID, sizeID)] = ov
		}
	}
	return in, nil
}
