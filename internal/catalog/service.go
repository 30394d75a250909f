package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductInput is everything needed to create a product and its variants.
type ProductInput struct {
	Name        string          `validate:"required,max=255"`
	Description string          `validate:"max=5000"`
	SKU         string          `validate:"max=100"`
	Price       decimal.Decimal `validate:"-"`
	Discount    int             `validate:"min=0,max=100"`
	Stock       int             `validate:"min=0"`
	BrandID     string
	MaterialID  string
	CategoryIDs []string
	ColorIDs    []string
	SizeIDs     []string
	// VariantStock seeds every variant; nil means the product stock.
	VariantStock *int `validate:"omitempty,min=0"`
	// VariantPrice seeds every variant; nil means the product final price.
	VariantPrice *decimal.Decimal `validate:"-"`
	Overrides    map[string]DraftOverride
	Unpublished  bool
}

// Invalidator drops cached catalog reads after a write.
type Invalidator interface {
	Invalidate(ctx context.Context, refs ...UnitRef) error
}

type Service struct {
	Store TxRunner
	Cache Invalidator // optional
	Log   *zap.Logger
	Now   func() time.Time

	validate *validator.Validate
}

func NewService(store TxRunner, cache Invalidator, log *zap.Logger) *Service {
	return &Service{Store: store, Cache: cache, Log: logging.OrNop(log), Now: time.Now, validate: validator.New()}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) logger() *zap.Logger { return logging.OrNop(s.Log) }

func (s *Service) validator() *validator.Validate {
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s.validate
}

// CreateProduct allocates the identity first, derives slug, final price and
// the variant matrix from it, and writes everything in one transaction.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*Product, []Variant, error) {
	if err := s.validator().Struct(in); err != nil {
		return nil, nil, invalidProduct(err.Error())
	}
	if in.VariantPrice != nil && in.VariantPrice.IsNegative() {
		return nil, nil, invalidProduct("variant price must be >= 0")
	}

	now := s.now()
	p := &Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Stock:       in.Stock,
		BrandID:     in.BrandID,
		MaterialID:  in.MaterialID,
		CategoryIDs: in.CategoryIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.SetPricing(in.Price, in.Discount); err != nil {
		return nil, nil, err
	}
	p.SKU = ProductSKU(in.SKU, p.ID)

	var variants []Variant
	err := s.Store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		brandName := ""
		if in.BrandID != "" {
			brands, err := repo.FindRefs(ctx, RefBrand, []string{in.BrandID})
			if err != nil {
				return err
			}
			brandName = brands[0].Name
		}
		if in.MaterialID != "" {
			if _, err := repo.FindRefs(ctx, RefMaterial, []string{in.MaterialID}); err != nil {
				return err
			}
		}
		if _, err := repo.FindRefs(ctx, RefCategory, in.CategoryIDs); err != nil {
			return err
		}
		p.Slug = ProductSlug(p.Name, brandName, p.ID)

		colors, err := repo.FindRefs(ctx, RefColor, in.ColorIDs)
		if err != nil {
			return err
		}
		sizes, err := repo.FindRefs(ctx, RefSize, in.SizeIDs)
		if err != nil {
			return err
		}

		basePrice := p.FinalPrice
		if in.VariantPrice != nil {
			basePrice = *in.VariantPrice
		}
		baseStock := p.Stock
		if in.VariantStock != nil {
			baseStock = *in.VariantStock
		}
		drafts := BuildVariantMatrix(MatrixInput{
			ProductID:   p.ID,
			Colors:      colors,
			Sizes:       sizes,
			BasePrice:   basePrice,
			BaseStock:   baseStock,
			SKUTemplate: p.SKU,
			Overrides:   in.Overrides,
		})
		variants = make([]Variant, 0, len(drafts))
		for _, d := range drafts {
			if d.Price.IsNegative() || d.Stock < 0 {
				return invalidProduct(fmt.Sprintf("variant %s has negative price or stock", d.SKU))
			}
			variants = append(variants, Variant{
				ID:        uuid.NewString(),
				ProductID: p.ID,
				ColorID:   d.ColorID,
				SizeID:    d.SizeID,
				SKU:       d.SKU,
				Price:     d.Price,
				Stock:     d.Stock,
				Status:    InitialStatus(in.Unpublished),
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		return repo.CreateProduct(ctx, p, variants)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger().Info("product created",
		zap.String("product_id", p.ID), zap.String("slug", p.Slug), zap.Int("variants", len(variants)))
	return p, variants, nil
}

// Reprice changes price and discount together; FinalPrice is recomputed
// before the write.
func (s *Service) Reprice(ctx context.Context, productID string, price decimal.Decimal, discount int) (*Product, error) {
	var out *Product
	err := s.Store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		p, err := repo.FindProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := p.SetPricing(price, discount); err != nil {
			return err
		}
		p.UpdatedAt = s.now()
		if err := repo.UpdatePricing(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, ProductUnit(productID))
	return out, nil
}

// Restock adds stock to a unit. A variant leaving zero goes back to ACTIVE.
func (s *Service) Restock(ctx context.Context, ref UnitRef, amount int) (StockLevel, error) {
	if amount <= 0 {
		return StockLevel{}, invalidProduct("restock amount must be positive")
	}
	if !ref.Valid() {
		return StockLevel{}, invalidProduct("invalid unit " + ref.String())
	}
	var lvl StockLevel
	err := s.Store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		lvl, err = repo.IncrementStock(ctx, ref, amount)
		return err
	})
	if err != nil {
		return StockLevel{}, err
	}
	s.invalidate(ctx, ref)
	s.logger().Info("unit restocked", zap.Stringer("unit", ref), zap.Int("amount", amount),
		zap.Int("stock", lvl.Stock), zap.String("status", string(lvl.Status)))
	return lvl, nil
}

// SetVariantStatus applies a manual status change under the unit lock.
func (s *Service) SetVariantStatus(ctx context.Context, variantID string, requested VariantStatus) (VariantStatus, error) {
	ref := VariantUnit(variantID)
	var next VariantStatus
	err := s.Store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		levels, err := repo.LockUnits(ctx, []UnitRef{ref})
		if err != nil {
			return err
		}
		lvl, ok := levels[ref]
		if !ok {
			return notFound("variant", variantID)
		}
		next, err = ManualTransition(lvl.Status, requested, lvl.Stock)
		if err != nil {
			return err
		}
		if next == lvl.Status {
			return nil
		}
		return repo.SetVariantStatus(ctx, variantID, next)
	})
	if err != nil {
		return "", err
	}
	s.invalidate(ctx, ref)
	return next, nil
}

func (s *Service) invalidate(ctx context.Context, refs ...UnitRef) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, refs...); err != nil {
		s.logger().Warn("cache invalidation failed", zap.Error(err))
	}
}
