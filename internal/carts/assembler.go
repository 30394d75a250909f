package carts

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/ariefcatur/go-catalog-carts/internal/logging"
	"github.com/ariefcatur/go-catalog-carts/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Assembler turns requested lines into a priced, stock-reserved cart or
// fails without any stock change.
type Assembler struct {
	Catalog  catalog.Reader // may be cached
	Store    UnitOfWork
	Cache    catalog.Invalidator // optional
	Notifier Notifier            // optional
	Retry    RetryPolicy
	Log      *zap.Logger
	Now      func() time.Time
}

type resolved struct {
	line      int
	unit      catalog.UnitRef
	unitPrice decimal.Decimal
}

// demand is the summed quantity per unit, in first-seen order.
type demand struct {
	unit catalog.UnitRef
	line int // first line naming the unit
	qty  int
}

// Assemble is the cart assembly seam. Expected business outcomes come back
// as *Error; nothing is reserved unless every line can be.
func (a *Assembler) Assemble(ctx context.Context, userID string, lines []Line) (*Cart, error) {
	log := logging.OrNop(a.Log).With(zap.String("user_id", userID))

	if len(lines) == 0 {
		return nil, &Error{Kind: KindInvalidQuantity, Line: -1, Detail: "cart has no lines"}
	}
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, invalidQuantity(i, l.Quantity)
		}
	}

	res, demands, err := a.resolve(ctx, lines)
	if err != nil {
		log.Info("cart rejected", zap.Error(err))
		return nil, err
	}

	cart := a.price(userID, lines, res)

	var depleted []catalog.UnitRef
	policy := a.Retry
	for attempt := 1; ; attempt++ {
		depleted, err = a.commit(ctx, cart, demands)
		if err == nil {
			break
		}
		var cerr *Error
		if errors.As(err, &cerr) {
			log.Info("cart rejected at commit", zap.Error(err), zap.Int("attempt", attempt))
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, persistence(ctx.Err())
		}
		if attempt >= policy.attempts() || !policy.retryable(err) {
			log.Error("cart commit failed", zap.Error(err), zap.Int("attempt", attempt))
			return nil, persistence(err)
		}
		log.Warn("cart commit retry", zap.Error(err), zap.Int("attempt", attempt))
		if serr := sleep(ctx, policy.Backoff(attempt)); serr != nil {
			return nil, persistence(serr)
		}
	}

	a.afterCommit(ctx, log, cart, demands, depleted)
	return cart, nil
}

// resolve maps lines to units and prices through the catalog reader. The
// reader may be a cache, so stock and status are left to commit, which
// reads them under lock.
func (a *Assembler) resolve(ctx context.Context, lines []Line) ([]resolved, []*demand, error) {
	res := make([]resolved, len(lines))
	byUnit := make(map[catalog.UnitRef]*demand, len(lines))
	var order []*demand

	for i, l := range lines {
		var (
			unit  catalog.UnitRef
			price decimal.Decimal
		)
		if l.VariantID != "" {
			unit = catalog.VariantUnit(l.VariantID)
			v, err := a.Catalog.FindVariant(ctx, l.VariantID)
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, nil, notFound(i, unit, l.VariantID, "variant")
			}
			if err != nil {
				return nil, nil, persistence(err)
			}
			if v.ProductID != l.ProductID {
				return nil, nil, notFound(i, unit, l.VariantID, "variant does not belong to product "+l.ProductID)
			}
			price = v.Price
		} else {
			unit = catalog.ProductUnit(l.ProductID)
			p, err := a.Catalog.FindProduct(ctx, l.ProductID)
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, nil, notFound(i, unit, l.ProductID, "product")
			}
			if err != nil {
				return nil, nil, persistence(err)
			}
			price = p.FinalPrice
		}

		res[i] = resolved{line: i, unit: unit, unitPrice: price}
		d, ok := byUnit[unit]
		if !ok {
			d = &demand{unit: unit, line: i}
			byUnit[unit] = d
			order = append(order, d)
		}
		d.qty += l.Quantity
	}
	return res, order, nil
}

func (a *Assembler) price(userID string, lines []Line, res []resolved) *Cart {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	cart := &Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     make([]Item, 0, len(lines)),
		Total:     decimal.Zero,
		CreatedAt: now().UTC(),
	}
	for i, l := range lines {
		item := Item{
			ID:        uuid.NewString(),
			Position:  i,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: res[i].unitPrice,
			LineTotal: pricing.LineTotal(res[i].unitPrice, l.Quantity),
		}
		cart.Total = cart.Total.Add(item.LineTotal)
		cart.Items = append(cart.Items, item)
	}
	return cart
}

// commit re-checks every unit under lock, decrements and writes the cart
// in one transaction. Business failures come back as *Error and roll back.
func (a *Assembler) commit(ctx context.Context, cart *Cart, demands []*demand) ([]catalog.UnitRef, error) {
	var depleted []catalog.UnitRef
	err := a.Store.Within(ctx, func(ctx context.Context, stock catalog.StockLedger, repo Repository) error {
		depleted = depleted[:0]

		refs := make([]catalog.UnitRef, 0, len(demands))
		for _, d := range demands {
			refs = append(refs, d.unit)
		}
		catalog.SortUnits(refs)
		levels, err := stock.LockUnits(ctx, refs)
		if err != nil {
			return err
		}

		byUnit := make(map[catalog.UnitRef]*demand, len(demands))
		for _, d := range demands {
			byUnit[d.unit] = d
			lvl, ok := levels[d.unit]
			switch {
			case !ok:
				return notFound(d.line, d.unit, d.unit.ID, string(d.unit.Kind))
			case !lvl.Offerable():
				return unavailable(d.line, d.unit, lvl.Status)
			case lvl.Stock < d.qty:
				return insufficient(d.line, d.unit, d.qty, lvl.Stock)
			}
		}

		for _, ref := range refs {
			d := byUnit[ref]
			lvl, err := stock.DecrementStock(ctx, ref, d.qty)
			if errors.Is(err, catalog.ErrStockConflict) {
				return insufficient(d.line, ref, d.qty, levels[ref].Stock)
			}
			if err != nil {
				return err
			}
			if lvl.Stock == 0 {
				depleted = append(depleted, ref)
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		return repo.CreateCart(ctx, cart)
	})
	return depleted, err
}

func (a *Assembler) afterCommit(ctx context.Context, log *zap.Logger, cart *Cart, demands []*demand, depleted []catalog.UnitRef) {
	if a.Cache != nil {
		refs := make([]catalog.UnitRef, 0, len(demands))
		for _, d := range demands {
			refs = append(refs, d.unit)
		}
		if err := a.Cache.Invalidate(ctx, refs...); err != nil {
			log.Warn("cache invalidation failed", zap.String("cart_id", cart.ID), zap.Error(err))
		}
	}
	if a.Notifier != nil {
		if err := a.Notifier.CartAssembled(ctx, cart, depleted); err != nil {
			log.Warn("cart event not published", zap.String("cart_id", cart.ID), zap.Error(err))
		}
	}
	log.Info("cart assembled", zap.String("cart_id", cart.ID), zap.Int("items", len(cart.Items)),
		zap.String("total", cart.Total.String()), zap.Int("depleted", len(depleted)))
}
