// Package memstore keeps the catalog and carts in memory. Transactions are
// serialized behind one mutex and work on a copy that replaces the live
// state only on success, so a failed or cancelled transaction leaves no trace.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/carts"
	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/google/uuid"
)

// ErrInjected is returned by commits failed through FailCommits.
var ErrInjected = errors.New("memstore: injected commit failure")

type Store struct {
	mu sync.Mutex
	st *state

	// FailCommits makes the next n transactions fail at commit time.
	FailCommits int
	// Commits counts successful transactions.
	Commits int
}

func New() *Store {
	return &Store{st: newState()}
}

var (
	_ catalog.Repository = (*Store)(nil)
	_ catalog.TxRunner   = (*Store)(nil)
	_ carts.UnitOfWork   = (*Store)(nil)
	_ carts.Repository   = (*Store)(nil)
)

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repo catalog.Repository) error) error {
	return s.tx(ctx, func(ctx context.Context, st *state) error { return fn(ctx, st) })
}

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, stock catalog.StockLedger, repo carts.Repository) error) error {
	return s.tx(ctx, func(ctx context.Context, st *state) error { return fn(ctx, st, st) })
}

func (s *Store) tx(ctx context.Context, fn func(ctx context.Context, st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(ctx, work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailCommits > 0 {
		s.FailCommits--
		return ErrInjected
	}
	s.st = work
	s.Commits++
	return nil
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) FindProduct(ctx context.Context, id string) (p *catalog.Product, err error) {
	err = s.read(func(st *state) error { p, err = st.FindProduct(ctx, id); return err })
	return p, err
}

func (s *Store) FindVariant(ctx context.Context, id string) (v *catalog.Variant, err error) {
	err = s.read(func(st *state) error { v, err = st.FindVariant(ctx, id); return err })
	return v, err
}

func (s *Store) FindVariantsByProduct(ctx context.Context, productID string) (vs []catalog.Variant, err error) {
	err = s.read(func(st *state) error { vs, err = st.FindVariantsByProduct(ctx, productID); return err })
	return vs, err
}

func (s *Store) FindRefs(ctx context.Context, kind catalog.RefKind, ids []string) (refs []catalog.Ref, err error) {
	err = s.read(func(st *state) error { refs, err = st.FindRefs(ctx, kind, ids); return err })
	return refs, err
}

func (s *Store) EnsureRef(ctx context.Context, kind catalog.RefKind, name string) (ref catalog.Ref, err error) {
	err = s.read(func(st *state) error { ref, err = st.EnsureRef(ctx, kind, name); return err })
	return ref, err
}

func (s *Store) CreateProduct(ctx context.Context, p *catalog.Product, variants []catalog.Variant) error {
	return s.InTx(ctx, func(ctx context.Context, repo catalog.Repository) error {
		return repo.CreateProduct(ctx, p, variants)
	})
}

func (s *Store) UpdatePricing(ctx context.Context, p *catalog.Product) error {
	return s.read(func(st *state) error { return st.UpdatePricing(ctx, p) })
}

func (s *Store) LockUnits(ctx context.Context, refs []catalog.UnitRef) (m map[catalog.UnitRef]catalog.StockLevel, err error) {
	err = s.read(func(st *state) error { m, err = st.LockUnits(ctx, refs); return err })
	return m, err
}

func (s *Store) DecrementStock(ctx context.Context, ref catalog.UnitRef, amount int) (lvl catalog.StockLevel, err error) {
	err = s.read(func(st *state) error { lvl, err = st.DecrementStock(ctx, ref, amount); return err })
	return lvl, err
}

func (s *Store) IncrementStock(ctx context.Context, ref catalog.UnitRef, amount int) (lvl catalog.StockLevel, err error) {
	err = s.read(func(st *state) error { lvl, err = st.IncrementStock(ctx, ref, amount); return err })
	return lvl, err
}

func (s *Store) SetVariantStatus(ctx context.Context, variantID string, status catalog.VariantStatus) error {
	return s.read(func(st *state) error { return st.SetVariantStatus(ctx, variantID, status) })
}

func (s *Store) CreateCart(ctx context.Context, c *carts.Cart) error {
	return s.read(func(st *state) error { return st.CreateCart(ctx, c) })
}

func (s *Store) FindCart(ctx context.Context, id string) (c *carts.Cart, err error) {
	err = s.read(func(st *state) error { c, err = st.FindCart(ctx, id); return err })
	return c, err
}

// CartCount is the number of persisted carts.
func (s *Store) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.carts)
}

// state is one consistent snapshot of everything the store holds.
type state struct {
	products map[string]catalog.Product
	variants map[string]catalog.Variant
	refs     map[catalog.RefKind]map[string]catalog.Ref
	carts    map[string]carts.Cart
}

func newState() *state {
	return &state{
		products: map[string]catalog.Product{},
		variants: map[string]catalog.Variant{},
		refs:     map[catalog.RefKind]map[string]catalog.Ref{},
		carts:    map[string]carts.Cart{},
	}
}

// clone copies the maps; the values are treated as immutable and replaced
// on every write.
func (st *state) clone() *state {
	out := newState()
	for k, v := range st.products {
		out.products[k] = v
	}
	for k, v := range st.variants {
		out.variants[k] = v
	}
	for kind, m := range st.refs {
		cp := make(map[string]catalog.Ref, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out.refs[kind] = cp
	}
	for k, v := range st.carts {
		out.carts[k] = v
	}
	return out
}

func (st *state) FindProduct(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := st.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", catalog.ErrNotFound, id)
	}
	p.CategoryIDs = append([]string(nil), p.CategoryIDs...)
	return &p, nil
}

func (st *state) FindVariant(_ context.Context, id string) (*catalog.Variant, error) {
	v, ok := st.variants[id]
	if !ok {
		return nil, fmt.Errorf("%w: variant %s", catalog.ErrNotFound, id)
	}
	return &v, nil
}

func (st *state) FindVariantsByProduct(_ context.Context, productID string) ([]catalog.Variant, error) {
	var out []catalog.Variant
	for _, v := range st.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (st *state) FindRefs(_ context.Context, kind catalog.RefKind, ids []string) ([]catalog.Ref, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown reference kind %q", kind)
	}
	out := make([]catalog.Ref, 0, len(ids))
	for _, id := range ids {
		ref, ok := st.refs[kind][id]
		if !ok {
			return nil, fmt.Errorf("%w: %s %s", catalog.ErrNotFound, kind, id)
		}
		out = append(out, ref)
	}
	return out, nil
}

func (st *state) EnsureRef(_ context.Context, kind catalog.RefKind, name string) (catalog.Ref, error) {
	if !kind.Valid() {
		return catalog.Ref{}, fmt.Errorf("unknown reference kind %q", kind)
	}
	key := catalog.NormalizeName(name)
	if key == "" {
		return catalog.Ref{}, fmt.Errorf("%w: %s name is empty", catalog.ErrInvalidProduct, kind)
	}
	for _, ref := range st.refs[kind] {
		if catalog.NormalizeName(ref.Name) == key {
			return ref, nil
		}
	}
	ref := catalog.Ref{ID: uuid.NewString(), Kind: kind, Name: name}
	if st.refs[kind] == nil {
		st.refs[kind] = map[string]catalog.Ref{}
	}
	st.refs[kind][ref.ID] = ref
	return ref, nil
}

func (st *state) CreateProduct(_ context.Context, p *catalog.Product, variants []catalog.Variant) error {
	if _, ok := st.products[p.ID]; ok {
		return fmt.Errorf("%w: product %s", catalog.ErrDuplicate, p.ID)
	}
	for _, other := range st.products {
		if other.Slug == p.Slug || other.SKU == p.SKU {
			return fmt.Errorf("%w: product slug or sku", catalog.ErrDuplicate)
		}
	}
	skus := map[string]bool{}
	for _, v := range st.variants {
		skus[v.SKU] = true
	}
	combos := map[string]bool{}
	for _, v := range variants {
		combo := v.ColorID + "/" + v.SizeID
		if skus[v.SKU] || combos[combo] {
			return fmt.Errorf("%w: variant %s", catalog.ErrDuplicate, v.SKU)
		}
		skus[v.SKU] = true
		combos[combo] = true
	}

	cp := *p
	cp.CategoryIDs = append([]string(nil), p.CategoryIDs...)
	st.products[p.ID] = cp
	for _, v := range variants {
		st.variants[v.ID] = v
	}
	return nil
}

func (st *state) UpdatePricing(_ context.Context, p *catalog.Product) error {
	cur, ok := st.products[p.ID]
	if !ok {
		return fmt.Errorf("%w: product %s", catalog.ErrNotFound, p.ID)
	}
	cur.Price, cur.Discount, cur.FinalPrice, cur.UpdatedAt = p.Price, p.Discount, p.FinalPrice, p.UpdatedAt
	st.products[p.ID] = cur
	return nil
}

func (st *state) level(ref catalog.UnitRef) (catalog.StockLevel, bool) {
	switch ref.Kind {
	case catalog.KindProduct:
		p, ok := st.products[ref.ID]
		return catalog.StockLevel{Ref: ref, Stock: p.Stock, Status: catalog.StatusActive}, ok
	case catalog.KindVariant:
		v, ok := st.variants[ref.ID]
		return catalog.StockLevel{Ref: ref, Stock: v.Stock, Status: v.Status}, ok
	}
	return catalog.StockLevel{}, false
}

func (st *state) LockUnits(_ context.Context, refs []catalog.UnitRef) (map[catalog.UnitRef]catalog.StockLevel, error) {
	out := make(map[catalog.UnitRef]catalog.StockLevel, len(refs))
	for _, ref := range refs {
		if lvl, ok := st.level(ref); ok {
			out[ref] = lvl
		}
	}
	return out, nil
}

func (st *state) setStock(ref catalog.UnitRef, stock int, status catalog.VariantStatus) {
	now := time.Now().UTC()
	switch ref.Kind {
	case catalog.KindProduct:
		p := st.products[ref.ID]
		p.Stock, p.UpdatedAt = stock, now
		st.products[ref.ID] = p
	case catalog.KindVariant:
		v := st.variants[ref.ID]
		v.Stock, v.Status, v.UpdatedAt = stock, status, now
		st.variants[ref.ID] = v
	}
}

func (st *state) DecrementStock(_ context.Context, ref catalog.UnitRef, amount int) (catalog.StockLevel, error) {
	if amount <= 0 {
		return catalog.StockLevel{}, fmt.Errorf("decrement amount must be positive, got %d", amount)
	}
	lvl, ok := st.level(ref)
	if !ok {
		return lvl, fmt.Errorf("%w: %s", catalog.ErrNotFound, ref)
	}
	if !lvl.Offerable() || lvl.Stock < amount {
		return lvl, fmt.Errorf("%w: %s", catalog.ErrStockConflict, ref)
	}
	lvl.Stock -= amount
	if ref.Kind == catalog.KindVariant {
		lvl.Status = catalog.StatusAfterStock(lvl.Status, lvl.Stock)
	}
	st.setStock(ref, lvl.Stock, lvl.Status)
	return lvl, nil
}

func (st *state) IncrementStock(_ context.Context, ref catalog.UnitRef, amount int) (catalog.StockLevel, error) {
	if amount <= 0 {
		return catalog.StockLevel{}, fmt.Errorf("increment amount must be positive, got %d", amount)
	}
	lvl, ok := st.level(ref)
	if !ok {
		return lvl, fmt.Errorf("%w: %s", catalog.ErrNotFound, ref)
	}
	lvl.Stock += amount
	if ref.Kind == catalog.KindVariant {
		lvl.Status = catalog.StatusAfterStock(lvl.Status, lvl.Stock)
	}
	st.setStock(ref, lvl.Stock, lvl.Status)
	return lvl, nil
}

func (st *state) SetVariantStatus(_ context.Context, variantID string, status catalog.VariantStatus) error {
	v, ok := st.variants[variantID]
	if !ok {
		return fmt.Errorf("%w: variant %s", catalog.ErrNotFound, variantID)
	}
	v.Status, v.UpdatedAt = status, time.Now().UTC()
	st.variants[variantID] = v
	return nil
}

func (st *state) CreateCart(_ context.Context, c *carts.Cart) error {
	if _, ok := st.carts[c.ID]; ok {
		return fmt.Errorf("cart %s already exists", c.ID)
	}
	cp := *c
	cp.Items = append([]carts.Item(nil), c.Items...)
	st.carts[c.ID] = cp
	return nil
}

func (st *state) FindCart(_ context.Context, id string) (*carts.Cart, error) {
	c, ok := st.carts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", carts.ErrCartNotFound, id)
	}
	c.Items = append([]carts.Item(nil), c.Items...)
	return &c, nil
}
