package catalog

import "context"

// Reader is the read side the cart engine validates against. A cache may
// sit in front of it.
type Reader interface {
	FindProduct(ctx context.Context, id string) (*Product, error)
	FindVariant(ctx context.Context, id string) (*Variant, error)
}

// StockLedger is the write side of inventory. Implementations must be
// bound to a transaction when used by the cart engine.
type StockLedger interface {
	// LockUnits locks the given units in SortUnits order and returns their
	// current levels. Units that do not exist are absent from the map.
	LockUnits(ctx context.Context, refs []UnitRef) (map[UnitRef]StockLevel, error)
	// DecrementStock subtracts amount only when the unit is offerable and has
	// at least amount in stock; otherwise ErrStockConflict. ACTIVE variants
	// reaching zero become OUT_OF_STOCK.
	DecrementStock(ctx context.Context, ref UnitRef, amount int) (StockLevel, error)
	// IncrementStock adds amount; OUT_OF_STOCK variants above zero become ACTIVE.
	IncrementStock(ctx context.Context, ref UnitRef, amount int) (StockLevel, error)
	SetVariantStatus(ctx context.Context, variantID string, status VariantStatus) error
}

type Repository interface {
	Reader
	StockLedger
	FindVariantsByProduct(ctx context.Context, productID string) ([]Variant, error)
	FindRefs(ctx context.Context, kind RefKind, ids []string) ([]Ref, error)
	// EnsureRef returns the reference whose normalized name matches, creating it when absent.
	EnsureRef(ctx context.Context, kind RefKind, name string) (Ref, error)
	CreateProduct(ctx context.Context, p *Product, variants []Variant) error
	UpdatePricing(ctx context.Context, p *Product) error
}

// TxRunner runs fn inside one transaction; any error from fn rolls it back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}
