package carts

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
)

var ErrCartNotFound = errors.New("cart not found")

type Repository interface {
	CreateCart(ctx context.Context, c *Cart) error
	FindCart(ctx context.Context, id string) (*Cart, error)
}

// UnitOfWork is the single transaction boundary of a commit: the stock
// ledger and the cart repository handed to fn share it. fn's error rolls
// back everything.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, stock catalog.StockLedger, carts Repository) error) error
}

// Notifier is told about committed carts. It runs after commit and its
// failure never undoes the cart.
type Notifier interface {
	CartAssembled(ctx context.Context, c *Cart, depleted []catalog.UnitRef) error
}
