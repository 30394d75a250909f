package carts

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/ariefcatur/go-catalog-carts/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PGRepository struct{ DB postgres.DBTX }

func (r *PGRepository) CreateCart(ctx context.Context, c *Cart) error {
	if _, err := r.DB.Exec(ctx, `
		INSERT INTO carts(id, user_id, total, created_at) VALUES ($1,$2,$3::numeric,$4)`,
		c.ID, c.UserID, c.Total.String(), c.CreatedAt); err != nil {
		return err
	}
	for _, it := range c.Items {
		if _, err := r.DB.Exec(ctx, `
			INSERT INTO cart_items(id, cart_id, position, product_id, variant_id, quantity, unit_price, line_total)
			VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7::numeric,$8::numeric)`,
			it.ID, c.ID, it.Position, it.ProductID, it.VariantID, it.Quantity,
			it.UnitPrice.String(), it.LineTotal.String()); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepository) FindCart(ctx context.Context, id string) (*Cart, error) {
	var c Cart
	var total string
	err := r.DB.QueryRow(ctx, `SELECT id, user_id, total::text, created_at FROM carts WHERE id=$1`, id).
		Scan(&c.ID, &c.UserID, &total, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if c.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("decode cart total: %w", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, position, product_id, COALESCE(variant_id, ''), quantity, unit_price::text, line_total::text
		FROM cart_items WHERE cart_id=$1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		var unit, line string
		if err := rows.Scan(&it.ID, &it.Position, &it.ProductID, &it.VariantID, &it.Quantity, &unit, &line); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(unit); err != nil {
			return nil, err
		}
		if it.LineTotal, err = decimal.NewFromString(line); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	return &c, rows.Err()
}

// PGUnitOfWork binds the catalog ledger and the cart repository to one pgx
// transaction.
type PGUnitOfWork struct{ Pool *pgxpool.Pool }

func (u *PGUnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, stock catalog.StockLedger, carts Repository) error) error {
	return postgres.WithTx(ctx, u.Pool, func(tx pgx.Tx) error {
		return fn(ctx, &catalog.PGRepository{DB: tx}, &PGRepository{DB: tx})
	})
}
