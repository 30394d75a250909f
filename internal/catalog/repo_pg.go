package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/ariefcatur/go-catalog-carts/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGRepository implements Repository over a pool or a transaction.
type PGRepository struct{ DB postgres.DBTX }

// PGStore opens transactions for the catalog service.
type PGStore struct{ Pool *pgxpool.Pool }

func (s *PGStore) InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return postgres.WithTx(ctx, s.Pool, func(tx pgx.Tx) error {
		return fn(ctx, &PGRepository{DB: tx})
	})
}

const productCols = `id, name, slug, sku, description, price::text, discount, final_price::text, stock,
	COALESCE(brand_id, ''), COALESCE(material_id, ''), created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var price, final string
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.SKU, &p.Description, &price, &p.Discount, &final,
		&p.Stock, &p.BrandID, &p.MaterialID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("decode price: %w", err)
	}
	if p.FinalPrice, err = decimal.NewFromString(final); err != nil {
		return nil, fmt.Errorf("decode final_price: %w", err)
	}
	return &p, nil
}

func (r *PGRepository) FindProduct(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("product", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `SELECT category_id FROM product_categories WHERE product_id=$1 ORDER BY category_id`, id)
	if err != nil {
		return nil, err
	}
	p.CategoryIDs, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return p, nil
}

const variantCols = `id, product_id, color_id, size_id, sku, price::text, stock, status, created_at, updated_at`

func scanVariant(row pgx.Row) (Variant, error) {
	var v Variant
	var price, status string
	if err := row.Scan(&v.ID, &v.ProductID, &v.ColorID, &v.SizeID, &v.SKU, &price, &v.Stock, &status,
		&v.CreatedAt, &v.UpdatedAt); err != nil {
		return v, err
	}
	v.Status = VariantStatus(status)
	var err error
	if v.Price, err = decimal.NewFromString(price); err != nil {
		return v, fmt.Errorf("decode variant price: %w", err)
	}
	return v, nil
}

func (r *PGRepository) FindVariant(ctx context.Context, id string) (*Variant, error) {
	v, err := scanVariant(r.DB.QueryRow(ctx, `SELECT `+variantCols+` FROM product_variants WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("variant", id)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *PGRepository) FindVariantsByProduct(ctx context.Context, productID string) ([]Variant, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+variantCols+` FROM product_variants WHERE product_id=$1 ORDER BY sku`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PGRepository) FindRefs(ctx context.Context, kind RefKind, ids []string) ([]Ref, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown reference kind %q", kind)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := psql.Select("id", "name").From(string(kind)).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]Ref, len(ids))
	for rows.Next() {
		ref := Ref{Kind: kind}
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		byID[ref.ID] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// keep caller order; it drives the variant matrix
	out := make([]Ref, 0, len(ids))
	for _, id := range ids {
		ref, ok := byID[id]
		if !ok {
			return nil, notFound(string(kind), id)
		}
		out = append(out, ref)
	}
	return out, nil
}

func (r *PGRepository) EnsureRef(ctx context.Context, kind RefKind, name string) (Ref, error) {
	if !kind.Valid() {
		return Ref{}, fmt.Errorf("unknown reference kind %q", kind)
	}
	key := NormalizeName(name)
	if key == "" {
		return Ref{}, invalidProduct(string(kind) + " name is empty")
	}

	// kind is one of the RefKind constants, never user input
	q := fmt.Sprintf(`INSERT INTO %s(id, name, name_key) VALUES ($1,$2,$3)
		ON CONFLICT (name_key) DO UPDATE SET name_key = EXCLUDED.name_key
		RETURNING id, name`, kind)
	ref := Ref{Kind: kind}
	if err := r.DB.QueryRow(ctx, q, uuid.NewString(), name, key).Scan(&ref.ID, &ref.Name); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

func (r *PGRepository) CreateProduct(ctx context.Context, p *Product, variants []Variant) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, name, slug, sku, description, price, discount, final_price, stock,
		                     brand_id, material_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6::numeric,$7,$8::numeric,$9,NULLIF($10,''),NULLIF($11,''),$12,$13)`,
		p.ID, p.Name, p.Slug, p.SKU, p.Description, p.Price.String(), p.Discount, p.FinalPrice.String(),
		p.Stock, p.BrandID, p.MaterialID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("%w: product slug or sku: %v", ErrDuplicate, err)
		}
		return err
	}

	for _, cid := range p.CategoryIDs {
		if _, err := r.DB.Exec(ctx, `
			INSERT INTO product_categories(product_id, category_id) VALUES ($1,$2)
			ON CONFLICT DO NOTHING`, p.ID, cid); err != nil {
			return err
		}
	}

	for _, v := range variants {
		_, err := r.DB.Exec(ctx, `
			INSERT INTO product_variants(id, product_id, color_id, size_id, sku, price, stock, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6::numeric,$7,$8,$9,$10)`,
			v.ID, v.ProductID, v.ColorID, v.SizeID, v.SKU, v.Price.String(), v.Stock, string(v.Status),
			v.CreatedAt, v.UpdatedAt)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return fmt.Errorf("%w: variant %s: %v", ErrDuplicate, v.SKU, err)
			}
			return err
		}
	}
	return nil
}

func (r *PGRepository) UpdatePricing(ctx context.Context, p *Product) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET price=$2::numeric, discount=$3, final_price=$4::numeric, updated_at=$5
		WHERE id=$1`, p.ID, p.Price.String(), p.Discount, p.FinalPrice.String(), p.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return notFound("product", p.ID)
	}
	return nil
}

func (r *PGRepository) LockUnits(ctx context.Context, refs []UnitRef) (map[UnitRef]StockLevel, error) {
	sorted := append([]UnitRef(nil), refs...)
	SortUnits(sorted)

	var productIDs, variantIDs []string
	for _, ref := range sorted {
		switch ref.Kind {
		case KindProduct:
			productIDs = append(productIDs, ref.ID)
		case KindVariant:
			variantIDs = append(variantIDs, ref.ID)
		}
	}

	out := make(map[UnitRef]StockLevel, len(refs))
	// "product:" sorts before "variant:", so products are locked first
	if len(productIDs) > 0 {
		q, args, err := psql.Select("id", "stock").From("products").
			Where(sq.Eq{"id": productIDs}).OrderBy("id").Suffix("FOR UPDATE").ToSql()
		if err != nil {
			return nil, err
		}
		if err := r.collectLevels(ctx, KindProduct, q, args, out); err != nil {
			return nil, err
		}
	}
	if len(variantIDs) > 0 {
		q, args, err := psql.Select("id", "stock", "status").From("product_variants").
			Where(sq.Eq{"id": variantIDs}).OrderBy("id").Suffix("FOR UPDATE").ToSql()
		if err != nil {
			return nil, err
		}
		if err := r.collectLevels(ctx, KindVariant, q, args, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PGRepository) collectLevels(ctx context.Context, kind UnitKind, q string, args []any, out map[UnitRef]StockLevel) error {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		lvl := StockLevel{Ref: UnitRef{Kind: kind}, Status: StatusActive}
		if kind == KindVariant {
			var status string
			if err := rows.Scan(&lvl.Ref.ID, &lvl.Stock, &status); err != nil {
				return err
			}
			lvl.Status = VariantStatus(status)
		} else if err := rows.Scan(&lvl.Ref.ID, &lvl.Stock); err != nil {
			return err
		}
		out[lvl.Ref] = lvl
	}
	return rows.Err()
}

func (r *PGRepository) DecrementStock(ctx context.Context, ref UnitRef, amount int) (StockLevel, error) {
	if amount <= 0 {
		return StockLevel{}, fmt.Errorf("decrement amount must be positive, got %d", amount)
	}
	lvl := StockLevel{Ref: ref, Status: StatusActive}
	var err error
	switch ref.Kind {
	case KindProduct:
		err = r.DB.QueryRow(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now()
			WHERE id=$1 AND stock >= $2
			RETURNING stock`, ref.ID, amount).Scan(&lvl.Stock)
	case KindVariant:
		var status string
		err = r.DB.QueryRow(ctx, `
			UPDATE product_variants SET
				stock = stock - $2,
				status = CASE WHEN status = 'ACTIVE' AND stock - $2 <= 0 THEN 'OUT_OF_STOCK' ELSE status END,
				updated_at = now()
			WHERE id=$1 AND stock >= $2 AND status NOT IN ('INACTIVE','DISCONTINUED')
			RETURNING stock, status`, ref.ID, amount).Scan(&lvl.Stock, &status)
		lvl.Status = VariantStatus(status)
	default:
		return lvl, fmt.Errorf("unknown unit kind %q", ref.Kind)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return lvl, r.conflictOrMissing(ctx, ref)
	}
	return lvl, err
}

func (r *PGRepository) IncrementStock(ctx context.Context, ref UnitRef, amount int) (StockLevel, error) {
	if amount <= 0 {
		return StockLevel{}, fmt.Errorf("increment amount must be positive, got %d", amount)
	}
	lvl := StockLevel{Ref: ref, Status: StatusActive}
	var err error
	switch ref.Kind {
	case KindProduct:
		err = r.DB.QueryRow(ctx, `
			UPDATE products SET stock = stock + $2, updated_at = now()
			WHERE id=$1 RETURNING stock`, ref.ID, amount).Scan(&lvl.Stock)
	case KindVariant:
		var status string
		err = r.DB.QueryRow(ctx, `
			UPDATE product_variants SET
				stock = stock + $2,
				status = CASE WHEN status = 'OUT_OF_STOCK' AND stock + $2 > 0 THEN 'ACTIVE' ELSE status END,
				updated_at = now()
			WHERE id=$1 RETURNING stock, status`, ref.ID, amount).Scan(&lvl.Stock, &status)
		lvl.Status = VariantStatus(status)
	default:
		return lvl, fmt.Errorf("unknown unit kind %q", ref.Kind)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return lvl, notFound(string(ref.Kind), ref.ID)
	}
	return lvl, err
}

func (r *PGRepository) SetVariantStatus(ctx context.Context, variantID string, status VariantStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	ct, err := r.DB.Exec(ctx, `UPDATE product_variants SET status=$2, updated_at=$3 WHERE id=$1`,
		variantID, string(status), time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return notFound("variant", variantID)
	}
	return nil
}

func (r *PGRepository) conflictOrMissing(ctx context.Context, ref UnitRef) error {
	table := "products"
	if ref.Kind == KindVariant {
		table = "product_variants"
	}
	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id=$1)`, ref.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return notFound(string(ref.Kind), ref.ID)
	}
	return fmt.Errorf("%w: %s", ErrStockConflict, ref)
}
