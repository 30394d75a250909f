package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/ariefcatur/go-catalog-carts/internal/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CatalogCache is a read-through cache in front of catalog.Reader. Writers
// call Invalidate; a redis outage degrades to direct reads.
type CatalogCache struct {
	Next catalog.Reader
	RDB  redis.Cmdable
	TTL  time.Duration
	Log  *zap.Logger
}

func (c *CatalogCache) ttl() time.Duration {
	if c.TTL <= 0 {
		return TTLCatalog
	}
	return c.TTL
}

func UnitKey(ref catalog.UnitRef) string {
	return fmt.Sprintf(KeyCatalogUnit, ref.Kind, ref.ID)
}

func (c *CatalogCache) FindProduct(ctx context.Context, id string) (*catalog.Product, error) {
	var p catalog.Product
	if c.get(ctx, catalog.ProductUnit(id), &p) {
		return &p, nil
	}
	out, err := c.Next.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, catalog.ProductUnit(id), out)
	return out, nil
}

func (c *CatalogCache) FindVariant(ctx context.Context, id string) (*catalog.Variant, error) {
	var v catalog.Variant
	if c.get(ctx, catalog.VariantUnit(id), &v) {
		return &v, nil
	}
	out, err := c.Next.FindVariant(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, catalog.VariantUnit(id), out)
	return out, nil
}

func (c *CatalogCache) Invalidate(ctx context.Context, refs ...catalog.UnitRef) error {
	if len(refs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(refs))
	for _, r := range refs {
		keys = append(keys, UnitKey(r))
	}
	return c.RDB.Del(ctx, keys...).Err()
}

func (c *CatalogCache) get(ctx context.Context, ref catalog.UnitRef, dst any) bool {
	b, err := c.RDB.Get(ctx, UnitKey(ref)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.OrNop(c.Log).Debug("catalog cache read failed", zap.Stringer("unit", ref), zap.Error(err))
		}
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

func (c *CatalogCache) put(ctx context.Context, ref catalog.UnitRef, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.RDB.Set(ctx, UnitKey(ref), b, c.ttl()).Err(); err != nil {
		logging.OrNop(c.Log).Debug("catalog cache write failed", zap.Stringer("unit", ref), zap.Error(err))
	}
}
