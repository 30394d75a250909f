// Package inventory reacts to committed carts: it drops the cached catalog
// entries the cart touched and raises an alert for every depleted unit.
package inventory

import (
	"context"

	"github.com/ariefcatur/go-catalog-carts/internal/carts"
	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	kafkax "github.com/ariefcatur/go-catalog-carts/internal/kafka"
	"github.com/ariefcatur/go-catalog-carts/internal/logging"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Deduper is satisfied by redisx.Dedup.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type Service struct {
	Cache catalog.Invalidator
	Dedup Deduper // optional
	Log   *zap.Logger
}

// HandleCartAssembled is installed as the cart.assembled consumer handler.
// Returning an error leaves the offset uncommitted.
func (s *Service) HandleCartAssembled(ctx context.Context, m kafkago.Message) error {
	log := logging.OrNop(s.Log)

	env, err := kafkax.UnwrapPayload[carts.Envelope](m.Value)
	if err != nil {
		// poison message; retrying cannot fix it
		log.Error("undecodable envelope skipped", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != carts.EventCartAssembled {
		return nil
	}

	if s.Dedup != nil {
		seen, err := s.Dedup.Seen(ctx, env.EventID)
		if err != nil {
			log.Warn("dedup lookup failed", zap.String("event_id", env.EventID), zap.Error(err))
		}
		if seen {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[carts.CartAssembledPayload](env.Payload)
	if err != nil {
		log.Error("undecodable payload skipped", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, p.Units()...); err != nil {
			return err
		}
	}
	for _, u := range p.Depleted {
		log.Warn("unit depleted, restock needed",
			zap.Stringer("unit", u), zap.String("cart_id", p.CartID), zap.String("trace_id", env.TraceID))
	}

	if s.Dedup != nil {
		if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
			log.Warn("dedup mark failed", zap.String("event_id", env.EventID), zap.Error(err))
		}
	}
	log.Info("cart processed", zap.String("cart_id", p.CartID), zap.Int("units", len(p.Units())))
	return nil
}
