package carts

import (
	"context"
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	kafkax "github.com/ariefcatur/go-catalog-carts/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is the part of kafkax.Producer the notifier needs.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// KafkaNotifier publishes cart.assembled plus one catalog.stock.depleted
// per unit that reached zero.
type KafkaNotifier struct {
	Assembled Publisher
	Depleted  Publisher
	Service   string
}

type traceKey struct{}

// WithTraceID carries the request id into published envelopes.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func traceID(ctx context.Context) string {
	s, _ := ctx.Value(traceKey{}).(string)
	return s
}

func (n *KafkaNotifier) CartAssembled(ctx context.Context, c *Cart, depleted []catalog.UnitRef) error {
	trace := traceID(ctx)
	env, err := n.envelope(EventCartAssembled, c.ID, trace, NewCartAssembledPayload(c, depleted))
	if err != nil {
		return err
	}
	n.Assembled.Publish(PartitionKey(c.ID), env, headers(EventCartAssembled)...)

	if n.Depleted == nil {
		return nil
	}
	for _, u := range depleted {
		env, err := n.envelope(EventStockDepleted, c.ID, trace, StockDepletedPayload{CartID: c.ID, Unit: u})
		if err != nil {
			return err
		}
		n.Depleted.Publish([]byte(u.String()), env, headers(EventStockDepleted)...)
	}
	return nil
}

func (n *KafkaNotifier) envelope(eventType, cartID, trace string, payload any) ([]byte, error) {
	body, err := kafkax.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return kafkax.Marshal(Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      n.Service,
		TraceID:       trace,
		CorrelationID: cartID,
		Payload:       body,
	})
}

func headers(eventType string) []kafkago.Header {
	return []kafkago.Header{
		{Key: "x-event-type", Value: []byte(eventType)},
		{Key: "x-event-version", Value: []byte("1")},
	}
}
