package carts

import (
	"encoding/json"
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/shopspring/decimal"
)

const (
	TopicCartAssembled = "cart.assembled"
	TopicStockDepleted = "catalog.stock.depleted"

	EventCartAssembled = "CartAssembled"
	EventStockDepleted = "StockDepleted"
)

// Partition key = cart id, so every event of one cart keeps its order.
func PartitionKey(cartID string) []byte { return []byte(cartID) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // cart id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPayload struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CartAssembledPayload struct {
	CartID   string            `json:"cart_id"`
	UserID   string            `json:"user_id"`
	Items    []ItemPayload     `json:"items"`
	Total    decimal.Decimal   `json:"total"`
	Depleted []catalog.UnitRef `json:"depleted,omitempty"`
}

type StockDepletedPayload struct {
	CartID string          `json:"cart_id"`
	Unit   catalog.UnitRef `json:"unit"`
}

func NewCartAssembledPayload(c *Cart, depleted []catalog.UnitRef) CartAssembledPayload {
	items := make([]ItemPayload, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, ItemPayload{
			ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity, UnitPrice: it.UnitPrice,
		})
	}
	return CartAssembledPayload{CartID: c.ID, UserID: c.UserID, Items: items, Total: c.Total, Depleted: depleted}
}

// Units lists every unit the cart touched, deduplicated.
func (p CartAssembledPayload) Units() []catalog.UnitRef {
	seen := make(map[catalog.UnitRef]bool, len(p.Items))
	out := make([]catalog.UnitRef, 0, len(p.Items))
	for _, it := range p.Items {
		u := Line{ProductID: it.ProductID, VariantID: it.VariantID}.Unit()
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}
