package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/carts"
	"github.com/ariefcatur/go-catalog-carts/internal/logging"
	"github.com/ariefcatur/go-catalog-carts/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CartAssembler interface {
	Assemble(ctx context.Context, userID string, lines []carts.Line) (*carts.Cart, error)
}

type CartFinder interface {
	FindCart(ctx context.Context, id string) (*carts.Cart, error)
}

// Idempotency is satisfied by redisx.Idempotency. Claim must be atomic:
// of two concurrent claims for one key exactly one wins.
type Idempotency interface {
	Claim(ctx context.Context, userID, key string) (cartID string, claimed bool, err error)
	Complete(ctx context.Context, userID, key, cartID string) error
	Release(ctx context.Context, userID, key string) error
}

type CartsHandler struct {
	Assembler CartAssembler
	Carts     CartFinder
	Idem      Idempotency // optional
	Money     pricing.Formatter
	Timeout   time.Duration
	Log       *zap.Logger

	validate *validator.Validate
}

type AssembleCartReq struct {
	UserID string       `json:"user_id" validate:"required,max=64"`
	Items  []carts.Line `json:"items" validate:"dive"`
}

type cartItemResp struct {
	carts.Item
	UnitPriceDisplay string `json:"unit_price_display"`
	LineTotalDisplay string `json:"line_total_display"`
}

type cartResp struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Items        []cartItemResp  `json:"items"`
	Total        decimal.Decimal `json:"total"`
	TotalDisplay string          `json:"total_display"`
	CreatedAt    time.Time       `json:"created_at"`
	Idempotent   bool            `json:"idempotent"`
}

func (h *CartsHandler) Register(r chi.Router) {
	r.Post("/carts", h.assemble)
	r.Get("/carts/{id}", h.getCart)
}

func (h *CartsHandler) validator() *validator.Validate {
	if h.validate == nil {
		h.validate = validator.New()
	}
	return h.validate
}

func (h *CartsHandler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 5 * time.Second
	}
	return h.Timeout
}

func (h *CartsHandler) assemble(w http.ResponseWriter, r *http.Request) {
	var req AssembleCartReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if err := h.validator().Struct(req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()
	ctx = carts.WithTraceID(ctx, middleware.GetReqID(r.Context()))
	log := logging.OrNop(h.Log)

	idemKey := r.Header.Get("Idempotency-Key")
	owned := false
	if idemKey != "" && h.Idem != nil {
		id, claimed, err := h.Idem.Claim(ctx, req.UserID, idemKey)
		switch {
		case err != nil:
			// redis outage: assemble without replay protection
			log.Warn("idempotency claim failed", zap.Error(err))
		case claimed:
			owned = true
		case id == "":
			writeJSON(w, http.StatusConflict, errorResp{
				Error:   "IDEMPOTENCY_KEY_IN_USE",
				Message: "a request with this Idempotency-Key is still in progress",
			})
			return
		default:
			c, err := h.Carts.FindCart(ctx, id)
			if err != nil {
				log.Warn("idempotent cart not readable", zap.String("cart_id", id), zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, h.render(c, true))
			return
		}
	}

	cart, err := h.Assembler.Assemble(ctx, req.UserID, req.Items)
	if err != nil {
		if owned {
			if rerr := h.Idem.Release(context.WithoutCancel(ctx), req.UserID, idemKey); rerr != nil {
				log.Warn("idempotency key not released", zap.Error(rerr))
			}
		}
		writeError(w, err)
		return
	}

	if owned {
		if err := h.Idem.Complete(context.WithoutCancel(ctx), req.UserID, idemKey, cart.ID); err != nil {
			log.Warn("idempotency key not stored", zap.String("cart_id", cart.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, h.render(cart, false))
}

func (h *CartsHandler) getCart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		badRequest(w, "missing id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Carts.FindCart(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.render(c, false))
}

func (h *CartsHandler) render(c *carts.Cart, idempotent bool) cartResp {
	out := cartResp{
		ID:           c.ID,
		UserID:       c.UserID,
		Items:        make([]cartItemResp, 0, len(c.Items)),
		Total:        c.Total,
		TotalDisplay: h.Money.Format(c.Total),
		CreatedAt:    c.CreatedAt,
		Idempotent:   idempotent,
	}
	for _, it := range c.Items {
		out.Items = append(out.Items, cartItemResp{
			Item:             it,
			UnitPriceDisplay: h.Money.Format(it.UnitPrice),
			LineTotalDisplay: h.Money.Format(it.LineTotal),
		})
	}
	return out
}
