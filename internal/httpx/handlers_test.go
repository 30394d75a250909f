package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/carts"
	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/ariefcatur/go-catalog-carts/internal/memstore"
	"github.com/ariefcatur/go-catalog-carts/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapIdem struct {
	mu sync.Mutex
	m  map[string]string
}

func (i *mapIdem) Claim(_ context.Context, userID, key string) (string, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, ok := i.m[userID+"/"+key]
	if !ok {
		i.m[userID+"/"+key] = "pending"
		return "", true, nil
	}
	if v == "pending" {
		return "", false, nil
	}
	return v, false, nil
}

func (i *mapIdem) Complete(_ context.Context, userID, key, cartID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.m[userID+"/"+key] = cartID
	return nil
}

func (i *mapIdem) Release(_ context.Context, userID, key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.m, userID+"/"+key)
	return nil
}

type testAPI struct {
	store  *memstore.Store
	router *chi.Mux
	idem   *mapIdem
	carts  *CartsHandler
}

func newTestAPI() *testAPI {
	st := memstore.New()
	idem := &mapIdem{m: map[string]string{}}
	money := pricing.NewFormatter("R$ ")

	r := NewRouter(nil)
	ch := &CartsHandler{
		Assembler: &carts.Assembler{Catalog: st, Store: st, Retry: carts.RetryPolicy{MaxAttempts: 1}},
		Carts:     st,
		Idem:      idem,
		Money:     money,
		Timeout:   time.Second,
	}
	ch.Register(r)
	(&CatalogHandler{
		Service: catalog.NewService(st, nil, nil),
		Reader:  st,
		Money:   money,
	}).Register(r)
	return &testAPI{store: st, router: r, idem: idem, carts: ch}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthz(t *testing.T) {
	rec := newTestAPI().do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAssembleCartCreated(t *testing.T) {
	api := newTestAPI()
	p := api.store.SimpleProduct("Mug", "1234.50", 3)

	rec := api.do(t, http.MethodPost, "/carts", map[string]any{
		"user_id": "u1",
		"items":   []map[string]any{{"product_id": p.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[cartResp](t, rec)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, "R$ 1.234,50", resp.TotalDisplay)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "R$ 1.234,50", resp.Items[0].LineTotalDisplay)
	assert.False(t, resp.Idempotent)

	rec = api.do(t, http.MethodGet, "/carts/"+resp.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resp.ID, decode[cartResp](t, rec).ID)
}

func TestAssembleCartErrorStatuses(t *testing.T) {
	api := newTestAPI()
	p := api.store.SimpleProduct("Mug", "10", 1)
	paused := api.store.PutVariant(catalog.Variant{ProductID: p.ID, Price: decimal.NewFromInt(5), Stock: 3, Status: catalog.StatusInactive})

	cases := []struct {
		name  string
		items []map[string]any
		code  int
		kind  string
	}{
		{"zero quantity", []map[string]any{{"product_id": p.ID, "quantity": 0}}, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"no lines", []map[string]any{}, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"missing product", []map[string]any{{"product_id": "ghost", "quantity": 1}}, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{"paused variant", []map[string]any{{"product_id": p.ID, "variant_id": paused.ID, "quantity": 1}}, http.StatusConflict, "UNIT_UNAVAILABLE"},
		{"too many", []map[string]any{{"product_id": p.ID, "quantity": 4}}, http.StatusConflict, "INSUFFICIENT_STOCK"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/carts", map[string]any{"user_id": "u1", "items": c.items})
			require.Equal(t, c.code, rec.Code, rec.Body.String())
			assert.Equal(t, c.kind, decode[errorResp](t, rec).Error)
		})
	}

	rec := api.do(t, http.MethodPost, "/carts", map[string]any{"user_id": "u1", "items": []map[string]any{{"product_id": p.ID, "quantity": 4}}})
	body := decode[errorResp](t, rec)
	assert.Equal(t, 3, body.Shortfall)
	require.NotNil(t, body.Available)
	assert.Equal(t, 1, *body.Available)
	assert.Equal(t, "product:"+p.ID, body.Unit)
}

func TestAssembleCartBadRequests(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/carts", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/carts", map[string]any{"items": []map[string]any{{"product_id": "p", "quantity": 1}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", decode[errorResp](t, rec).Error)
}

func TestAssembleCartIdempotencyKey(t *testing.T) {
	api := newTestAPI()
	p := api.store.SimpleProduct("Mug", "10", 5)
	body := map[string]any{"user_id": "u1", "items": []map[string]any{{"product_id": p.ID, "quantity": 2}}}

	first := api.do(t, http.MethodPost, "/carts", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code)
	second := api.do(t, http.MethodPost, "/carts", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, second.Code)

	a, b := decode[cartResp](t, first), decode[cartResp](t, second)
	assert.Equal(t, a.ID, b.ID)
	assert.True(t, b.Idempotent)
	assert.Equal(t, 1, api.store.CartCount())

	stock, err := api.store.FindProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stock.Stock)
}

// gatedAssembler holds the first Assemble call until release is closed.
type gatedAssembler struct {
	next    CartAssembler
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedAssembler) Assemble(ctx context.Context, userID string, lines []carts.Line) (*carts.Cart, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
	}
	return g.next.Assemble(ctx, userID, lines)
}

func TestAssembleCartSameKeyInFlight(t *testing.T) {
	api := newTestAPI()
	p := api.store.SimpleProduct("Mug", "10", 10)
	gate := &gatedAssembler{next: api.carts.Assembler, entered: make(chan struct{}), release: make(chan struct{})}
	api.carts.Assembler = gate
	body := `{"user_id":"u1","items":[{"product_id":"` + p.ID + `","quantity":3}]}`

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- api.do(t, http.MethodPost, "/carts", body, "Idempotency-Key", "k-1") }()
	<-gate.entered

	second := api.do(t, http.MethodPost, "/carts", body, "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, "IDEMPOTENCY_KEY_IN_USE", decode[errorResp](t, second).Error)

	close(gate.release)
	first := <-done
	require.Equal(t, http.StatusCreated, first.Code)

	replay := api.do(t, http.MethodPost, "/carts", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, decode[cartResp](t, first).ID, decode[cartResp](t, replay).ID)

	assert.EqualValues(t, 1, gate.calls.Load())
	assert.Equal(t, 1, api.store.CartCount())
	got, err := api.store.FindProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)
}

func TestAssembleCartFailureReleasesKey(t *testing.T) {
	api := newTestAPI()
	p := api.store.SimpleProduct("Mug", "10", 2)

	rec := api.do(t, http.MethodPost, "/carts",
		map[string]any{"user_id": "u1", "items": []map[string]any{{"product_id": p.ID, "quantity": 5}}},
		"Idempotency-Key", "k-2")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, api.idem.m)

	rec = api.do(t, http.MethodPost, "/carts",
		map[string]any{"user_id": "u1", "items": []map[string]any{{"product_id": p.ID, "quantity": 2}}},
		"Idempotency-Key", "k-2")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, decode[cartResp](t, rec).ID, api.idem.m["u1/k-2"])
}

func TestGetCartNotFound(t *testing.T) {
	rec := newTestAPI().do(t, http.MethodGet, "/carts/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	api := newTestAPI()
	ctx := context.Background()
	red, err := api.store.EnsureRef(ctx, catalog.RefColor, "Red")
	require.NoError(t, err)
	m, err := api.store.EnsureRef(ctx, catalog.RefSize, "M")
	require.NoError(t, err)

	rec := api.do(t, http.MethodPost, "/products", map[string]any{
		"name":      "Basic Tee",
		"price":     "50.00",
		"discount":  10,
		"stock":     0,
		"color_ids": []string{red.ID},
		"size_ids":  []string{m.ID},
		"overrides": []map[string]any{{"color_id": red.ID, "size_id": m.ID, "stock": 0}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[productResp](t, rec)
	require.NotNil(t, created.Product)
	require.Len(t, created.Variants, 1)
	assert.Equal(t, "R$ 45,00", created.FinalPriceDisplay)
	variantID := created.Variants[0].ID

	rec = api.do(t, http.MethodGet, "/products/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[productResp](t, rec).Variants, 1)

	rec = api.do(t, http.MethodPut, "/products/"+created.ID+"/pricing", map[string]any{"price": "80", "discount": 25})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[productResp](t, rec).FinalPrice.Equal(decimal.NewFromInt(60)))

	rec = api.do(t, http.MethodPost, "/stock/variant/"+variantID+"/restock", map[string]any{"amount": 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	level := decode[map[string]any](t, rec)
	assert.EqualValues(t, 4, level["stock"])
	assert.Equal(t, "ACTIVE", level["status"])

	rec = api.do(t, http.MethodPut, "/variants/"+variantID+"/status", map[string]any{"status": "DISCONTINUED"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodPut, "/variants/"+variantID+"/status", map[string]any{"status": "ACTIVE"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCatalogEndpointErrors(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/products", map[string]any{"name": "", "price": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/products", map[string]any{"name": "x", "price": "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PRODUCT", decode[errorResp](t, rec).Error)

	rec = api.do(t, http.MethodGet, "/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/stock/bundle/x/restock", map[string]any{"amount": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/stock/product/x/restock", map[string]any{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPut, "/variants/x/status", map[string]any{"status": "ARCHIVED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusForUnknownErrorIsInternal(t *testing.T) {
	code, body := statusFor(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "INTERNAL", body.Error)

	code, body = statusFor(&carts.Error{Kind: carts.KindPersistenceFailure, Line: -1, Err: errors.New("conn reset")})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.NotContains(t, body.Message, "conn reset")
}
