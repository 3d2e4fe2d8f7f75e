package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeronDaniel/E-commerce-project/internal/domain"
	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/auth"
	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/catalog"
	redisrepo "github.com/MeronDaniel/E-commerce-project/internal/sandbox/repository/redis"
	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/service"
	"github.com/MeronDaniel/E-commerce-project/internal/storefront"
	"github.com/MeronDaniel/E-commerce-project/pkg/health"
	"github.com/MeronDaniel/E-commerce-project/pkg/httputil"
	"github.com/MeronDaniel/E-commerce-project/pkg/logger"
	"github.com/MeronDaniel/E-commerce-project/pkg/pagination"
)

type testServer struct {
	handler http.Handler
	token   string
	mr      *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cat, err := catalog.New(catalog.Seed())
	require.NoError(t, err)

	svc := service.NewCartService(
		redisrepo.NewCartRepository(rdb, time.Hour),
		cat,
		map[string]int{"SAVE10": 10},
		domain.DefaultPricing(),
		logger.Discard(),
	)

	jwtManager := auth.NewJWTManager("router-test-secret-0123456789", time.Hour)
	token, err := jwtManager.GenerateAccessToken("u-1", "")
	require.NoError(t, err)

	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := NewRouter(ctx, svc, service.NewProductService(cat), jwtManager.Validator(), healthHandler, logger.Discard(), RateLimit{RPS: 1000, Burst: 1000})
	return &testServer{handler: h, token: token, mr: mr}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorBody {
	t.Helper()
	var body httputil.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRouter_RequiresToken(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is missing", decodeErrorBody(t, rec).Error)
}

func TestRouter_CartFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/cart/add", `{"product_id":3,"quantity":4}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cart storefront.CartPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(7779), cart.TotalCents)
	assert.Equal(t, "Ceramic Mug", cart.Items[0].Product.Title)

	rec = srv.do(t, http.MethodPut, "/api/cart/update", `{"product_id":3,"quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/cart/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1,"total_items":2}`, rec.Body.String())

	rec = srv.do(t, http.MethodDelete, "/api/cart/remove", `{"product_id":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/cart/count", "")
	assert.JSONEq(t, `{"count":0,"total_items":0}`, rec.Body.String())
}

func TestRouter_UpdateAboveStock(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/cart/add", `{"product_id":4,"quantity":1}`).Code)

	rec := srv.do(t, http.MethodPut, "/api/cart/update", `{"product_id":4,"quantity":5}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "Only 3 in stock", body.Error)
	assert.Equal(t, "insufficient_stock", body.Code)
}

func TestRouter_ApplyPromo(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/cart/apply-promo", `{"promo_code":"save10"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var promo storefront.PromoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &promo))
	assert.Equal(t, "SAVE10", promo.PromoCode)
	assert.Equal(t, 10, promo.DiscountPercent)

	rec = srv.do(t, http.MethodPost, "/api/cart/apply-promo", `{"promo_code":"NOPE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid promo code", decodeErrorBody(t, rec).Error)
}

func TestRouter_ValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   string
	}{
		{"zero quantity", http.MethodPut, "/api/cart/update", `{"product_id":1,"quantity":0}`, "validation_error"},
		{"missing product", http.MethodPost, "/api/cart/add", `{"quantity":1}`, "validation_error"},
		{"empty promo", http.MethodPost, "/api/cart/apply-promo", `{"promo_code":""}`, "validation_error"},
		{"malformed json", http.MethodDelete, "/api/cart/remove", `{"product_id":`, "invalid_input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeErrorBody(t, rec).Code)
		})
	}
}

func TestRouter_RemoveMissingItem(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodDelete, "/api/cart/remove", `{"product_id":1}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "item_not_in_cart", decodeErrorBody(t, rec).Code)
}

func TestRouter_ClearCart(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/cart/add", `{"product_id":1,"quantity":1}`).Code)

	assert.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, "/api/cart", "").Code)
	assert.False(t, srv.mr.Exists("cart:u-1"))
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	srv.mr.Close()
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_ListProducts_Public(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products?page=2&per_page=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page pagination.Result[storefront.ProductPayload]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 6, page.TotalCount)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "laptop-stand", page.Data[0].Slug)
	assert.Equal(t, 0, page.Data[0].Stock)
}
