package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret"

// catalogStub implements only the catalog queries these tests reach
type catalogStub struct {
	service.CatalogStore
	products  []models.Product
	gotFilter models.ProductFilter
	gotOffset int
	gotLimit  int
}

func (s *catalogStub) ListProducts(_ context.Context, f models.ProductFilter, offset, limit int) ([]models.Product, int, error) {
	s.gotFilter, s.gotOffset, s.gotLimit = f, offset, limit
	return s.products, len(s.products), nil
}

func (s *catalogStub) FirstImageURLs(context.Context, []string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (s *catalogStub) CategoryNames(context.Context, []string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (s *catalogStub) BrandNames(context.Context, []string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (s *catalogStub) CategoryIDsByNames(context.Context, []string) ([]string, error) {
	return []string{"acc"}, nil
}

func (s *catalogStub) GetProductBySlug(_ context.Context, slug string) (*models.Product, error) {
	return nil, fmt.Errorf("product %s: %w", slug, store.ErrNotFound)
}

func (s *catalogStub) ListProductRefs(context.Context) ([]models.ProductRef, error) {
	return []models.ProductRef{{ID: "p-1", Slug: "seiko-5", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}}, nil
}

type cartStub struct {
	service.CartStore
	added      []string
	quantities map[string]int
}

func (s *cartStub) AddCartItem(_ context.Context, userID, productID string) (*models.CartItem, error) {
	s.added = append(s.added, productID)
	return &models.CartItem{ID: "c-9", UserID: userID, ProductID: productID, Quantity: 1}, nil
}

func (s *cartStub) SetCartItemQuantity(_ context.Context, _, itemID string, quantity int) error {
	if s.quantities == nil {
		s.quantities = map[string]int{}
	}
	s.quantities[itemID] = quantity
	return nil
}

func (*cartStub) ListCartLines(context.Context, string) ([]models.CartLine, error) {
	return []models.CartLine{
		{ID: "c-1", ProductID: "p-1", Quantity: 2, Price: 100000},
		{ID: "c-2", ProductID: "p-2", Quantity: 1, Price: 250000},
	}, nil
}

type checkoutStub struct {
	service.CheckoutStore
}

type adminStub struct {
	service.AdminStore
	txs []models.Transaction
}

func (s *adminStub) ListTransactions(context.Context) ([]models.Transaction, error) {
	return s.txs, nil
}

type profileStub map[string]bool

func (p profileStub) IsAdmin(_ context.Context, userID string) (bool, error) {
	return p[userID], nil
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type testEnv struct {
	router  *gin.Engine
	catalog *catalogStub
	cart    *cartStub
}

func newTestEnv(t *testing.T, checks map[string]Pinger) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalogStore := &catalogStub{}
	cartStore := &cartStub{}
	catalog := service.NewCatalogService(catalogStore, nil, service.CatalogConfig{
		StoreName:              "HuyHoangWatch",
		BaseURL:                "https://shop.test",
		AccessoryCategoryNames: []string{"Phụ kiện"},
	})
	admin := service.NewAdminService(&adminStub{txs: []models.Transaction{
		{ID: "t-1", Status: models.StatusPending, CreatedAt: time.Now()},
	}}, profileStub{"boss": true}, nil, nil)

	h := NewHandler(Services{
		Catalog:  catalog,
		Filters:  service.NewFilterService(nil, nil, 0),
		Cart:     service.NewCartService(cartStore, service.NewEnricher(catalogStore)),
		Checkout: service.NewCheckoutService(checkoutStub{}, nil, nil, models.BankInfo{BankName: "VCB"}),
		Admin:    admin,
	}, Config{JWTSecret: testSecret}, checks)

	router := gin.New()
	h.SetupRoutes(router)
	return &testEnv{router: router, catalog: catalogStore, cart: cartStore}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t, map[string]Pinger{
		"postgres": pingerFunc(func(context.Context) error { return nil }),
		"redis":    pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	w := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	details := decode(t, w)["details"].(map[string]interface{})
	assert.Contains(t, details, "redis")
	assert.NotContains(t, details, "postgres")
}

func TestListProductsParsesFilters(t *testing.T) {
	env := newTestEnv(t, nil)
	env.catalog.products = []models.Product{{ID: "p-1", Name: "Seiko"}}

	w := env.do(t, http.MethodGet,
		"/api/products?categories=a,b&brands=x&gender=male&strap=leather&accessory=strap&strapOrAccessory=leather&page=2&pageSize=5&shop=1",
		"", "")
	require.Equal(t, http.StatusOK, w.Code)

	f := env.catalog.gotFilter
	assert.Equal(t, []string{"a", "b"}, f.CategoryIDs)
	assert.Equal(t, []string{"x"}, f.BrandIDs)
	assert.Equal(t, []string{"male"}, f.Genders)
	assert.Equal(t, []string{"leather", "strap"}, f.StrapTypes)
	assert.Equal(t, []string{"acc"}, f.ExcludeCategoryIDs)
	assert.Equal(t, 5, env.catalog.gotOffset)
	assert.Equal(t, 5, env.catalog.gotLimit)

	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(5), body["pageSize"])
	item := body["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, models.PlaceholderImage, item["image_url"])
	assert.Equal(t, models.UnknownCategory, item["category_name"])
	assert.NotContains(t, item, "brand_name")
}

func TestListProductsDefaults(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/products?pageSize=1000", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.catalog.gotOffset)
	assert.Equal(t, service.MaxPageSize, env.catalog.gotLimit)
	assert.Empty(t, env.catalog.gotFilter.ExcludeCategoryIDs)
}

func TestProductNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/products/missing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", decode(t, w)["error"])
}

func TestFiltersServeFallback(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/filters", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["brands"], len(models.FallbackFilterOptions().Brands))
}

func TestCartRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, loginRedirect, decode(t, w)["redirect"])

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	w = env.do(t, http.MethodGet, "/api/cart", "", "u1")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(450000), body["total"])
	assert.Equal(t, float64(3), body["count"])
}

func TestTokenSignedWithOtherAlgorithmIsRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "u1"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/cart?access_token="+signed, nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckoutValidatesShippingAddress(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/checkout",
		`{"shipping_address":{"fullName":"A","email":"not-an-email","phone":"1","address":"x","city":"y"},"confirm_transfer":true}`,
		"u1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decode(t, w)["error"])

	w = env.do(t, http.MethodPost, "/api/checkout",
		`{"shipping_address":{"fullName":"A","email":"a@example.com","phone":"1","address":"x","city":"y"}}`,
		"u1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["details"], "bank transfer")
}

func TestCheckoutInfo(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/checkout", "", "u1")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "VCB", body["bank_info"].(map[string]interface{})["bankName"])
}

func TestAdminGate(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/admin/transactions", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/transactions", "", "customer")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, shopRedirect, decode(t, w)["redirect"])

	w = env.do(t, http.MethodGet, "/api/admin/transactions", "", "boss")
	require.Equal(t, http.StatusOK, w.Code)
	txs := decode(t, w)["transactions"].([]interface{})
	require.Len(t, txs, 1)
	assert.Equal(t, models.ToneWarning, txs[0].(map[string]interface{})["tone"])
}

func TestAdminDeleteRequiresConfirm(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodDelete, "/api/admin/products/p-1", "", "boss")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminExportHeaders(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/admin/transactions/export", "", "boss")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=transactions-")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestAdminFeedDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/admin/feed", "", "boss")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSitemap(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/sitemap.xml", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "<?xml"))
	assert.Contains(t, body, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, body, "<loc>https://shop.test/shop/product/seiko-5</loc>")
	assert.Contains(t, body, "<lastmod>2024-03-01</lastmod>")
	assert.Contains(t, body, "<priority>0.8</priority>")
}

func TestCartItemRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":"p-1"}`, "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"p-1"}, env.cart.added)
	assert.Equal(t, float64(1), decode(t, w)["quantity"])

	w = env.do(t, http.MethodPost, "/api/cart/items", `{}`, "u1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, "/api/cart/items/c-1", `{"quantity":0}`, "u1")
	require.Equal(t, http.StatusNoContent, w.Code)
	q, ok := env.cart.quantities["c-1"]
	require.True(t, ok)
	assert.Zero(t, q)

	w = env.do(t, http.MethodPatch, "/api/cart/items/c-2", `{}`, "u1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, env.cart.quantities, "c-2")
}

func TestRoutesWithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(Services{Filters: service.NewFilterService(nil, nil, 0)}, Config{JWTSecret: testSecret}, nil)
	router := gin.New()
	h.SetupRoutes(router)
	env := &testEnv{router: router}

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "", "").Code)

	w := env.do(t, http.MethodGet, "/api/filters", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["brands"], len(models.FallbackFilterOptions().Brands))

	for _, path := range []string{"/api/products", "/api/home", "/sitemap.xml", "/api/cart", "/api/admin/products"} {
		w := env.do(t, http.MethodGet, path, "", "u1")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func TestQueryTokenOnlyAcceptedOnFeed(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/cart?access_token="+token(t, "u1"), "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/feed?access_token="+token(t, "boss"), "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "admin gate passed, feed disabled")
}

func TestRequestLoggerOmitsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	router := gin.New()
	router.Use(requestLogger(zap.New(core)))
	router.GET("/api/admin/feed", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/api/admin/feed?access_token=secret-token", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/admin/feed", fields["path"])
	assert.Equal(t, int64(http.StatusNoContent), fields["status"])
	for _, v := range fields {
		assert.NotContains(t, fmt.Sprint(v), "secret-token")
	}
}

func TestCORSCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name        string
		origins     []string
		allowOrigin string
		credentials string
	}{
		{name: "wildcard", origins: []string{"*"}, allowOrigin: "*", credentials: ""},
		{name: "unset", origins: nil, allowOrigin: "*", credentials: ""},
		{name: "explicit", origins: []string{"https://shop.test"}, allowOrigin: "https://shop.test", credentials: "true"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(corsMiddleware(tc.origins))
			router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Origin", "https://shop.test")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.allowOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tc.credentials, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}
