// Package e2e provides end-to-end tests for the storefront application.
// The suite runs the real HTTP handler in an `httptest.Server` against a PostgreSQL container
// started by `pgtest`, and drives the catalog, cart and order APIs the way a client would.
//
// Key features of the test suite:
//   - Every test starts from empty tables.
//   - Admin routes are mounted with a static token verifier.
//   - Stock is always checked through the public stock endpoint, so the inventory cache is exercised.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/store/pgtest"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/suite"
)

const (
	adminToken  = "e2e-admin-token"
	productsURL = "/api/v1/products/"
	ordersURL   = "/api/v1/orders/"
)

type staticVerifier struct{}

func (staticVerifier) Verify(_ context.Context, tokenString string) (jwt.Token, error) {
	if tokenString != adminToken {
		return nil, errors.New("invalid token")
	}
	return jwt.NewBuilder().Subject("admin").Expiration(time.Now().Add(time.Hour)).Build()
}

// StorefrontE2ESuite is a test suite for end-to-end tests of the storefront.
type StorefrontE2ESuite struct {
	suite.Suite
	env        *pgtest.Env
	deps       *app.Dependencies
	server     *httptest.Server
	httpClient *http.Client
	ctx        context.Context
}

// testConfig creates the configuration the dependencies need.
func testConfig() *config.Config {
	var cfg config.Config
	cfg.Instance = "e2e"
	cfg.Cache.TTL = time.Minute
	cfg.Database.QueryTimeout = 5 * time.Second
	cfg.Telemetry.Metrics.Path = "/metrics"
	return &cfg
}

func (s *StorefrontE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	s.env = pgtest.Start(s.ctx, s.T())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s.deps = app.SetupDependencies(app.PgStores(s.env.Pool), app.Infra{Verifier: staticVerifier{}}, testConfig(), logger)
	s.server = httptest.NewServer(app.SetupHttpHandler(s.deps, "/metrics"))
	s.httpClient = s.server.Client()
}

func (s *StorefrontE2ESuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.deps != nil {
		s.deps.Close()
	}
	s.env.Stop(s.ctx)
}

// SetupTest empties the tables and the cache, so no test sees another test's stock.
func (s *StorefrontE2ESuite) SetupTest() {
	s.env.Truncate(s.ctx, s.T())
	s.deps.Cache.Invalidate()
}

func TestStorefrontE2E(t *testing.T) {
	pgtest.SkipIfDisabled(t)
	suite.Run(t, new(StorefrontE2ESuite))
}

// --------------------------------------------------------------------------
// ---------- Helper methods for E2E tests ----------------------------------
// --------------------------------------------------------------------------

type response struct {
	code int
	body map[string]any
}

func (s *StorefrontE2ESuite) do(method, path string, payload any, headers map[string]string) response {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		s.Require().NoError(err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()

	out := response{code: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 && raw[0] == '{' {
		s.Require().NoError(json.Unmarshal(raw, &out.body))
	}
	return out
}

func admin() map[string]string {
	return map[string]string{"Authorization": "Bearer " + adminToken}
}

func user(id uuid.UUID, extra ...string) map[string]string {
	h := map[string]string{"X-User-Id": id.String()}
	for i := 0; i+1 < len(extra); i += 2 {
		h[extra[i]] = extra[i+1]
	}
	return h
}

// createProduct creates a product through the admin API and returns its ID.
func (s *StorefrontE2ESuite) createProduct(name string, price int64, inventory map[string]int32) string {
	sizes := make([]string, 0, len(inventory))
	for size := range inventory {
		sizes = append(sizes, size)
	}
	resp := s.do(http.MethodPost, productsURL, map[string]any{
		"name": name, "price": price, "sizes": sizes, "size_inventory": inventory,
	}, admin())
	s.Require().Equal(http.StatusCreated, resp.code)
	return resp.body["id"].(string)
}

func (s *StorefrontE2ESuite) stock(productID, size string) float64 {
	resp := s.do(http.MethodGet, productsURL+productID+"/stock/"+size, nil, nil)
	s.Require().Equal(http.StatusOK, resp.code)
	return resp.body["available"].(float64)
}

func orderLines(productID, size string, quantity int32) map[string]any {
	return map[string]any{"items": []map[string]any{{"product_id": productID, "size": size, "quantity": quantity}}}
}

// --------------------------------------------------------------------------
// ---------- Tests ---------------------------------------------------------
// --------------------------------------------------------------------------

func (s *StorefrontE2ESuite) TestCheckoutFlow() {
	// given
	productID := s.createProduct("Tee", 1500, map[string]int32{"M": 3})
	cartID := uuid.NewString()
	buyer := uuid.New()
	s.Equal(float64(3), s.stock(productID, "M"))

	// when a cart line reserves two
	added := s.do(http.MethodPost, "/api/v1/carts/"+cartID+"/items",
		map[string]any{"product_id": productID, "size": "M", "quantity": 2}, nil)

	// then
	s.Require().Equal(http.StatusOK, added.code)
	items := added.body["items"].([]any)
	s.Require().Len(items, 1)
	s.Equal(float64(1), items[0].(map[string]any)["available"])
	s.Equal(float64(1), s.stock(productID, "M"))

	// when an order takes the last one
	placed := s.do(http.MethodPost, ordersURL, orderLines(productID, "M", 1), user(buyer))

	// then
	s.Require().Equal(http.StatusCreated, placed.code)
	s.Equal(float64(1500), placed.body["total"])
	s.Equal("pending", placed.body["status"])
	s.Equal(float64(0), s.stock(productID, "M"))

	// when another order finds nothing left
	rejected := s.do(http.MethodPost, ordersURL, orderLines(productID, "M", 1), user(buyer))

	// then
	s.Equal(http.StatusConflict, rejected.code)
	s.Equal(float64(0), rejected.body["available"])

	// when the order is cancelled and the cart line removed
	orderID := placed.body["id"].(string)
	cancelled := s.do(http.MethodPost, ordersURL+orderID+"/cancel", nil, user(buyer))
	itemID := items[0].(map[string]any)["id"].(string)
	removed := s.do(http.MethodDelete, "/api/v1/carts/"+cartID+"/items/"+itemID, nil, nil)

	// then all stock is back
	s.Equal(http.StatusOK, cancelled.code)
	s.Equal("cancelled", cancelled.body["status"])
	s.Equal(http.StatusNoContent, removed.code)
	s.Equal(float64(3), s.stock(productID, "M"))
}

func (s *StorefrontE2ESuite) TestPlaceOrder_IsAllOrNothing() {
	// given
	tee := s.createProduct("Tee", 1000, map[string]int32{"S": 5})
	hat := s.createProduct("Cap", 500, map[string]int32{"L": 1})
	buyer := uuid.New()

	// when
	resp := s.do(http.MethodPost, ordersURL, map[string]any{"items": []map[string]any{
		{"product_id": tee, "size": "S", "quantity": 2},
		{"product_id": hat, "size": "L", "quantity": 2},
	}}, user(buyer))

	// then
	s.Equal(http.StatusConflict, resp.code)
	s.Equal(hat, resp.body["product_id"])
	s.Equal(float64(1), resp.body["available"])
	s.Equal(float64(5), s.stock(tee, "S"))
	s.Equal(float64(1), s.stock(hat, "L"))
}

func (s *StorefrontE2ESuite) TestPlaceOrder_IdempotencyKey() {
	// given
	productID := s.createProduct("Tee", 1000, map[string]int32{"M": 5})
	buyer := uuid.New()
	headers := user(buyer, "Idempotency-Key", "checkout-42")

	// when
	first := s.do(http.MethodPost, ordersURL, orderLines(productID, "M", 2), headers)
	second := s.do(http.MethodPost, ordersURL, orderLines(productID, "M", 2), headers)

	// then
	s.Require().Equal(http.StatusCreated, first.code)
	s.Equal(http.StatusConflict, second.code)
	s.Equal(first.body["id"], second.body["order_id"])
	s.Equal(float64(3), s.stock(productID, "M"))
}

func (s *StorefrontE2ESuite) TestAdminInventoryWrite_RefreshesCache() {
	// given
	productID := s.createProduct("Tee", 1000, map[string]int32{"S": 2, "M": 2})
	s.Equal(float64(2), s.stock(productID, "S"))
	found := s.do(http.MethodGet, productsURL+productID, nil, nil)
	s.Require().Equal(http.StatusOK, found.code)

	// when
	updated := s.do(http.MethodPut, productsURL+productID+"/inventory", map[string]any{
		"sizes": []string{"S", "M", "L"}, "stock": 10, "version": found.body["version"],
	}, admin())
	stale := s.do(http.MethodPut, productsURL+productID+"/inventory", map[string]any{
		"sizes": []string{"S"}, "stock": 1, "version": found.body["version"],
	}, admin())

	// then
	s.Require().Equal(http.StatusOK, updated.code)
	s.Equal(http.StatusConflict, stale.code)
	s.Equal(float64(4), s.stock(productID, "S"))
	s.Equal(float64(3), s.stock(productID, "L"))
}

func (s *StorefrontE2ESuite) TestCartMerge() {
	// given
	productID := s.createProduct("Tee", 1000, map[string]int32{"M": 4})
	guestCart := uuid.NewString()
	owner := uuid.New()
	resp := s.do(http.MethodPost, "/api/v1/carts/"+guestCart+"/items",
		map[string]any{"product_id": productID, "size": "M", "quantity": 1}, nil)
	s.Require().Equal(http.StatusOK, resp.code)

	// when
	merged := s.do(http.MethodPost, "/api/v1/carts/"+guestCart+"/merge", nil, user(owner))

	// then
	s.Require().Equal(http.StatusOK, merged.code)
	s.Equal(owner.String(), merged.body["id"])
	s.Len(merged.body["items"], 1)
	s.Equal(float64(3), s.stock(productID, "M"))
}
