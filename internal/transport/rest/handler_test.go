package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abgdnv/storefront/internal/cart"
	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/inventory/cache"
	"github.com/abgdnv/storefront/internal/inventory/service"
	"github.com/abgdnv/storefront/internal/order"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) FindByID(ctx context.Context, id uuid.UUID) (*service.ProductDto, error) {
	args := m.Called(ctx, id)
	dto, _ := args.Get(0).(*service.ProductDto)
	return dto, args.Error(1)
}

func (m *MockCatalog) FindAll(ctx context.Context, offset, limit int32) ([]service.ProductDto, error) {
	args := m.Called(ctx, offset, limit)
	list, _ := args.Get(0).([]service.ProductDto)
	return list, args.Error(1)
}

func (m *MockCatalog) Stock(ctx context.Context, id uuid.UUID, size string) (int32, error) {
	args := m.Called(ctx, id, size)
	return int32(args.Int(0)), args.Error(1)
}

func (m *MockCatalog) Create(ctx context.Context, product service.ProductCreateDto) (*service.ProductDto, error) {
	args := m.Called(ctx, product)
	dto, _ := args.Get(0).(*service.ProductDto)
	return dto, args.Error(1)
}

func (m *MockCatalog) Update(ctx context.Context, id uuid.UUID, product service.ProductUpdateDto) (*service.ProductDto, error) {
	args := m.Called(ctx, id, product)
	dto, _ := args.Get(0).(*service.ProductDto)
	return dto, args.Error(1)
}

func (m *MockCatalog) SetInventory(ctx context.Context, id uuid.UUID, inv service.InventoryUpdateDto) (*service.ProductDto, error) {
	args := m.Called(ctx, id, inv)
	dto, _ := args.Get(0).(*service.ProductDto)
	return dto, args.Error(1)
}

func (m *MockCatalog) DeleteByID(ctx context.Context, id uuid.UUID, version int32) error {
	return m.Called(ctx, id, version).Error(0)
}

type MockCart struct {
	mock.Mock
}

func (m *MockCart) Get(ctx context.Context, cartID uuid.UUID) (*cart.CartDto, error) {
	args := m.Called(ctx, cartID)
	dto, _ := args.Get(0).(*cart.CartDto)
	return dto, args.Error(1)
}

func (m *MockCart) AddItem(ctx context.Context, cartID uuid.UUID, item cart.AddItemDto) (*cart.CartDto, error) {
	args := m.Called(ctx, cartID, item)
	dto, _ := args.Get(0).(*cart.CartDto)
	return dto, args.Error(1)
}

func (m *MockCart) UpdateQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int32) (*cart.CartDto, error) {
	args := m.Called(ctx, cartID, itemID, quantity)
	dto, _ := args.Get(0).(*cart.CartDto)
	return dto, args.Error(1)
}

func (m *MockCart) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	return m.Called(ctx, cartID, itemID).Error(0)
}

func (m *MockCart) Clear(ctx context.Context, cartID uuid.UUID) error {
	return m.Called(ctx, cartID).Error(0)
}

func (m *MockCart) Merge(ctx context.Context, guestID, userID uuid.UUID) (*cart.CartDto, error) {
	args := m.Called(ctx, guestID, userID)
	dto, _ := args.Get(0).(*cart.CartDto)
	return dto, args.Error(1)
}

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) Place(ctx context.Context, userID uuid.UUID, dto order.PlaceOrderDto, key string) (*order.OrderDto, error) {
	args := m.Called(ctx, userID, dto, key)
	o, _ := args.Get(0).(*order.OrderDto)
	return o, args.Error(1)
}

func (m *MockOrders) Cancel(ctx context.Context, userID, id uuid.UUID) (*order.OrderDto, error) {
	args := m.Called(ctx, userID, id)
	o, _ := args.Get(0).(*order.OrderDto)
	return o, args.Error(1)
}

func (m *MockOrders) FindByID(ctx context.Context, userID, id uuid.UUID) (*order.OrderDto, error) {
	args := m.Called(ctx, userID, id)
	o, _ := args.Get(0).(*order.OrderDto)
	return o, args.Error(1)
}

func (m *MockOrders) FindOrdersByUserID(ctx context.Context, userID uuid.UUID, offset, limit int32) ([]order.OrderDto, error) {
	args := m.Called(ctx, userID, offset, limit)
	list, _ := args.Get(0).([]order.OrderDto)
	return list, args.Error(1)
}

type MockCacheAdmin struct {
	mock.Mock
}

func (m *MockCacheAdmin) Invalidate(ctx context.Context, productID uuid.UUID, size string) (string, error) {
	args := m.Called(ctx, productID, size)
	return args.String(0), args.Error(1)
}

func (m *MockCacheAdmin) Stats(ctx context.Context) cache.Stats {
	return m.Called(ctx).Get(0).(cache.Stats)
}

// allowAll stands in for the bearer middleware.
func allowAll(next http.Handler) http.Handler { return next }

func serve(t *testing.T, register func(r chi.Router), req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func Test_ProductHandler_Stock(t *testing.T) {
	id := uuid.New()
	testCases := []struct {
		name          string
		available     int
		serviceErr    error
		expectedCode  int
		expectedField string
	}{
		{name: "resolved", available: 3, expectedCode: http.StatusOK, expectedField: "available"},
		{name: "unknown product", serviceErr: perrors.ErrProductNotFound, expectedCode: http.StatusNotFound, expectedField: "error"},
		{name: "undeclared size", serviceErr: perrors.ErrInvalidSize, expectedCode: http.StatusBadRequest, expectedField: "error"},
		{name: "store down", serviceErr: perrors.Transient(errors.New("timeout")), expectedCode: http.StatusServiceUnavailable, expectedField: "error"},
		{name: "unexpected", serviceErr: errors.New("boom"), expectedCode: http.StatusInternalServerError, expectedField: "error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			catalog := new(MockCatalog)
			catalog.On("Stock", mock.Anything, id, "M").Return(tc.available, tc.serviceErr)
			h := NewProductHandler(catalog, slog.Default())
			req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id.String()+"/stock/M", nil)

			// when
			rec := serve(t, func(r chi.Router) { h.RegisterRoutes(r, nil) }, req)

			// then
			assert.Equal(t, tc.expectedCode, rec.Code)
			body := decode(t, rec)
			assert.Contains(t, body, tc.expectedField)
			if tc.serviceErr == nil {
				assert.Equal(t, float64(tc.available), body["available"])
			}
			catalog.AssertExpectations(t)
		})
	}
}

func Test_ProductHandler_AdminRoutes(t *testing.T) {
	testCases := []struct {
		name         string
		admin        func(http.Handler) http.Handler
		expectedCode int
	}{
		{name: "mounted", admin: allowAll, expectedCode: http.StatusOK},
		{name: "not mounted without auth", admin: nil, expectedCode: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			id := uuid.New()
			catalog := new(MockCatalog)
			dto := service.InventoryUpdateDto{Sizes: []string{"S", "M"}, Stock: 5, Version: 2}
			catalog.On("SetInventory", mock.Anything, id, dto).Return(&service.ProductDto{ID: id.String(), Version: 3}, nil)
			h := NewProductHandler(catalog, slog.Default())
			req := httptest.NewRequest(http.MethodPut, "/api/v1/products/"+id.String()+"/inventory",
				strings.NewReader(`{"sizes":["S","M"],"stock":5,"version":2}`))

			// when
			rec := serve(t, func(r chi.Router) { h.RegisterRoutes(r, tc.admin) }, req)

			// then
			assert.Equal(t, tc.expectedCode, rec.Code)
		})
	}
}

func Test_ProductHandler_Create_Validation(t *testing.T) {
	// given
	catalog := new(MockCatalog)
	h := NewProductHandler(catalog, slog.Default())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/", strings.NewReader(`{"sizes":["S","S"],"stock":-1}`))

	// when
	rec := serve(t, func(r chi.Router) { h.RegisterRoutes(r, allowAll) }, req)

	// then
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body, "validation_errors")
	catalog.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func Test_CartHandler_AddItem(t *testing.T) {
	cartID, productID := uuid.New(), uuid.New()
	testCases := []struct {
		name         string
		body         string
		serviceErr   error
		expectedCode int
		expectedBody map[string]any
	}{
		{
			name:         "added",
			body:         `{"product_id":"` + productID.String() + `","size":"M","quantity":2}`,
			expectedCode: http.StatusOK,
		},
		{
			name:         "insufficient stock reports available",
			body:         `{"product_id":"` + productID.String() + `","size":"M","quantity":2}`,
			serviceErr:   &perrors.InsufficientStockError{ProductID: productID, Size: "M", Requested: 2, Available: 1},
			expectedCode: http.StatusConflict,
			expectedBody: map[string]any{"available": float64(1), "size": "M", "product_id": productID.String()},
		},
		{
			name:         "zero quantity",
			body:         `{"product_id":"` + productID.String() + `","size":"M","quantity":0}`,
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			carts := new(MockCart)
			item := cart.AddItemDto{ProductID: productID, Size: "M", Quantity: 2}
			if tc.serviceErr != nil {
				carts.On("AddItem", mock.Anything, cartID, item).Return(nil, tc.serviceErr)
			} else {
				carts.On("AddItem", mock.Anything, cartID, item).Return(&cart.CartDto{ID: cartID}, nil)
			}
			h := NewCartHandler(carts, slog.Default())
			req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/"+cartID.String()+"/items", strings.NewReader(tc.body))

			// when
			rec := serve(t, h.RegisterRoutes, req)

			// then
			assert.Equal(t, tc.expectedCode, rec.Code)
			body := decode(t, rec)
			for k, v := range tc.expectedBody {
				assert.Equal(t, v, body[k], k)
			}
		})
	}
}

func Test_CartHandler_Merge_RequiresUser(t *testing.T) {
	// given
	guestID, userID := uuid.New(), uuid.New()
	carts := new(MockCart)
	carts.On("Merge", mock.Anything, guestID, userID).Return(&cart.CartDto{ID: userID}, nil)
	h := NewCartHandler(carts, slog.Default())
	anonymous := httptest.NewRequest(http.MethodPost, "/api/v1/carts/"+guestID.String()+"/merge", nil)
	signedIn := httptest.NewRequest(http.MethodPost, "/api/v1/carts/"+guestID.String()+"/merge", nil)
	signedIn.Header.Set(web.XUserId, userID.String())

	// when
	anonymousRec := serve(t, h.RegisterRoutes, anonymous)
	signedInRec := serve(t, h.RegisterRoutes, signedIn)

	// then
	assert.Equal(t, http.StatusUnauthorized, anonymousRec.Code)
	assert.Equal(t, http.StatusOK, signedInRec.Code)
	carts.AssertNumberOfCalls(t, "Merge", 1)
}

func Test_OrderHandler_Place(t *testing.T) {
	userID, productID, orderID := uuid.New(), uuid.New(), uuid.New()
	dto := order.PlaceOrderDto{Items: []service.Line{{ProductID: productID, Size: "L", Quantity: 1}}}
	body := `{"items":[{"product_id":"` + productID.String() + `","size":"L","quantity":1}]}`
	testCases := []struct {
		name          string
		key           string
		serviceErr    error
		expectedCode  int
		expectedOrder string
	}{
		{name: "placed", key: "k1", expectedCode: http.StatusCreated, expectedOrder: orderID.String()},
		{name: "replayed key", key: "k1", serviceErr: &perrors.DuplicateRequestError{Key: "k1", OrderID: orderID.String()},
			expectedCode: http.StatusConflict, expectedOrder: orderID.String()},
		{name: "out of stock", serviceErr: &perrors.InsufficientStockError{ProductID: productID, Size: "L", Requested: 1},
			expectedCode: http.StatusConflict},
		{name: "unknown product", serviceErr: perrors.ErrProductNotFound, expectedCode: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			orders := new(MockOrders)
			if tc.serviceErr != nil {
				orders.On("Place", mock.Anything, userID, dto, tc.key).Return(nil, tc.serviceErr)
			} else {
				orders.On("Place", mock.Anything, userID, dto, tc.key).Return(&order.OrderDto{ID: orderID, UserID: userID}, nil)
			}
			h := NewOrderHandler(orders, slog.Default())
			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/", strings.NewReader(body))
			req.Header.Set(web.XUserId, userID.String())
			if tc.key != "" {
				req.Header.Set(IdempotencyKeyHeader, tc.key)
			}

			// when
			rec := serve(t, h.RegisterRoutes, req)

			// then
			assert.Equal(t, tc.expectedCode, rec.Code)
			if tc.expectedOrder != "" {
				res := decode(t, rec)
				if tc.serviceErr == nil {
					assert.Equal(t, tc.expectedOrder, res["id"])
				} else {
					assert.Equal(t, tc.expectedOrder, res["order_id"])
				}
			}
			orders.AssertExpectations(t)
		})
	}
}

func Test_OrderHandler_Cancel(t *testing.T) {
	testCases := []struct {
		name         string
		serviceErr   error
		expectedCode int
	}{
		{name: "cancelled", expectedCode: http.StatusOK},
		{name: "not pending", serviceErr: perrors.ErrOrderNotCancellable, expectedCode: http.StatusConflict},
		{name: "other user", serviceErr: perrors.ErrAccessDenied, expectedCode: http.StatusForbidden},
		{name: "missing", serviceErr: perrors.ErrOrderNotFound, expectedCode: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			userID, id := uuid.New(), uuid.New()
			orders := new(MockOrders)
			if tc.serviceErr != nil {
				orders.On("Cancel", mock.Anything, userID, id).Return(nil, tc.serviceErr)
			} else {
				orders.On("Cancel", mock.Anything, userID, id).Return(&order.OrderDto{ID: id, Status: order.StatusCancelled}, nil)
			}
			h := NewOrderHandler(orders, slog.Default())
			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+id.String()+"/cancel", nil)
			req.Header.Set(web.XUserId, userID.String())

			// when
			rec := serve(t, h.RegisterRoutes, req)

			// then
			assert.Equal(t, tc.expectedCode, rec.Code)
		})
	}
}

func Test_AdminHandler(t *testing.T) {
	productID := uuid.New()
	testCases := []struct {
		name         string
		query        string
		productID    uuid.UUID
		size         string
		scope        string
		serviceErr   error
		expectedCode int
	}{
		{name: "everything", scope: service.ScopeAll, expectedCode: http.StatusOK},
		{name: "one size", query: "?product_id=" + productID.String() + "&size=M", productID: productID, size: "M",
			scope: service.ScopeSize, expectedCode: http.StatusOK},
		{name: "size without product", query: "?size=M", size: "M", serviceErr: perrors.ErrInvalidArgument,
			expectedCode: http.StatusBadRequest},
		{name: "malformed product id", query: "?product_id=nope", expectedCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			admin := new(MockCacheAdmin)
			admin.On("Invalidate", mock.Anything, tc.productID, tc.size).Return(tc.scope, tc.serviceErr)
			h := NewAdminHandler(admin, slog.Default())
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/inventory-cache/"+tc.query, nil)

			// when
			rec := serve(t, func(r chi.Router) { h.RegisterRoutes(r, allowAll) }, req)

			// then
			assert.Equal(t, tc.expectedCode, rec.Code)
			if tc.scope != "" {
				assert.Equal(t, tc.scope, decode(t, rec)["scope"])
			}
		})
	}
}

func Test_AdminHandler_Stats(t *testing.T) {
	// given
	admin := new(MockCacheAdmin)
	admin.On("Stats", mock.Anything).Return(cache.Stats{Hits: 4, Misses: 1, Entries: 2})
	h := NewAdminHandler(admin, slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/inventory-cache/stats", nil)

	// when
	rec := serve(t, func(r chi.Router) { h.RegisterRoutes(r, allowAll) }, req)

	// then
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(4), body["hits"])
	assert.Equal(t, float64(2), body["entries"])
}

func Test_AdminHandler_NotMountedWithoutAuth(t *testing.T) {
	// given
	h := NewAdminHandler(new(MockCacheAdmin), slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/inventory-cache/stats", nil)

	// when
	rec := serve(t, func(r chi.Router) { h.RegisterRoutes(r, nil) }, req)

	// then
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
