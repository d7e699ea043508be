// Package app contains the dependency wiring of the storefront service.
package app

import (
	"log/slog"
	"net/http"

	"cloud.google.com/go/firestore"
	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/inventory/cache"
	"github.com/abgdnv/storefront/internal/inventory/service"
	"github.com/abgdnv/storefront/internal/inventory/store"
	"github.com/abgdnv/storefront/internal/order"
	grpcImpl "github.com/abgdnv/storefront/internal/transport/grpc"
	"github.com/abgdnv/storefront/internal/transport/rest"
	inventoryv1 "github.com/abgdnv/storefront/pkg/api/inventory/v1"
	"github.com/abgdnv/storefront/pkg/auth"
	pkgconfig "github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
)

// Stores holds the storage the service runs on. Carts and Orders are nil unless the driver is postgres.
type Stores struct {
	Products store.ProductStore
	Carts    cart.Store
	Orders   order.Store
}

// PgStores keeps products, carts and orders in Postgres.
func PgStores(dbPool *pgxpool.Pool) Stores {
	return Stores{
		Products: store.NewPgStore(dbPool),
		Carts:    cart.NewPgStore(dbPool),
		Orders:   order.NewPgStore(dbPool),
	}
}

// FirestoreStores keeps products in a Firestore collection.
func FirestoreStores(client *firestore.Client, collection string) Stores {
	return Stores{Products: store.NewFirestoreStore(client, collection)}
}

// MemoryStores keeps products in process memory.
func MemoryStores() Stores {
	return Stores{Products: store.NewMemStore()}
}

// Infra holds the optional collaborators. Nil fields fall back to no-op behaviour.
type Infra struct {
	Publisher   messaging.Publisher
	Idempotency order.Idempotency
	Verifier    auth.Verifier
	Metrics     http.Handler
}

type Dependencies struct {
	Cache        *cache.Cache
	Reservations *service.Reservations
	Catalog      service.CatalogService
	CacheAdmin   service.CacheAdmin
	CartService  cart.CartService
	OrderService order.OrderService
	Verifier     auth.Verifier
	Metrics      http.Handler
	Logger       *slog.Logger
}

// SetupDependencies builds the cache, the reservation protocol and its callers. Callers must Close
// the returned dependencies.
func SetupDependencies(stores Stores, infra Infra, cfg *config.Config, logger *slog.Logger) *Dependencies {
	publisher := infra.Publisher
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	c := cache.New(
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithSweepInterval(cfg.Cache.SweepInterval),
		cache.WithLogger(logger.With("component", "inventory-cache")),
	)
	opts := []service.Option{
		service.WithPublisher(publisher),
		service.WithLogger(logger),
		service.WithQueryTimeout(cfg.Database.QueryTimeout),
		service.WithSource(cfg.Instance),
	}
	reservations := service.NewReservations(stores.Products, c, opts...)

	deps := &Dependencies{
		Cache:        c,
		Reservations: reservations,
		Catalog:      service.NewCatalog(stores.Products, reservations, opts...),
		CacheAdmin:   service.NewCacheAdministration(c, reservations, logger),
		Verifier:     infra.Verifier,
		Metrics:      infra.Metrics,
		Logger:       logger,
	}
	if stores.Carts != nil {
		deps.CartService = cart.NewService(stores.Carts, reservations, logger)
	}
	if stores.Orders != nil {
		deps.OrderService = order.NewService(stores.Orders, stores.Products, reservations, infra.Idempotency, publisher, logger)
	}
	return deps
}

// Close stops the cache janitor.
func (d *Dependencies) Close() {
	d.Cache.Close()
}

// SetupHttpHandler initializes the routes of the storefront API.
// Used by tests to set up the HTTP handler with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies, metricsPath string) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	if deps.Metrics != nil {
		mux.Handle(metricsPath, deps.Metrics)
	}
	return otelhttp.NewHandler(mux, "storefront")
}

// wireRoutes sets up the HTTP routes. Admin routes need a token verifier; carts and orders need their stores.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	var admin func(http.Handler) http.Handler
	if deps.Verifier != nil {
		admin = auth.BearerMiddleware(deps.Verifier)
	}
	rest.NewProductHandler(deps.Catalog, deps.Logger).RegisterRoutes(mux, admin)
	rest.NewAdminHandler(deps.CacheAdmin, deps.Logger).RegisterRoutes(mux, admin)
	if deps.CartService != nil {
		rest.NewCartHandler(deps.CartService, deps.Logger).RegisterRoutes(mux)
	}
	if deps.OrderService != nil {
		rest.NewOrderHandler(deps.OrderService, deps.Logger).RegisterRoutes(mux)
	}
}

// SetupHttpServer creates and configures an HTTP server for the storefront API.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	handler := SetupHttpHandler(deps, cfg.Telemetry.Metrics.Path)

	return server.NewHTTPServer(cfg.HTTPServer, handler)
}

// SetupGrpcServer initializes the gRPC server with the inventory admin service.
func SetupGrpcServer(deps *Dependencies, cfg pkgconfig.GrpcServerConfig) *grpc.Server {
	adminRegisterFunc := func(s *grpc.Server) {
		inventoryv1.RegisterInventoryAdminServer(s, grpcImpl.NewServer(deps.CacheAdmin, deps.Reservations, deps.Logger))
	}
	return server.NewGRPCServer(cfg, server.UnaryServerInterceptors(deps.Logger), adminRegisterFunc)
}
