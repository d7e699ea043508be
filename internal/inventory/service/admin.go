package service

import (
	"context"
	"fmt"
	"log/slog"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/inventory/cache"
	"github.com/google/uuid"
)

// Invalidation scopes reported back to operators.
const (
	ScopeAll     = "all"
	ScopeProduct = "product"
	ScopeSize    = "size"
)

// CacheAdmin exposes the inventory cache to operators.
type CacheAdmin interface {
	// Invalidate clears the whole cache, one product or one product size and returns the scope cleared.
	// A size without a product is ErrInvalidArgument.
	Invalidate(ctx context.Context, productID uuid.UUID, size string) (string, error)

	// Stats returns the cache counters.
	Stats(ctx context.Context) cache.Stats
}

// CacheAdministration implements CacheAdmin.
type CacheAdministration struct {
	cache  *cache.Cache
	stock  StockView
	logger *slog.Logger
}

// NewCacheAdministration creates the operator surface of the cache.
func NewCacheAdministration(c *cache.Cache, stock StockView, logger *slog.Logger) *CacheAdministration {
	return &CacheAdministration{cache: c, stock: stock, logger: logger.With("component", "cache-admin")}
}

func (a *CacheAdministration) Invalidate(ctx context.Context, productID uuid.UUID, size string) (string, error) {
	var scope string
	switch {
	case productID == uuid.Nil && size != "":
		return "", fmt.Errorf("%w: size %q given without a product", perrors.ErrInvalidArgument, size)
	case productID == uuid.Nil:
		a.cache.Invalidate()
		scope = ScopeAll
	case size == "":
		a.stock.Forget(productID)
		scope = ScopeProduct
	default:
		a.cache.InvalidateSize(productID, size)
		scope = ScopeSize
	}
	a.logger.InfoContext(ctx, "inventory cache invalidated", "scope", scope, "product_id", productID, "size", size)
	return scope, nil
}

func (a *CacheAdministration) Stats(_ context.Context) cache.Stats {
	return a.cache.Stats()
}
