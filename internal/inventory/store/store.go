// Package store provides the document store boundary for product stock.
package store

import (
	"context"
	"fmt"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/inventory"
	"github.com/google/uuid"
)

// ProductStore abstracts the authoritative product records.
// Implementations must perform AdjustSizeStock as one atomic conditional update.
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*inventory.Product, error)

	// FindAll returns products with pagination support.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context, offset, limit int32) ([]inventory.Product, error)

	// Create adds a new product.
	Create(ctx context.Context, params ProductParams) (*inventory.Product, error)

	// Update replaces the product's details and stock.
	// Returns ErrProductNotFound or ErrOptimisticLock.
	Update(ctx context.Context, id uuid.UUID, version int32, params ProductParams) (*inventory.Product, error)

	// DeleteByID removes a product by its ID and version.
	// Returns ErrProductNotFound or ErrOptimisticLock.
	DeleteByID(ctx context.Context, id uuid.UUID, version int32) error

	// SeedSizeInventory writes a full per-size breakdown for a product that had none or a partial one,
	// setting the total to its sum. Returns ErrOptimisticLock if the version moved.
	SeedSizeInventory(ctx context.Context, id uuid.UUID, version int32, sizeInventory map[string]int32) (*inventory.Product, error)

	// AdjustSizeStock changes the stock of one size by delta if the result stays non-negative,
	// recomputes the total as the sum of all sizes and returns the updated record.
	// Returns ErrProductNotFound, ErrInvalidSize, ErrSizeNotTracked or ErrInsufficientStock.
	AdjustSizeStock(ctx context.Context, id uuid.UUID, size string, delta int32) (*inventory.Product, error)
}

// ProductParams carries the writable product fields.
// A nil SizeInventory on a sized product is authored with inventory.Distribute from TotalStock.
type ProductParams struct {
	Name          string
	Price         int64
	Sizes         []string
	SizeInventory map[string]int32
	TotalStock    int32
}

// normalize enforces the stock invariants before a write: the breakdown covers exactly the declared
// sizes and the total equals its sum.
func (p ProductParams) normalize() (ProductParams, error) {
	if p.TotalStock < 0 {
		return p, fmt.Errorf("%w: negative total stock", perrors.ErrInvalidInventory)
	}
	if len(p.Sizes) == 0 {
		if len(p.SizeInventory) > 0 {
			return p, fmt.Errorf("%w: size inventory given without sizes", perrors.ErrInvalidInventory)
		}
		p.SizeInventory = nil
		return p, nil
	}
	if p.SizeInventory == nil {
		p.SizeInventory = inventory.Distribute(p.TotalStock, p.Sizes)
		return p, nil
	}
	if err := inventory.ValidateSizeInventory(p.Sizes, p.SizeInventory); err != nil {
		return p, err
	}
	p.TotalStock = inventory.Sum(p.SizeInventory)
	return p, nil
}

// seedable checks a seed breakdown against the current record.
func seedable(p *inventory.Product, sizeInventory map[string]int32) error {
	return inventory.ValidateSizeInventory(p.Sizes, sizeInventory)
}

// classifyRejected explains why a conditional stock update matched nothing, given the current record.
func classifyRejected(p *inventory.Product, size string, delta int32) error {
	if !p.HasSize(size) {
		return perrors.ErrInvalidSize
	}
	if _, ok := p.SizeInventory[size]; !ok {
		return perrors.ErrSizeNotTracked
	}
	if _, err := inventory.AdjustedStock(p.SizeInventory, size, delta); err != nil {
		return err
	}
	return perrors.ErrInsufficientStock
}

// adjusted applies delta to one size of p, or explains why it cannot.
func adjusted(p *inventory.Product, size string, delta int32) error {
	if _, tracked := p.SizeInventory[size]; !p.HasSize(size) || !tracked {
		return classifyRejected(p, size, delta)
	}
	next, err := inventory.AdjustedStock(p.SizeInventory, size, delta)
	if err != nil {
		return err
	}
	p.SizeInventory[size] = next
	p.TotalStock = inventory.Sum(p.SizeInventory)
	return nil
}
