package service

import (
	"context"
	"fmt"
	"time"

	"github.com/abgdnv/storefront/internal/inventory"
	"github.com/abgdnv/storefront/internal/inventory/store"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/google/uuid"
)

// CatalogService defines the methods for reading and administering products and their stock.
type CatalogService interface {
	// FindByID retrieves a single product with its per-size availability.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// FindAll returns products with pagination support.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context, offset, limit int32) ([]ProductDto, error)

	// Stock returns the effective available stock of one size.
	// Returns ErrProductNotFound or ErrInvalidSize.
	Stock(ctx context.Context, id uuid.UUID, size string) (int32, error)

	// Create adds a new product. Without an explicit breakdown the total is distributed across sizes.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// Update modifies the product's details.
	// Returns ErrProductNotFound or ErrOptimisticLock.
	Update(ctx context.Context, id uuid.UUID, product ProductUpdateDto) (*ProductDto, error)

	// SetInventory replaces the sizes and stock of a product.
	// Returns ErrProductNotFound, ErrOptimisticLock or ErrInvalidInventory.
	SetInventory(ctx context.Context, id uuid.UUID, inv InventoryUpdateDto) (*ProductDto, error)

	// DeleteByID removes a product by its ID and version.
	// Returns ErrProductNotFound or ErrOptimisticLock.
	DeleteByID(ctx context.Context, id uuid.UUID, version int32) error
}

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	Name          string           `json:"name"                     validate:"required,max=100"`
	Price         int64            `json:"price"                    validate:"min=0"`
	Sizes         []string         `json:"sizes"                    validate:"unique,dive,required,max=32"`
	Stock         int32            `json:"stock"                    validate:"min=0"`
	SizeInventory map[string]int32 `json:"size_inventory,omitempty" validate:"omitempty,dive,min=0"`
}

// ProductUpdateDto represents the data transfer object for updating product details.
// Sizes that stay declared keep their stock; use InventoryUpdateDto to restock.
type ProductUpdateDto struct {
	Name    string   `json:"name"    validate:"required,max=100"`
	Price   int64    `json:"price"   validate:"min=0"`
	Sizes   []string `json:"sizes"   validate:"unique,dive,required,max=32"`
	Version int32    `json:"version" validate:"required,min=1"`
}

// InventoryUpdateDto represents the data transfer object for an admin inventory write.
type InventoryUpdateDto struct {
	Sizes         []string         `json:"sizes"                    validate:"unique,dive,required,max=32"`
	Stock         int32            `json:"stock"                    validate:"min=0"`
	SizeInventory map[string]int32 `json:"size_inventory,omitempty" validate:"omitempty,dive,min=0"`
	Version       int32            `json:"version"                  validate:"required,min=1"`
}

// ProductDto represents the data transfer object for a product.
// Availability is the resolved per-size stock; Version is used for optimistic concurrency control.
type ProductDto struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         int64            `json:"price"`
	Sizes         []string         `json:"sizes"`
	SizeInventory map[string]int32 `json:"size_inventory,omitempty"`
	Stock         int32            `json:"stock"`
	Availability  map[string]int32 `json:"availability"`
	Version       int32            `json:"version"`
}

// StockView is the part of the reservation protocol the catalog needs.
type StockView interface {
	Availability(ctx context.Context, id uuid.UUID, size string) (int32, error)
	Forget(id uuid.UUID)
}

// Catalog implements CatalogService. Every admin write drops the product from the cache.
type Catalog struct {
	settings
	store store.ProductStore
	stock StockView
}

// NewCatalog creates a new catalog service. Stock lookups go through the reservation protocol so
// they share its cache.
func NewCatalog(st store.ProductStore, stock StockView, opts ...Option) *Catalog {
	cat := &Catalog{
		settings: newSettings(opts),
		store:    st,
		stock:    stock,
	}
	cat.logger = cat.logger.With("component", "catalog")
	return cat
}

// FindByID reads the product from the store so admin pages never show cached values.
func (c *Catalog) FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	qCtx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()
	p, err := c.store.FindByID(qCtx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	return toDto(p), nil
}

// FindAll retrieves a page of products.
func (c *Catalog) FindAll(ctx context.Context, offset, limit int32) ([]ProductDto, error) {
	qCtx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()
	products, err := c.store.FindAll(qCtx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toDto(&products[i])
	}
	return dtos, nil
}

// Stock returns the cached effective stock of product+size.
func (c *Catalog) Stock(ctx context.Context, id uuid.UUID, size string) (int32, error) {
	return c.stock.Availability(ctx, id, size)
}

// Create creates a new product and returns it as a ProductDto.
func (c *Catalog) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	qCtx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()
	created, err := c.store.Create(qCtx, store.ProductParams{
		Name:          product.Name,
		Price:         product.Price,
		Sizes:         product.Sizes,
		SizeInventory: authored(product.Sizes, product.Stock, product.SizeInventory),
		TotalStock:    product.Stock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	c.changed(ctx, created)
	return toDto(created), nil
}

// Update modifies the product's details. Sizes that survive keep their stock, new sizes start at 0.
func (c *Catalog) Update(ctx context.Context, id uuid.UUID, product ProductUpdateDto) (*ProductDto, error) {
	qCtx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()
	current, err := c.store.FindByID(qCtx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}

	params := store.ProductParams{
		Name:          product.Name,
		Price:         product.Price,
		Sizes:         product.Sizes,
		SizeInventory: carryOver(current, product.Sizes),
		TotalStock:    current.TotalStock,
	}
	updated, err := c.store.Update(qCtx, id, product.Version, params)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}
	c.changed(ctx, updated)
	return toDto(updated), nil
}

// SetInventory replaces the sizes and stock. Without an explicit breakdown the total is distributed,
// remainder first.
func (c *Catalog) SetInventory(ctx context.Context, id uuid.UUID, inv InventoryUpdateDto) (*ProductDto, error) {
	qCtx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()
	current, err := c.store.FindByID(qCtx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to set inventory of product with ID %s: %w", id, err)
	}
	updated, err := c.store.Update(qCtx, id, inv.Version, store.ProductParams{
		Name:          current.Name,
		Price:         current.Price,
		Sizes:         inv.Sizes,
		SizeInventory: authored(inv.Sizes, inv.Stock, inv.SizeInventory),
		TotalStock:    inv.Stock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set inventory of product with ID %s: %w", id, err)
	}
	c.logger.InfoContext(ctx, "inventory set", "product_id", id, "size_inventory", updated.SizeInventory,
		"total_stock", updated.TotalStock)
	c.changed(ctx, updated)
	return toDto(updated), nil
}

// DeleteByID deletes a product by its ID.
func (c *Catalog) DeleteByID(ctx context.Context, id uuid.UUID, version int32) error {
	qCtx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()
	if err := c.store.DeleteByID(qCtx, id, version); err != nil {
		return fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}
	c.stock.Forget(id)
	c.publish(ctx, events.StockChangedEvent{ProductID: id, Version: version + 1})
	return nil
}

// changed drops the product from the cache and tells other instances to do the same.
func (c *Catalog) changed(ctx context.Context, p *inventory.Product) {
	c.stock.Forget(p.ID)
	c.publish(ctx, events.StockChangedEvent{ProductID: p.ID, TotalStock: p.TotalStock, Version: p.Version})
}

func (c *Catalog) publish(ctx context.Context, event events.StockChangedEvent) {
	event.Source = c.source
	event.OccurredAt = time.Now().UTC()
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.WarnContext(ctx, "failed to publish stock changed event", "product_id", event.ProductID, "error", err)
	}
}

// authored returns the explicit breakdown, or distributes total across sizes when there is none.
func authored(sizes []string, total int32, explicit map[string]int32) map[string]int32 {
	if explicit != nil || len(sizes) == 0 {
		return explicit
	}
	return inventory.Distribute(total, sizes)
}

// carryOver keeps the visible stock of sizes that are still declared; new sizes start at 0.
func carryOver(current *inventory.Product, sizes []string) map[string]int32 {
	if len(sizes) == 0 {
		return nil
	}
	out := make(map[string]int32, len(sizes))
	for _, s := range sizes {
		out[s] = inventory.ResolveAvailableStock(current, s)
	}
	return out
}

func toDto(p *inventory.Product) *ProductDto {
	sizes := p.Sizes
	if sizes == nil {
		sizes = []string{}
	}
	return &ProductDto{
		ID:            p.ID.String(),
		Name:          p.Name,
		Price:         p.Price,
		Sizes:         sizes,
		SizeInventory: p.SizeInventory,
		Stock:         p.TotalStock,
		Availability:  inventory.ResolveAll(p),
		Version:       p.Version,
	}
}
