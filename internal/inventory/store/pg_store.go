package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/inventory"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements ProductStore using PostgreSQL, with the per-size breakdown kept in a JSONB column.
type PgStore struct {
	db *pgxpool.Pool
	q  *db.Queries
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{
		db: dbp,
		q:  db.New(dbp),
	}
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	product, err := p.q.FindProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, storeError("find product by ID", err)
	}
	return toProduct(product)
}

// FindAll retrieves products with pagination support.
func (p *PgStore) FindAll(ctx context.Context, offset, limit int32) ([]inventory.Product, error) {
	rows, err := p.q.FindAllProducts(ctx, db.FindAllProductsParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, storeError("find all products", err)
	}
	products := make([]inventory.Product, 0, len(rows))
	for _, row := range rows {
		product, err := toProduct(row)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, nil
}

// Create adds a new product.
func (p *PgStore) Create(ctx context.Context, params ProductParams) (*inventory.Product, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}
	raw, err := encodeSizeInventory(params.SizeInventory)
	if err != nil {
		return nil, err
	}
	product, err := p.q.CreateProduct(ctx, db.CreateProductParams{
		Name:          params.Name,
		Price:         params.Price,
		StockQuantity: params.TotalStock,
		Sizes:         sizesOrEmpty(params.Sizes),
		SizeInventory: raw,
	})
	if err != nil {
		return nil, storeError("create product", err)
	}
	return toProduct(product)
}

// Update modifies an existing product's details and stock.
// Returns ErrProductNotFound if no product exists with the given ID, ErrOptimisticLock if the version moved.
func (p *PgStore) Update(ctx context.Context, id uuid.UUID, version int32, params ProductParams) (*inventory.Product, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}
	raw, err := encodeSizeInventory(params.SizeInventory)
	if err != nil {
		return nil, err
	}
	product, err := p.q.UpdateProduct(ctx, db.UpdateProductParams{
		ID:            id,
		Version:       version,
		Name:          params.Name,
		Price:         params.Price,
		StockQuantity: params.TotalStock,
		Sizes:         sizesOrEmpty(params.Sizes),
		SizeInventory: raw,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, p.missOrLock(ctx, id)
		}
		return nil, storeError("update product", err)
	}
	return toProduct(product)
}

// DeleteByID removes a product by its unique identifier and version.
func (p *PgStore) DeleteByID(ctx context.Context, id uuid.UUID, version int32) error {
	count, err := p.q.DeleteProduct(ctx, db.DeleteProductParams{ID: id, Version: version})
	if err != nil {
		return storeError("delete product by ID", err)
	}
	if count == 0 {
		return p.missOrLock(ctx, id)
	}
	return nil
}

// SeedSizeInventory writes a full breakdown guarded by version.
func (p *PgStore) SeedSizeInventory(ctx context.Context, id uuid.UUID, version int32, sizeInventory map[string]int32) (*inventory.Product, error) {
	current, err := p.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != version {
		return nil, perrors.ErrOptimisticLock
	}
	if err := seedable(current, sizeInventory); err != nil {
		return nil, err
	}
	raw, err := encodeSizeInventory(sizeInventory)
	if err != nil {
		return nil, err
	}
	product, err := p.q.SeedSizeInventory(ctx, db.SeedSizeInventoryParams{
		ID:            id,
		Version:       version,
		SizeInventory: raw,
		StockQuantity: inventory.Sum(sizeInventory),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, p.missOrLock(ctx, id)
		}
		return nil, storeError("seed size inventory", err)
	}
	return toProduct(product)
}

// AdjustSizeStock runs a single conditional UPDATE; the row is only touched when the size is tracked
// and the new value is non-negative and fits a stock count. Stored values are coerced in SQL the same way
// reads coerce them. A rejected update is classified with a follow-up read.
func (p *PgStore) AdjustSizeStock(ctx context.Context, id uuid.UUID, size string, delta int32) (*inventory.Product, error) {
	product, err := p.q.AdjustSizeStock(ctx, db.AdjustSizeStockParams{Size: size, Delta: delta, ID: id})
	if err == nil {
		return toProduct(product)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storeError("adjust size stock", err)
	}
	current, findErr := p.FindByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	return nil, classifyRejected(current, size, delta)
}

// missOrLock tells a missing row from a version mismatch after a versioned write matched nothing.
func (p *PgStore) missOrLock(ctx context.Context, id uuid.UUID) error {
	_, err := p.q.FindProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return perrors.ErrProductNotFound
		}
		return storeError("find product by ID", err)
	}
	return perrors.ErrOptimisticLock
}

// storeError wraps a driver error. Errors the server answered with are permanent; anything else
// (timeouts, broken connections, closed pool) is reported as transient.
func storeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return perrors.Transient(fmt.Errorf("failed to %s: %w", op, err))
}

func toProduct(row db.Product) (*inventory.Product, error) {
	sizeInventory, err := decodeSizeInventory(row.SizeInventory)
	if err != nil {
		return nil, fmt.Errorf("failed to decode size inventory of product %s: %w", row.ID, err)
	}
	createdAt, updatedAt := row.CreatedAt, row.UpdatedAt
	return &inventory.Product{
		ID:            row.ID,
		Name:          row.Name,
		Price:         row.Price,
		Sizes:         row.Sizes,
		SizeInventory: sizeInventory,
		TotalStock:    row.StockQuantity,
		Version:       row.Version,
		CreatedAt:     &createdAt,
		UpdatedAt:     &updatedAt,
	}, nil
}

// decodeSizeInventory reads the JSONB breakdown; values that are not numbers count as 0.
func decodeSizeInventory(raw []byte) (map[string]int32, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	if values == nil {
		return nil, nil
	}
	out := make(map[string]int32, len(values))
	for size, v := range values {
		out[size] = inventory.CoerceStock(v)
	}
	return out, nil
}

func encodeSizeInventory(sizeInventory map[string]int32) ([]byte, error) {
	if sizeInventory == nil {
		return nil, nil
	}
	raw, err := json.Marshal(sizeInventory)
	if err != nil {
		return nil, fmt.Errorf("failed to encode size inventory: %w", err)
	}
	return raw, nil
}

func sizesOrEmpty(sizes []string) []string {
	if sizes == nil {
		return []string{}
	}
	return sizes
}
