package store

import (
	"context"
	"slices"
	"sync"
	"time"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/inventory"
	"github.com/google/uuid"
)

// MemStore implements ProductStore using an in-memory map.
// Every mutation runs in one critical section, which makes AdjustSizeStock atomic.
type MemStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*inventory.Product
	now      func() time.Time
}

// NewMemStore creates an empty in-memory product store.
func NewMemStore() *MemStore {
	return &MemStore{
		products: make(map[uuid.UUID]*inventory.Product),
		now:      time.Now,
	}
}

// Put stores a record as is, bypassing normalization. It is meant for fixtures and imports
// of records that predate per-size tracking.
func (s *MemStore) Put(p inventory.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	s.products[p.ID] = p.Clone()
}

// FindByID retrieves a product by its ID.
func (s *MemStore) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, perrors.Transient(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	return p.Clone(), nil
}

// FindAll retrieves products ordered by creation time.
func (s *MemStore) FindAll(ctx context.Context, offset, limit int32) ([]inventory.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, perrors.Transient(err)
	}
	s.mu.RLock()
	list := make([]inventory.Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, *p.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(list, func(a, b inventory.Product) int {
		if c := compareTime(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	start := max(int(offset), 0)
	if start >= len(list) || limit <= 0 {
		return []inventory.Product{}, nil
	}
	end := min(len(list), start+int(limit))
	return list[start:end], nil
}

func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}

// Create creates a new product and returns it.
func (s *MemStore) Create(ctx context.Context, params ProductParams) (*inventory.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, perrors.Transient(err)
	}
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p := &inventory.Product{
		ID:            uuid.New(),
		Name:          params.Name,
		Price:         params.Price,
		Sizes:         slices.Clone(params.Sizes),
		SizeInventory: params.SizeInventory,
		TotalStock:    params.TotalStock,
		Version:       1,
		CreatedAt:     &now,
		UpdatedAt:     &now,
	}
	s.products[p.ID] = p.Clone()
	return p, nil
}

// Update replaces a product's details if the version matches.
func (s *MemStore) Update(ctx context.Context, id uuid.UUID, version int32, params ProductParams) (*inventory.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, perrors.Transient(err)
	}
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.versioned(id, version)
	if err != nil {
		return nil, err
	}
	now := s.now()
	p.Name = params.Name
	p.Price = params.Price
	p.Sizes = slices.Clone(params.Sizes)
	p.SizeInventory = params.SizeInventory
	p.TotalStock = params.TotalStock
	p.Version++
	p.UpdatedAt = &now
	return p.Clone(), nil
}

// DeleteByID removes a product if the version matches.
func (s *MemStore) DeleteByID(ctx context.Context, id uuid.UUID, version int32) error {
	if err := ctx.Err(); err != nil {
		return perrors.Transient(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.versioned(id, version); err != nil {
		return err
	}
	delete(s.products, id)
	return nil
}

// SeedSizeInventory writes a full breakdown if the version matches.
func (s *MemStore) SeedSizeInventory(ctx context.Context, id uuid.UUID, version int32, sizeInventory map[string]int32) (*inventory.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, perrors.Transient(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.versioned(id, version)
	if err != nil {
		return nil, err
	}
	if err := seedable(p, sizeInventory); err != nil {
		return nil, err
	}
	now := s.now()
	p.SizeInventory = make(map[string]int32, len(sizeInventory))
	for k, v := range sizeInventory {
		p.SizeInventory[k] = v
	}
	p.TotalStock = inventory.Sum(p.SizeInventory)
	p.Version++
	p.UpdatedAt = &now
	return p.Clone(), nil
}

// AdjustSizeStock applies delta to one size when the result is non-negative and fits a stock count.
func (s *MemStore) AdjustSizeStock(ctx context.Context, id uuid.UUID, size string, delta int32) (*inventory.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, perrors.Transient(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	if err := adjusted(p, size, delta); err != nil {
		return nil, err
	}
	now := s.now()
	p.Version++
	p.UpdatedAt = &now
	return p.Clone(), nil
}

// versioned returns the stored record for a versioned write. Caller holds s.mu.
func (s *MemStore) versioned(id uuid.UUID, version int32) (*inventory.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	if p.Version != version {
		return nil, perrors.ErrOptimisticLock
	}
	return p, nil
}
