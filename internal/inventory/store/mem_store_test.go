package store

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/inventory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemStore_Create(t *testing.T) {
	testCases := []struct {
		name          string
		params        ProductParams
		expectedInv   map[string]int32
		expectedTotal int32
		expectError   error
	}{
		{
			name:          "distributes total when breakdown is omitted",
			params:        ProductParams{Name: "Tee", Price: 1999, Sizes: []string{"S", "M", "L"}, TotalStock: 10},
			expectedInv:   map[string]int32{"S": 4, "M": 3, "L": 3},
			expectedTotal: 10,
		},
		{
			name:          "derives total from breakdown",
			params:        ProductParams{Name: "Tee", Sizes: []string{"S", "M"}, SizeInventory: map[string]int32{"S": 2, "M": 5}, TotalStock: 99},
			expectedInv:   map[string]int32{"S": 2, "M": 5},
			expectedTotal: 7,
		},
		{
			name:          "product without sizes",
			params:        ProductParams{Name: "Mug", TotalStock: 4},
			expectedTotal: 4,
		},
		{
			name:        "breakdown does not cover sizes",
			params:      ProductParams{Name: "Tee", Sizes: []string{"S", "M"}, SizeInventory: map[string]int32{"S": 2}},
			expectError: perrors.ErrInvalidInventory,
		},
		{
			name:        "breakdown without sizes",
			params:      ProductParams{Name: "Mug", SizeInventory: map[string]int32{"S": 2}},
			expectError: perrors.ErrInvalidInventory,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := NewMemStore()
			// when
			created, err := s.Create(context.Background(), tc.params)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedInv, created.SizeInventory)
			assert.Equal(t, tc.expectedTotal, created.TotalStock)
			assert.Equal(t, int32(1), created.Version)

			found, err := s.FindByID(context.Background(), created.ID)
			require.NoError(t, err)
			assert.Equal(t, created, found)
		})
	}
}

func Test_MemStore_AdjustSizeStock(t *testing.T) {
	id := uuid.New()
	fixture := func() *MemStore {
		s := NewMemStore()
		s.Put(inventory.Product{
			ID:            id,
			Sizes:         []string{"S", "M", "L"},
			SizeInventory: map[string]int32{"S": 3, "M": 0},
			TotalStock:    3,
		})
		return s
	}
	testCases := []struct {
		name          string
		id            uuid.UUID
		size          string
		delta         int32
		expectedSize  int32
		expectedTotal int32
		expectError   error
	}{
		{name: "decrement", id: id, size: "S", delta: -2, expectedSize: 1, expectedTotal: 1},
		{name: "decrement to zero", id: id, size: "S", delta: -3, expectedSize: 0, expectedTotal: 0},
		{name: "increment", id: id, size: "M", delta: 4, expectedSize: 4, expectedTotal: 7},
		{name: "would go negative", id: id, size: "S", delta: -4, expectError: perrors.ErrInsufficientStock},
		{name: "untracked size", id: id, size: "L", delta: -1, expectError: perrors.ErrSizeNotTracked},
		{name: "undeclared size", id: id, size: "XL", delta: 1, expectError: perrors.ErrInvalidSize},
		{name: "missing product", id: uuid.New(), size: "S", delta: -1, expectError: perrors.ErrProductNotFound},
		{name: "release past the largest count", id: id, size: "S", delta: math.MaxInt32 - 1, expectError: perrors.ErrStockOverflow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := fixture()
			// when
			updated, err := s.AdjustSizeStock(context.Background(), tc.id, tc.size, tc.delta)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				unchanged, findErr := s.FindByID(context.Background(), id)
				require.NoError(t, findErr)
				assert.Equal(t, int32(1), unchanged.Version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedSize, updated.SizeInventory[tc.size])
			assert.Equal(t, tc.expectedTotal, updated.TotalStock)
			assert.Equal(t, inventory.Sum(updated.SizeInventory), updated.TotalStock)
			assert.Equal(t, int32(2), updated.Version)
		})
	}
}

func Test_MemStore_AdjustSizeStock_ConcurrentNeverOversells(t *testing.T) {
	// given
	s := NewMemStore()
	id := uuid.New()
	s.Put(inventory.Product{ID: id, Sizes: []string{"M"}, SizeInventory: map[string]int32{"M": 10}, TotalStock: 10})

	// when
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AdjustSizeStock(context.Background(), id, "M", -1); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	// then
	assert.Equal(t, int32(10), succeeded.Load())
	p, err := s.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int32(0), p.SizeInventory["M"])
	assert.Equal(t, int32(0), p.TotalStock)
}

func Test_MemStore_SeedSizeInventory(t *testing.T) {
	// given
	s := NewMemStore()
	id := uuid.New()
	s.Put(inventory.Product{ID: id, Sizes: []string{"S", "M", "L"}, TotalStock: 10})
	legacy, _ := s.FindByID(context.Background(), id)

	// when
	seeded, err := s.SeedSizeInventory(context.Background(), id, legacy.Version, inventory.Materialize(legacy))

	// then
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{"S": 3, "M": 3, "L": 3}, seeded.SizeInventory)
	assert.Equal(t, int32(9), seeded.TotalStock)

	_, err = s.SeedSizeInventory(context.Background(), id, legacy.Version, inventory.Materialize(legacy))
	assert.ErrorIs(t, err, perrors.ErrOptimisticLock)

	_, err = s.SeedSizeInventory(context.Background(), id, seeded.Version, map[string]int32{"S": 1})
	assert.ErrorIs(t, err, perrors.ErrInvalidInventory)
}

func Test_MemStore_UpdateAndDelete_Versioned(t *testing.T) {
	// given
	s := NewMemStore()
	ctx := context.Background()
	created, err := s.Create(ctx, ProductParams{Name: "Hoodie", Price: 4999, Sizes: []string{"M"}, TotalStock: 2})
	require.NoError(t, err)

	// when
	_, staleErr := s.Update(ctx, created.ID, created.Version+1, ProductParams{Name: "x", Sizes: []string{"M"}})
	updated, err := s.Update(ctx, created.ID, created.Version, ProductParams{Name: "Hoodie v2", Price: 5999, Sizes: []string{"M", "L"}, TotalStock: 5})

	// then
	assert.ErrorIs(t, staleErr, perrors.ErrOptimisticLock)
	require.NoError(t, err)
	assert.Equal(t, "Hoodie v2", updated.Name)
	assert.Equal(t, map[string]int32{"M": 3, "L": 2}, updated.SizeInventory)
	assert.Equal(t, created.Version+1, updated.Version)

	assert.ErrorIs(t, s.DeleteByID(ctx, created.ID, created.Version), perrors.ErrOptimisticLock)
	require.NoError(t, s.DeleteByID(ctx, created.ID, updated.Version))
	_, err = s.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, perrors.ErrProductNotFound)
	assert.ErrorIs(t, s.DeleteByID(ctx, created.ID, updated.Version), perrors.ErrProductNotFound)
}

func Test_MemStore_FindAll(t *testing.T) {
	// given
	s := NewMemStore()
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		_, err := s.Create(ctx, ProductParams{Name: name})
		require.NoError(t, err)
	}

	testCases := []struct {
		name     string
		offset   int32
		limit    int32
		expected int
	}{
		{name: "all", offset: 0, limit: 10, expected: 3},
		{name: "page", offset: 1, limit: 1, expected: 1},
		{name: "past the end", offset: 5, limit: 10, expected: 0},
		{name: "zero limit", offset: 0, limit: 0, expected: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			list, err := s.FindAll(ctx, tc.offset, tc.limit)
			require.NoError(t, err)
			assert.Len(t, list, tc.expected)
		})
	}
}

func Test_MemStore_CanceledContextIsTransient(t *testing.T) {
	// given
	s := NewMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// when
	_, err := s.FindByID(ctx, uuid.New())

	// then
	assert.ErrorIs(t, err, perrors.ErrTransientStore)
}
