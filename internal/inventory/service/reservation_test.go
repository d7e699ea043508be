package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/inventory"
	"github.com/abgdnv/storefront/internal/inventory/cache"
	"github.com/abgdnv/storefront/internal/inventory/store"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event messaging.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// failingStore fails every call after the embedded store would have answered.
type failingStore struct {
	*store.MemStore
	adjustErr error
	findErr   error
}

func (f *failingStore) AdjustSizeStock(ctx context.Context, id uuid.UUID, size string, delta int32) (*inventory.Product, error) {
	if f.adjustErr != nil {
		return nil, f.adjustErr
	}
	return f.MemStore.AdjustSizeStock(ctx, id, size, delta)
}

func (f *failingStore) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.MemStore.FindByID(ctx, id)
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c := cache.New(cache.WithSweepInterval(0), cache.WithTTL(time.Minute))
	t.Cleanup(c.Close)
	return c
}

// fixture stores P1 with sizes S and M, S:3 and M:0.
func fixture(t *testing.T) (*store.MemStore, *cache.Cache, *Reservations, uuid.UUID) {
	t.Helper()
	st := store.NewMemStore()
	id := uuid.New()
	st.Put(inventory.Product{
		ID:            id,
		Name:          "P1",
		Sizes:         []string{"S", "M"},
		SizeInventory: map[string]int32{"S": 3, "M": 0},
		TotalStock:    3,
	})
	c := newTestCache(t)
	return st, c, NewReservations(st, c), id
}

func storedStock(t *testing.T, st store.ProductStore, id uuid.UUID, size string) int32 {
	t.Helper()
	p, err := st.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.SizeInventory[size]
}

func Test_Reservations_Reserve(t *testing.T) {
	testCases := []struct {
		name              string
		size              string
		quantity          int32
		unknownProduct    bool
		expected          int32
		expectError       error
		expectedAvailable int32
	}{
		{name: "reserves and returns remaining", size: "S", quantity: 2, expected: 1},
		{name: "reserves everything", size: "S", quantity: 3, expected: 0},
		{name: "zero stock", size: "M", quantity: 1, expectError: perrors.ErrInsufficientStock, expectedAvailable: 0},
		{name: "more than available", size: "S", quantity: 4, expectError: perrors.ErrInsufficientStock, expectedAvailable: 3},
		{name: "undeclared size", size: "XL", quantity: 1, expectError: perrors.ErrInvalidSize},
		{name: "unknown product", size: "S", quantity: 1, unknownProduct: true, expectError: perrors.ErrProductNotFound},
		{name: "zero quantity", size: "S", quantity: 0, expectError: perrors.ErrInvalidQuantity},
		{name: "negative quantity", size: "S", quantity: -1, expectError: perrors.ErrInvalidQuantity},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			st, _, r, id := fixture(t)
			if tc.unknownProduct {
				id = uuid.New()
			}
			// when
			remaining, err := r.Reserve(context.Background(), id, tc.size, tc.quantity)
			// then
			if tc.expectError != nil {
				require.ErrorIs(t, err, tc.expectError)
				var stockErr *perrors.InsufficientStockError
				if errors.As(err, &stockErr) {
					assert.Equal(t, tc.expectedAvailable, stockErr.Available)
					assert.Equal(t, tc.quantity, stockErr.Requested)
				}
				if !tc.unknownProduct {
					assert.Equal(t, int32(3), storedStock(t, st, id, "S"), "failed reservation must not mutate")
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, remaining)
			assert.Equal(t, tc.expected, storedStock(t, st, id, tc.size))
		})
	}
}

func Test_Reservations_ConcreteExample(t *testing.T) {
	// given
	st, _, r, id := fixture(t)
	ctx := context.Background()

	// when
	remaining, err := r.Reserve(ctx, id, "S", 2)

	// then
	require.NoError(t, err)
	assert.Equal(t, int32(1), remaining)
	p, err := st.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int32(1), inventory.ResolveAvailableStock(p, "S"))

	_, err = r.Reserve(ctx, id, "M", 1)
	var stockErr *perrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int32(0), stockErr.Available)
}

func Test_Reservations_ConcurrentReserveNeverOversells(t *testing.T) {
	// given
	st := store.NewMemStore()
	id := uuid.New()
	st.Put(inventory.Product{ID: id, Sizes: []string{"M"}, SizeInventory: map[string]int32{"M": 10}, TotalStock: 10})
	r := NewReservations(st, newTestCache(t))

	// when
	var wg sync.WaitGroup
	var reserved atomic.Int32
	for i := range 40 {
		wg.Add(1)
		go func(qty int32) {
			defer wg.Done()
			if _, err := r.Reserve(context.Background(), id, "M", qty); err == nil {
				reserved.Add(qty)
			} else {
				assert.ErrorIs(t, err, perrors.ErrInsufficientStock)
			}
		}(int32(i%3 + 1))
	}
	wg.Wait()

	// then
	final := storedStock(t, st, id, "M")
	assert.GreaterOrEqual(t, final, int32(0))
	assert.Equal(t, int32(10), reserved.Load()+final)
	available, err := r.Availability(context.Background(), id, "M")
	require.NoError(t, err)
	assert.Equal(t, final, available)
}

func Test_Reservations_ReserveReleaseRoundTrip(t *testing.T) {
	for _, qty := range []int32{1, 2, 3} {
		// given
		st, c, r, id := fixture(t)
		ctx := context.Background()
		before, err := r.Availability(ctx, id, "S")
		require.NoError(t, err)

		// when
		_, err = r.Reserve(ctx, id, "S", qty)
		require.NoError(t, err)
		restored, err := r.Release(ctx, id, "S", qty)
		require.NoError(t, err)

		// then
		assert.Equal(t, before, restored)
		assert.Equal(t, before, storedStock(t, st, id, "S"))
		cached, ok := c.Get(id, "S")
		require.True(t, ok)
		assert.Equal(t, before, cached)
	}
}

func Test_Reservations_CacheAgreesWithStore(t *testing.T) {
	// given
	st, c, r, id := fixture(t)
	ctx := context.Background()
	ops := []struct {
		release bool
		qty     int32
	}{{false, 1}, {true, 4}, {false, 2}, {true, 1}, {false, 5}}

	for _, op := range ops {
		// when
		var err error
		if op.release {
			_, err = r.Release(ctx, id, "S", op.qty)
		} else {
			_, err = r.Reserve(ctx, id, "S", op.qty)
		}
		require.NoError(t, err)

		// then
		p, err := st.FindByID(ctx, id)
		require.NoError(t, err)
		cached, ok := c.Get(id, "S")
		require.True(t, ok)
		assert.Equal(t, p.SizeInventory["S"], cached)
		snap, ok := c.GetProduct(id)
		require.True(t, ok)
		assert.Equal(t, p.SizeInventory["S"], snap.SizeInventory["S"])
		assert.Equal(t, p.TotalStock, snap.TotalStock)
		assert.Equal(t, inventory.Sum(p.SizeInventory), p.TotalStock)
	}
}

func Test_Reservations_StaleCacheCannotOversell(t *testing.T) {
	// given
	st, c, r, id := fixture(t)
	c.Set(id, "S", 10)

	// when
	_, err := r.Reserve(context.Background(), id, "S", 5)

	// then
	var stockErr *perrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int32(3), stockErr.Available)
	assert.Equal(t, int32(3), storedStock(t, st, id, "S"))
	cached, ok := c.Get(id, "S")
	require.True(t, ok)
	assert.Equal(t, int32(3), cached)
}

func Test_Reservations_StaleCacheDiscardedAfterRelease(t *testing.T) {
	// given
	st, c, r, id := fixture(t)
	c.Set(id, "S", 7)

	// when
	restored, err := r.Release(context.Background(), id, "S", 1)

	// then
	require.NoError(t, err)
	assert.Equal(t, int32(4), restored)
	assert.Equal(t, int32(4), storedStock(t, st, id, "S"))
	_, ok := c.Get(id, "S")
	assert.False(t, ok)
}

func Test_Reservations_ReserveAll_RollsBackEarlierLines(t *testing.T) {
	// given
	st := store.NewMemStore()
	a, b := uuid.New(), uuid.New()
	st.Put(inventory.Product{ID: a, Sizes: []string{"M"}, SizeInventory: map[string]int32{"M": 6}, TotalStock: 6})
	st.Put(inventory.Product{ID: b, Sizes: []string{"L"}, SizeInventory: map[string]int32{"L": 5}, TotalStock: 5})
	c := newTestCache(t)
	r := NewReservations(st, c)
	lines := []Line{
		{ProductID: a, Size: "M", Quantity: 2},
		{ProductID: b, Size: "L", Quantity: 100},
	}

	// when
	err := r.ReserveAll(context.Background(), lines)

	// then
	var stockErr *perrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int32(5), stockErr.Available)
	assert.Equal(t, b, stockErr.ProductID)
	assert.Equal(t, int32(6), storedStock(t, st, a, "M"))
	assert.Equal(t, int32(5), storedStock(t, st, b, "L"))
	cached, ok := c.Get(a, "M")
	require.True(t, ok)
	assert.Equal(t, int32(6), cached)
}

func Test_Reservations_ReserveAll_Success(t *testing.T) {
	// given
	st, _, r, id := fixture(t)
	lines := []Line{{ProductID: id, Size: "S", Quantity: 1}, {ProductID: id, Size: "S", Quantity: 2}}

	// when
	err := r.ReserveAll(context.Background(), lines)

	// then
	require.NoError(t, err)
	assert.Equal(t, int32(0), storedStock(t, st, id, "S"))
	require.NoError(t, r.ReleaseAll(context.Background(), lines))
	assert.Equal(t, int32(3), storedStock(t, st, id, "S"))
}

func Test_Reservations_ReleaseAll_ContinuesPastFailures(t *testing.T) {
	// given
	st, _, r, id := fixture(t)
	missing := uuid.New()
	lines := []Line{
		{ProductID: missing, Size: "S", Quantity: 1},
		{ProductID: id, Size: "M", Quantity: 2},
	}

	// when
	err := r.ReleaseAll(context.Background(), lines)

	// then
	require.ErrorIs(t, err, perrors.ErrProductNotFound)
	assert.Equal(t, int32(2), storedStock(t, st, id, "M"))
}

func Test_Reservations_Adjust(t *testing.T) {
	testCases := []struct {
		name     string
		delta    int32
		expected int32
	}{
		{name: "positive reserves", delta: 2, expected: 1},
		{name: "negative releases", delta: -2, expected: 5},
		{name: "zero reads", delta: 0, expected: 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			st, _, r, id := fixture(t)
			// when
			got, err := r.Adjust(context.Background(), id, "S", tc.delta)
			// then
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.expected, storedStock(t, st, id, "S"))
		})
	}
}

func Test_Reservations_SeedsLegacyRecord(t *testing.T) {
	// given
	st := store.NewMemStore()
	id := uuid.New()
	st.Put(inventory.Product{ID: id, Sizes: []string{"S", "M", "L"}, TotalStock: 10})
	c := newTestCache(t)
	r := NewReservations(st, c)
	ctx := context.Background()

	available, err := r.Availability(ctx, id, "M")
	require.NoError(t, err)
	require.Equal(t, int32(3), available)

	// when
	remaining, err := r.Reserve(ctx, id, "M", 2)

	// then
	require.NoError(t, err)
	assert.Equal(t, int32(1), remaining)
	p, err := st.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{"S": 3, "M": 1, "L": 3}, p.SizeInventory)
	assert.Equal(t, int32(7), p.TotalStock)
	cached, ok := c.Get(id, "M")
	require.True(t, ok)
	assert.Equal(t, int32(1), cached)
}

func Test_Reservations_TransientStoreFailure(t *testing.T) {
	// given
	mem := store.NewMemStore()
	id := uuid.New()
	mem.Put(inventory.Product{ID: id, Sizes: []string{"S"}, SizeInventory: map[string]int32{"S": 3}, TotalStock: 3})
	fs := &failingStore{MemStore: mem, adjustErr: perrors.Transient(context.DeadlineExceeded)}
	r := NewReservations(fs, newTestCache(t))

	// when
	_, err := r.Reserve(context.Background(), id, "S", 1)

	// then
	require.ErrorIs(t, err, perrors.ErrTransientStore)
	assert.NotErrorIs(t, err, perrors.ErrInsufficientStock)
	assert.Equal(t, int32(3), storedStock(t, mem, id, "S"))
}

func Test_Reservations_ColdLoadFailure(t *testing.T) {
	// given
	mem := store.NewMemStore()
	fs := &failingStore{MemStore: mem, findErr: perrors.Transient(errors.New("connection refused"))}
	c := newTestCache(t)
	r := NewReservations(fs, c)
	id := uuid.New()

	// when
	_, err := r.Availability(context.Background(), id, "S")

	// then
	require.ErrorIs(t, err, perrors.ErrTransientStore)
	_, ok := c.GetProduct(id)
	assert.False(t, ok)
}

func Test_Reservations_AvailabilityFromSnapshot(t *testing.T) {
	// given
	mem := store.NewMemStore()
	fs := &failingStore{MemStore: mem, findErr: errors.New("store must not be called")}
	c := newTestCache(t)
	id := uuid.New()
	c.SetProduct(id, cache.SnapshotOf(&inventory.Product{
		ID: id, Sizes: []string{"S", "M"}, SizeInventory: map[string]int32{"S": 2, "M": 4}, TotalStock: 6,
	}))
	r := NewReservations(fs, c)

	// when
	available, err := r.Availability(context.Background(), id, "M")
	_, sizeErr := r.Availability(context.Background(), id, "XL")

	// then
	require.NoError(t, err)
	assert.Equal(t, int32(4), available)
	assert.ErrorIs(t, sizeErr, perrors.ErrInvalidSize)
}

func Test_Reservations_AvailabilityRejectsUndeclaredSizeWarmOrCold(t *testing.T) {
	// given
	st := store.NewMemStore()
	id := uuid.New()
	st.Put(inventory.Product{
		ID: id, Name: "P1", Sizes: []string{"S"}, SizeInventory: map[string]int32{"S": 3, "XL": 2}, TotalStock: 3,
	})
	r := NewReservations(st, newTestCache(t))
	ctx := context.Background()

	// when
	_, coldErr := r.Availability(ctx, id, "XL")
	stock, err := r.Availability(ctx, id, "S")
	_, warmErr := r.Availability(ctx, id, "XL")

	// then
	require.NoError(t, err)
	assert.Equal(t, int32(3), stock)
	assert.ErrorIs(t, coldErr, perrors.ErrInvalidSize)
	assert.ErrorIs(t, warmErr, perrors.ErrInvalidSize)
}

func Test_Reservations_ReleaseNearLargestCount(t *testing.T) {
	// given
	st := store.NewMemStore()
	id := uuid.New()
	st.Put(inventory.Product{
		ID: id, Name: "P1", Sizes: []string{"S"}, SizeInventory: map[string]int32{"S": math.MaxInt32 - 1},
		TotalStock: math.MaxInt32 - 1,
	})
	r := NewReservations(st, newTestCache(t))

	// when
	_, err := r.Release(context.Background(), id, "S", 5)
	available, okErr := r.Release(context.Background(), id, "S", 1)

	// then
	assert.ErrorIs(t, err, perrors.ErrStockOverflow)
	assert.NotErrorIs(t, err, perrors.ErrInsufficientStock)
	require.NoError(t, okErr)
	assert.Equal(t, int32(math.MaxInt32), available)
}

func Test_Reservations_PublishesStockChanged(t *testing.T) {
	// given
	st, _, _, id := fixture(t)
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.StockChangedEvent) bool {
		return e.ProductID == id && e.Size == "S" && e.Delta == -2 && e.Available == 1 && e.TotalStock == 1 && e.Source == "node-1"
	})).Return(errors.New("nats down")).Once()
	r := NewReservations(st, newTestCache(t), WithPublisher(publisher), WithSource("node-1"))

	// when
	remaining, err := r.Reserve(context.Background(), id, "S", 2)

	// then
	require.NoError(t, err, "publish failures are best effort")
	assert.Equal(t, int32(1), remaining)
	publisher.AssertExpectations(t)
}

func Test_Reservations_NoPublishOnRejection(t *testing.T) {
	// given
	st, _, _, id := fixture(t)
	publisher := new(MockPublisher)
	r := NewReservations(st, newTestCache(t), WithPublisher(publisher))

	// when
	_, err := r.Reserve(context.Background(), id, "M", 1)

	// then
	require.Error(t, err)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
