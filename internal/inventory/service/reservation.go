// Package service implements the stock reservation protocol and the product catalog on top of the
// inventory cache and the product store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/inventory"
	"github.com/abgdnv/storefront/internal/inventory/cache"
	"github.com/abgdnv/storefront/internal/inventory/store"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

// DefaultQueryTimeout bounds every product store call made by the reservation protocol.
const DefaultQueryTimeout = 3 * time.Second

const lockStripes = 64

// Line is one product+size quantity of an order or cart.
type Line struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size"       validate:"required,max=32"`
	Quantity  int32     `json:"quantity"   validate:"required,min=1"`
}

// Reserver is the reservation protocol used by carts and orders.
type Reserver interface {
	// Availability returns the effective available stock without mutating anything.
	// Returns ErrProductNotFound or ErrInvalidSize.
	Availability(ctx context.Context, id uuid.UUID, size string) (int32, error)

	// Reserve takes quantity units of product+size and returns the remaining stock.
	// Returns ErrProductNotFound, ErrInvalidSize or *InsufficientStockError.
	Reserve(ctx context.Context, id uuid.UUID, size string, quantity int32) (int32, error)

	// Release gives quantity units back and returns the resulting stock.
	Release(ctx context.Context, id uuid.UUID, size string, quantity int32) (int32, error)

	// Adjust reserves a positive delta and releases a negative one.
	Adjust(ctx context.Context, id uuid.UUID, size string, delta int32) (int32, error)

	// ReserveAll reserves every line or none: on failure the lines already reserved are released.
	ReserveAll(ctx context.Context, lines []Line) error

	// ReleaseAll releases every line, continuing past failures.
	ReleaseAll(ctx context.Context, lines []Line) error
}

// Reservations implements Reserver. The store's conditional AdjustSizeStock is the only place
// stock is decremented, so the cache can be stale without causing oversell.
// Within one instance, a store write and the cache update that follows it run under a per-product
// lock, as do cold loads, so the cache of this instance never moves backwards.
type Reservations struct {
	settings
	store store.ProductStore
	cache *cache.Cache

	loads    singleflight.Group
	locks    [lockStripes]sync.Mutex
	outcomes metric.Int64Counter
}

type settings struct {
	publisher    messaging.Publisher
	logger       *slog.Logger
	queryTimeout time.Duration
	source       string
}

func newSettings(opts []Option) settings {
	s := settings{
		publisher:    messaging.NopPublisher{},
		logger:       slog.Default(),
		queryTimeout: DefaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures Reservations and Catalog.
type Option func(*settings)

// WithPublisher sets the publisher for stock-changed events.
func WithPublisher(p messaging.Publisher) Option {
	return func(s *settings) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithQueryTimeout bounds every store call.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// WithSource names this instance in published events.
func WithSource(source string) Option {
	return func(s *settings) { s.source = source }
}

// NewReservations creates the reservation protocol over a product store and a cache.
func NewReservations(st store.ProductStore, c *cache.Cache, opts ...Option) *Reservations {
	r := &Reservations{
		settings: newSettings(opts),
		store:    st,
		cache:    c,
	}
	r.logger = r.logger.With("component", "reservations")

	outcomes, err := otel.Meter("inventory-reservations").Int64Counter("inventory_reservations_total",
		metric.WithDescription("Reservation protocol calls by operation and outcome"))
	if err != nil {
		panic(fmt.Sprintf("failed to create inventory_reservations_total counter: %v", err))
	}
	r.outcomes = outcomes
	return r
}

// Availability resolves the effective stock of product+size, from the cache when possible.
func (r *Reservations) Availability(ctx context.Context, id uuid.UUID, size string) (int32, error) {
	if stock, ok := r.cache.Get(id, size); ok {
		return stock, nil
	}
	if stock, ok, err := r.fromSnapshot(id, size); ok || err != nil {
		return stock, err
	}

	p, err := r.load(ctx, id)
	if err != nil {
		return 0, err
	}
	if !p.HasSize(size) {
		return 0, perrors.ErrInvalidSize
	}
	return inventory.ResolveAvailableStock(p, size), nil
}

// fromSnapshot answers from the product snapshot and fills the size entry it lacked.
func (r *Reservations) fromSnapshot(id uuid.UUID, size string) (int32, bool, error) {
	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	snap, ok := r.cache.GetProduct(id)
	if !ok {
		return 0, false, nil
	}
	p := snap.Product(id)
	if !p.HasSize(size) {
		return 0, false, perrors.ErrInvalidSize
	}
	stock := inventory.ResolveAvailableStock(p, size)
	r.cache.Set(id, size, stock)
	return stock, true, nil
}

// load reads the product from the store and warms both cache shapes. Concurrent cold loads of the
// same product share one store read.
func (r *Reservations) load(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	v, err, _ := r.loads.Do(id.String(), func() (any, error) {
		mu := r.lockFor(id)
		mu.Lock()
		defer mu.Unlock()

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.queryTimeout)
		defer cancel()
		p, err := r.store.FindByID(loadCtx, id)
		if err != nil {
			return nil, err
		}
		r.warm(p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*inventory.Product), nil
}

// warm writes the product snapshot and one size entry per declared size.
func (r *Reservations) warm(p *inventory.Product) {
	r.cache.SetProduct(p.ID, cache.SnapshotOf(p))
	for size, stock := range inventory.ResolveAll(p) {
		r.cache.Set(p.ID, size, stock)
	}
}

// Forget drops the product from the cache once no write of this instance is mid-way through
// updating it. Callers that change a product outside the protocol use it instead of the cache directly.
func (r *Reservations) Forget(id uuid.UUID) {
	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()
	r.cache.InvalidateProduct(id)
}

// Reserve validates the request against the effective stock and then decrements the store atomically.
func (r *Reservations) Reserve(ctx context.Context, id uuid.UUID, size string, quantity int32) (int32, error) {
	remaining, err := r.reserve(ctx, id, size, quantity)
	r.record(ctx, "reserve", err)
	return remaining, err
}

func (r *Reservations) reserve(ctx context.Context, id uuid.UUID, size string, quantity int32) (int32, error) {
	if quantity <= 0 {
		return 0, perrors.ErrInvalidQuantity
	}
	available, err := r.Availability(ctx, id, size)
	if err != nil {
		return 0, err
	}
	if available == 0 || quantity > available {
		return 0, &perrors.InsufficientStockError{ProductID: id, Size: size, Requested: quantity, Available: available}
	}

	updated, err := r.write(ctx, id, size, -quantity)
	if err != nil {
		if errors.Is(err, perrors.ErrInsufficientStock) {
			// Another request won the race for the last units; report what is left now.
			fresh, freshErr := r.Availability(ctx, id, size)
			if freshErr != nil {
				return 0, freshErr
			}
			return 0, &perrors.InsufficientStockError{ProductID: id, Size: size, Requested: quantity, Available: fresh}
		}
		return 0, err
	}
	r.logger.DebugContext(ctx, "stock reserved", "product_id", id, "size", size, "quantity", quantity,
		"remaining", updated.SizeInventory[size])
	return updated.SizeInventory[size], nil
}

// Release increments the store and then the cache.
func (r *Reservations) Release(ctx context.Context, id uuid.UUID, size string, quantity int32) (int32, error) {
	if quantity <= 0 {
		r.record(ctx, "release", perrors.ErrInvalidQuantity)
		return 0, perrors.ErrInvalidQuantity
	}
	updated, err := r.write(ctx, id, size, quantity)
	r.record(ctx, "release", err)
	if err != nil {
		return 0, err
	}
	r.logger.DebugContext(ctx, "stock released", "product_id", id, "size", size, "quantity", quantity,
		"available", updated.SizeInventory[size])
	return updated.SizeInventory[size], nil
}

// Adjust applies a signed quantity change.
func (r *Reservations) Adjust(ctx context.Context, id uuid.UUID, size string, delta int32) (int32, error) {
	switch {
	case delta > 0:
		return r.Reserve(ctx, id, size, delta)
	case delta < 0:
		return r.Release(ctx, id, size, -delta)
	default:
		return r.Availability(ctx, id, size)
	}
}

// ReserveAll reserves the lines in order. If line k fails, lines 0..k-1 are released in reverse
// order on a context that outlives the caller's cancellation, and line k's error is returned.
func (r *Reservations) ReserveAll(ctx context.Context, lines []Line) error {
	for i, line := range lines {
		if _, err := r.Reserve(ctx, line.ProductID, line.Size, line.Quantity); err != nil {
			r.rollback(ctx, lines[:i])
			return fmt.Errorf("line %d (product %s, size %q): %w", i+1, line.ProductID, line.Size, err)
		}
	}
	return nil
}

func (r *Reservations) rollback(ctx context.Context, reserved []Line) {
	if len(reserved) == 0 {
		return
	}
	rbCtx := context.WithoutCancel(ctx)
	for i := len(reserved) - 1; i >= 0; i-- {
		line := reserved[i]
		if _, err := r.Release(rbCtx, line.ProductID, line.Size, line.Quantity); err != nil {
			r.logger.ErrorContext(ctx, "failed to roll back reservation",
				"product_id", line.ProductID, "size", line.Size, "quantity", line.Quantity, "error", err)
		}
	}
}

// ReleaseAll releases every line and joins the failures.
func (r *Reservations) ReleaseAll(ctx context.Context, lines []Line) error {
	var errs []error
	for _, line := range lines {
		if _, err := r.Release(ctx, line.ProductID, line.Size, line.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("product %s, size %q: %w", line.ProductID, line.Size, err))
		}
	}
	return errors.Join(errs...)
}

// write performs the atomic store update, seeding the per-size breakdown first when the record
// predates it, and then brings the cache in line with the returned record.
func (r *Reservations) write(ctx context.Context, id uuid.UUID, size string, delta int32) (*inventory.Product, error) {
	updated, err := r.writeLocked(ctx, id, size, delta)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, updated, size, delta)
	return updated, nil
}

func (r *Reservations) writeLocked(ctx context.Context, id uuid.UUID, size string, delta int32) (*inventory.Product, error) {
	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	updated, err := r.adjustStore(ctx, id, size, delta)
	if errors.Is(err, perrors.ErrSizeNotTracked) {
		if err := r.seed(ctx, id); err != nil {
			return nil, err
		}
		updated, err = r.adjustStore(ctx, id, size, delta)
	}
	if err != nil {
		if !errors.Is(err, perrors.ErrTransientStore) {
			r.cache.InvalidateProduct(id)
		}
		return nil, err
	}

	r.syncCache(ctx, updated, size, delta)
	return updated, nil
}

func (r *Reservations) lockFor(id uuid.UUID) *sync.Mutex {
	return &r.locks[int(id[15])%lockStripes]
}

func (r *Reservations) adjustStore(ctx context.Context, id uuid.UUID, size string, delta int32) (*inventory.Product, error) {
	qCtx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()
	return r.store.AdjustSizeStock(qCtx, id, size, delta)
}

// seed materializes the read-time per-size values into the record so it can be adjusted per size.
// Losing the version race is fine: the retried adjustment reports the outcome.
func (r *Reservations) seed(ctx context.Context, id uuid.UUID) error {
	qCtx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	p, err := r.store.FindByID(qCtx, id)
	if err != nil {
		return err
	}
	if p.FullyTracked() {
		return nil
	}
	_, err = r.store.SeedSizeInventory(qCtx, id, p.Version, inventory.Materialize(p))
	if err != nil && !errors.Is(err, perrors.ErrOptimisticLock) {
		return err
	}
	r.logger.InfoContext(ctx, "seeded size inventory", "product_id", id, "sizes", p.Sizes)
	r.cache.InvalidateProduct(id)
	return nil
}

// syncCache mirrors a successful store write into the cache. An adjusted value that disagrees with
// the authoritative one means the cache was stale: both shapes are discarded.
func (r *Reservations) syncCache(ctx context.Context, updated *inventory.Product, size string, delta int32) {
	authoritative := updated.SizeInventory[size]
	cached, ok := r.cache.Adjust(updated.ID, size, delta)
	if !ok {
		r.warm(updated)
		return
	}
	if cached != authoritative {
		r.logger.WarnContext(ctx, "cache disagrees with store after write, discarding",
			"product_id", updated.ID, "size", size, "cached", cached, "stored", authoritative,
			"error", perrors.ErrCacheInconsistency)
		r.cache.InvalidateProduct(updated.ID)
		return
	}
	if snap, ok := r.cache.GetProduct(updated.ID); ok && snap.TotalStock != updated.TotalStock {
		r.cache.SetProduct(updated.ID, cache.SnapshotOf(updated))
	}
}

func (r *Reservations) publish(ctx context.Context, updated *inventory.Product, size string, delta int32) {
	event := events.StockChangedEvent{
		ProductID:  updated.ID,
		Size:       size,
		Delta:      delta,
		Available:  updated.SizeInventory[size],
		TotalStock: updated.TotalStock,
		Version:    updated.Version,
		Source:     r.source,
		OccurredAt: time.Now().UTC(),
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "failed to publish stock changed event", "product_id", updated.ID, "error", err)
	}
}

func (r *Reservations) record(ctx context.Context, op string, err error) {
	r.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome(err)),
	))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, perrors.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, perrors.ErrStockOverflow):
		return "overflow"
	case errors.Is(err, perrors.ErrInvalidSize), errors.Is(err, perrors.ErrInvalidQuantity):
		return "invalid"
	case errors.Is(err, perrors.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, perrors.ErrTransientStore):
		return "transient"
	default:
		return "error"
	}
}
