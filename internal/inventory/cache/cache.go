// Package cache implements the in-process inventory cache that shadows per-size stock counts and
// whole-product inventory snapshots.
//
// Size-scoped entries are keyed "<productID>:<size>", product-scoped entries by "<productID>".
// All operations are serialized by a single mutex per Cache.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abgdnv/storefront/internal/inventory"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Snapshot mirrors the stock fields of a product record at the time it was cached.
type Snapshot struct {
	TotalStock    int32
	Sizes         []string
	SizeInventory map[string]int32
}

// SnapshotOf copies the stock fields of p.
func SnapshotOf(p *inventory.Product) Snapshot {
	s := Snapshot{TotalStock: p.TotalStock, Sizes: slices.Clone(p.Sizes)}
	if p.SizeInventory != nil {
		s.SizeInventory = maps.Clone(p.SizeInventory)
	}
	return s
}

// Product returns the snapshot as a product record so it can be fed to stock resolution.
func (s Snapshot) Product(id uuid.UUID) *inventory.Product {
	return &inventory.Product{ID: id, TotalStock: s.TotalStock, Sizes: s.Sizes, SizeInventory: s.SizeInventory}
}

func (s Snapshot) clone() Snapshot {
	c := Snapshot{TotalStock: s.TotalStock, Sizes: slices.Clone(s.Sizes)}
	if s.SizeInventory != nil {
		c.SizeInventory = maps.Clone(s.SizeInventory)
	}
	return c
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits            int64 `json:"hits"`
	Misses          int64 `json:"misses"`
	Evictions       int64 `json:"evictions"`
	Inconsistencies int64 `json:"inconsistencies"`
	Entries         int   `json:"entries"`
}

type entry struct {
	stock     int32
	snapshot  *Snapshot
	expiresAt time.Time
}

// Cache is a TTL key-value store for inventory counts. The zero value is not usable; use New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger

	hits, misses, evictions, inconsistencies atomic.Int64

	hitsCounter      metric.Int64Counter
	missesCounter    metric.Int64Counter
	evictionsCounter metric.Int64Counter

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the default time-to-live of new entries.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithSweepInterval sets how often the janitor removes expired entries. Zero disables the janitor.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Cache) { c.sweepInterval = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used to report inconsistencies.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New creates a cache and starts its janitor. Callers must Close it.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:       make(map[string]*entry),
		ttl:           DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		logger:        slog.Default(),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	meter := otel.Meter("inventory-cache")
	c.hitsCounter = mustCounter(meter, "inventory_cache_hits_total", "Inventory cache lookups served from memory")
	c.missesCounter = mustCounter(meter, "inventory_cache_misses_total", "Inventory cache lookups that fell through to the store")
	c.evictionsCounter = mustCounter(meter, "inventory_cache_evictions_total", "Inventory cache entries evicted on expiry")

	if c.sweepInterval > 0 {
		go c.janitor()
	} else {
		close(c.done)
	}
	return c
}

func mustCounter(meter metric.Meter, name, desc string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		panic(fmt.Sprintf("failed to create %s counter: %v", name, err))
	}
	return counter
}

// Close stops the janitor and drops every entry. It is safe to call more than once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		<-c.done
		c.mu.Lock()
		clear(c.entries)
		c.mu.Unlock()
	})
}

func productKey(id uuid.UUID) string {
	return id.String()
}

func sizeKey(id uuid.UUID, size string) string {
	return id.String() + ":" + size
}

// lookup returns a live entry, evicting it when expired. Caller holds c.mu.
func (c *Cache) lookup(key string) *entry {
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.recordEviction(1)
		return nil
	}
	return e
}

// Get returns the cached effective stock for product+size.
// A size-scoped entry wins; otherwise the nested value of the product snapshot is returned and
// copied into a size-scoped entry. The snapshot only answers for sizes it declares, so stray keys of
// the per-size map never surface as stock. Entries that disagree with each other are both discarded.
func (c *Cache) Get(id uuid.UUID, size string) (int32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	se := c.lookup(sizeKey(id, size))
	pe := c.lookup(productKey(id))

	var nested int32
	var hasNested bool
	if pe != nil && slices.Contains(pe.snapshot.Sizes, size) {
		nested, hasNested = pe.snapshot.SizeInventory[size]
		nested = max(nested, 0)
	}

	switch {
	case se != nil && hasNested && se.stock != nested:
		c.dropProductLocked(id)
		c.inconsistencies.Add(1)
		c.logger.Warn("inventory cache entries disagree, discarding",
			slog.String("product_id", id.String()),
			slog.String("size", size),
			slog.Int("size_entry", int(se.stock)),
			slog.Int("snapshot_entry", int(nested)))
		c.recordMiss()
		return 0, false
	case se != nil:
		c.recordHit()
		return se.stock, true
	case hasNested:
		c.entries[sizeKey(id, size)] = &entry{stock: nested, expiresAt: pe.expiresAt}
		c.recordHit()
		return nested, true
	default:
		c.recordMiss()
		return 0, false
	}
}

// GetProduct returns a copy of the product-scoped snapshot.
func (c *Cache) GetProduct(id uuid.UUID) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pe := c.lookup(productKey(id))
	if pe == nil {
		c.recordMiss()
		return Snapshot{}, false
	}
	c.recordHit()
	return pe.snapshot.clone(), true
}

// SetOption overrides per-entry settings.
type SetOption func(*time.Duration)

// TTL overrides the default time-to-live for one entry.
func TTL(ttl time.Duration) SetOption {
	return func(d *time.Duration) {
		if ttl > 0 {
			*d = ttl
		}
	}
}

func (c *Cache) expiry(opts []SetOption) time.Time {
	ttl := c.ttl
	for _, opt := range opts {
		opt(&ttl)
	}
	return c.now().Add(ttl)
}

// Set writes the size-scoped entry. A product snapshot holding a different nested value for the
// size is updated in place to keep both entries in agreement.
func (c *Cache) Set(id uuid.UUID, size string, stock int32, opts ...SetOption) {
	stock = max(stock, 0)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[sizeKey(id, size)] = &entry{stock: stock, expiresAt: c.expiry(opts)}
	if pe := c.lookup(productKey(id)); pe != nil {
		setNested(pe.snapshot, size, stock)
	}
}

// SetProduct writes the product-scoped snapshot. Size-scoped entries of the product that disagree
// with the new snapshot are dropped.
func (c *Cache) SetProduct(id uuid.UUID, snapshot Snapshot, opts ...SetOption) {
	s := snapshot.clone()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[productKey(id)] = &entry{snapshot: &s, expiresAt: c.expiry(opts)}
	prefix := productKey(id) + ":"
	for key, e := range c.entries {
		size, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		if nested, has := s.SizeInventory[size]; has && max(nested, 0) != e.stock {
			delete(c.entries, key)
		}
	}
}

// Invalidate clears the whole cache.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// InvalidateProduct clears the product snapshot and every size-scoped entry of the product.
func (c *Cache) InvalidateProduct(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropProductLocked(id)
}

// InvalidateSize clears one size-scoped entry.
func (c *Cache) InvalidateSize(id uuid.UUID, size string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sizeKey(id, size))
}

func (c *Cache) dropProductLocked(id uuid.UUID) {
	pk := productKey(id)
	prefix := pk + ":"
	for key := range c.entries {
		if key == pk || strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Adjust applies delta to the size-scoped entry, clamping at zero, and mirrors the result into the
// product snapshot. It never creates entries: without a size-scoped entry it returns false.
// A snapshot without a nested value for the size cannot be kept in step and is dropped.
func (c *Cache) Adjust(id uuid.UUID, size string, delta int32) (int32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	se := c.lookup(sizeKey(id, size))
	if se == nil {
		return 0, false
	}
	se.stock = max(0, se.stock+delta)

	if pe := c.lookup(productKey(id)); pe != nil {
		if _, ok := pe.snapshot.SizeInventory[size]; ok {
			setNested(pe.snapshot, size, se.stock)
		} else {
			delete(c.entries, productKey(id))
		}
	}
	return se.stock, true
}

// setNested replaces the nested size value and moves the snapshot total by the same amount.
func setNested(s *Snapshot, size string, stock int32) {
	old, ok := s.SizeInventory[size]
	if !ok {
		return
	}
	s.SizeInventory[size] = stock
	s.TotalStock = max(0, s.TotalStock+stock-max(old, 0))
}

// Stats returns counters since creation and the current number of entries.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	return Stats{
		Hits:            c.hits.Load(),
		Misses:          c.misses.Load(),
		Evictions:       c.evictions.Load(),
		Inconsistencies: c.inconsistencies.Load(),
		Entries:         n,
	}
}

func (c *Cache) janitor() {
	defer close(c.done)
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes every expired entry.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	var n int64
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			n++
		}
	}
	if n > 0 {
		c.recordEviction(n)
	}
}

func (c *Cache) recordHit() {
	c.hits.Add(1)
	c.hitsCounter.Add(context.Background(), 1)
}

func (c *Cache) recordMiss() {
	c.misses.Add(1)
	c.missesCounter.Add(context.Background(), 1)
}

func (c *Cache) recordEviction(n int64) {
	c.evictions.Add(n)
	c.evictionsCounter.Add(context.Background(), n, metric.WithAttributes(attribute.String("reason", "expired")))
}
