// Package inventory holds the product stock model and the stock resolution rules shared by every
// cart, order and catalog code path.
package inventory

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Product is the authoritative product record as far as stock is concerned.
// SizeInventory is nil when the record has no explicit per-size breakdown.
type Product struct {
	ID            uuid.UUID
	Name          string
	Price         int64 // Price in cents
	Sizes         []string
	SizeInventory map[string]int32
	TotalStock    int32
	Version       int32
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
}

// HasSize reports whether size is one of the product's declared sizes.
func (p *Product) HasSize(size string) bool {
	return slices.Contains(p.Sizes, size)
}

// FullyTracked reports whether SizeInventory has an entry for every declared size.
func (p *Product) FullyTracked() bool {
	if len(p.Sizes) == 0 || p.SizeInventory == nil {
		return false
	}
	for _, s := range p.Sizes {
		if _, ok := p.SizeInventory[s]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers can mutate maps and slices safely.
func (p *Product) Clone() *Product {
	c := *p
	c.Sizes = slices.Clone(p.Sizes)
	if p.SizeInventory != nil {
		c.SizeInventory = make(map[string]int32, len(p.SizeInventory))
		for k, v := range p.SizeInventory {
			c.SizeInventory[k] = v
		}
	}
	return &c
}
