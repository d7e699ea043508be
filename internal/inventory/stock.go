package inventory

import (
	"fmt"
	"math"
	"strconv"

	inverrors "github.com/abgdnv/storefront/internal/errors"
)

// ResolveAvailableStock returns the effective available stock of a product for one size.
//
//  1. An explicit SizeInventory entry wins (negative values count as 0).
//  2. Otherwise, a product with stock and declared sizes splits TotalStock evenly,
//     truncating; the remainder is not handed out here.
//  3. Otherwise 0.
//
// It is the only place the read-time fallback is computed.
func ResolveAvailableStock(p *Product, size string) int32 {
	if p == nil {
		return 0
	}
	if v, ok := p.SizeInventory[size]; ok {
		return max(v, 0)
	}
	if p.TotalStock > 0 && len(p.Sizes) > 0 && p.HasSize(size) {
		return p.TotalStock / int32(len(p.Sizes))
	}
	return 0
}

// ResolveAll returns the effective available stock for every declared size.
func ResolveAll(p *Product) map[string]int32 {
	out := make(map[string]int32, len(p.Sizes))
	for _, s := range p.Sizes {
		out[s] = ResolveAvailableStock(p, s)
	}
	return out
}

// Distribute authors a per-size breakdown for admin writes: total is split evenly across sizes and the
// remainder goes to the first sizes in declared order, one unit each.
// Unlike ResolveAvailableStock, the result always sums to total.
func Distribute(total int32, sizes []string) map[string]int32 {
	if len(sizes) == 0 {
		return nil
	}
	total = max(total, 0)
	n := int32(len(sizes))
	base, rem := total/n, total%n
	out := make(map[string]int32, len(sizes))
	for i, s := range sizes {
		v := base
		if int32(i) < rem {
			v++
		}
		out[s] = v
	}
	return out
}

// Materialize returns a fully populated breakdown for the product using the read-time values,
// so that writing it back does not change what customers see for any size.
func Materialize(p *Product) map[string]int32 {
	return ResolveAll(p)
}

// Sum adds up a per-size breakdown.
func Sum(sizeInventory map[string]int32) int32 {
	var total int32
	for _, v := range sizeInventory {
		total += v
	}
	return total
}

// AdjustedStock returns the value sizeInventory[size] takes after adding delta. The arithmetic is done
// in int64: a result below zero is ErrInsufficientStock, and a size or total beyond MaxInt32 is
// ErrStockOverflow.
func AdjustedStock(sizeInventory map[string]int32, size string, delta int32) (int32, error) {
	next := int64(sizeInventory[size]) + int64(delta)
	if next < 0 {
		return 0, inverrors.ErrInsufficientStock
	}
	total := next
	for s, v := range sizeInventory {
		if s != size {
			total += int64(v)
		}
	}
	if next > math.MaxInt32 || total > math.MaxInt32 {
		return 0, inverrors.ErrStockOverflow
	}
	return int32(next), nil
}

// ValidateSizeInventory checks that the breakdown covers exactly the declared sizes with non-negative values.
func ValidateSizeInventory(sizes []string, sizeInventory map[string]int32) error {
	if len(sizeInventory) != len(sizes) {
		return fmt.Errorf("%w: %d sizes declared, %d entries given", inverrors.ErrInvalidInventory, len(sizes), len(sizeInventory))
	}
	seen := make(map[string]struct{}, len(sizes))
	for _, s := range sizes {
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: duplicate size %q", inverrors.ErrInvalidInventory, s)
		}
		seen[s] = struct{}{}
		v, ok := sizeInventory[s]
		if !ok {
			return fmt.Errorf("%w: missing size %q", inverrors.ErrInvalidInventory, s)
		}
		if v < 0 {
			return fmt.Errorf("%w: negative stock for size %q", inverrors.ErrInvalidInventory, s)
		}
	}
	return nil
}

// CoerceStock converts a loosely typed stored value into a non-negative stock count.
// Non-numeric values count as 0.
func CoerceStock(v any) int32 {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(f)
}
