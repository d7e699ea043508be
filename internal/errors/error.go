// Package errors provides custom error types for inventory, cart and order operations.
package errors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrProductNotFound = errors.New("product not found")
var ErrInvalidSize = errors.New("invalid size")
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrTransientStore wraps document store failures (timeouts, connectivity). Callers may retry.
var ErrTransientStore = errors.New("document store unavailable")

// ErrCacheInconsistency is internal: size-scoped and product-scoped cache entries disagreed.
var ErrCacheInconsistency = errors.New("inventory cache inconsistency")

var ErrOptimisticLock = errors.New("optimistic lock error: the record has been modified by another transaction")

// ErrSizeNotTracked is returned by stores when the per-size map has no entry for the size yet.
var ErrSizeNotTracked = errors.New("size inventory not tracked")

// ErrStockOverflow rejects a change that would push a size or the product total past the largest stock count.
var ErrStockOverflow = errors.New("stock count out of range")

var ErrInvalidInventory = errors.New("size inventory does not match declared sizes")

var ErrInvalidQuantity = errors.New("quantity must be greater than zero")

// ErrInvalidArgument is returned for requests that are malformed independently of stored state.
var ErrInvalidArgument = errors.New("invalid argument")

var ErrCartNotFound = errors.New("cart not found")
var ErrCartLineNotFound = errors.New("cart line not found")

var ErrOrderNotFound = errors.New("order not found")
var ErrOrderNotCancellable = errors.New("order cannot be cancelled")
var ErrAccessDenied = errors.New("access denied")
var ErrDuplicateRequest = errors.New("duplicate request")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")

// InsufficientStockError carries the stock that was available when the reservation was rejected.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Size      string
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s size %q: requested %d, available %d",
		e.ProductID, e.Size, e.Requested, e.Available)
}

// Is makes errors.Is(err, ErrInsufficientStock) true for *InsufficientStockError.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Transient wraps an infrastructure error so it matches ErrTransientStore.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransientStore, err)
}

// DuplicateRequestError reports a replayed idempotency key and the order it already produced.
type DuplicateRequestError struct {
	Key     string
	OrderID string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("request with idempotency key %q already processed as order %s", e.Key, e.OrderID)
}

func (e *DuplicateRequestError) Is(target error) bool {
	return target == ErrDuplicateRequest
}
