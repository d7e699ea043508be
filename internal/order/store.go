// Package order places and cancels orders, holding their stock through the reservation protocol.
package order

import (
	"context"

	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/google/uuid"
)

// Store is an interface for order storage operations.
type Store interface {
	// FindByID retrieves a single order with its items.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*db.Order, []db.OrderItem, error)

	// FindByIdempotencyKey retrieves the order created for a key.
	// Returns ErrOrderNotFound if no order carries the key.
	FindByIdempotencyKey(ctx context.Context, key string) (*db.Order, error)

	// FindOrdersByUserID returns a page of a user's orders, newest first.
	FindOrdersByUserID(ctx context.Context, params db.FindOrdersByUserIDParams) ([]db.Order, error)

	// CreateOrder stores an order and its items in one transaction.
	// Returns ErrDuplicateRequest if another order already carries the idempotency key.
	CreateOrder(ctx context.Context, orderParams db.CreateOrderParams, items []db.CreateOrderItemParams) (*db.Order, []db.OrderItem, error)

	// UpdateStatus changes the status if the version matches.
	// Returns ErrOrderNotFound or ErrOptimisticLock.
	UpdateStatus(ctx context.Context, params db.UpdateOrderStatusParams) (*db.Order, error)
}
