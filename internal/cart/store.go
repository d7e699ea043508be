// Package cart keeps shopping carts and holds stock for their lines through the reservation protocol.
package cart

import (
	"context"

	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/google/uuid"
)

// Store is an interface for cart storage operations.
// Carts are keyed by the owner's user ID or by a guest session ID.
type Store interface {
	// Items returns the lines of a cart. A cart that does not exist has no lines.
	Items(ctx context.Context, cartID uuid.UUID) ([]db.CartItem, error)

	// Item returns one line of a cart.
	// Returns ErrCartLineNotFound if the cart has no such line.
	Item(ctx context.Context, cartID, itemID uuid.UUID) (*db.CartItem, error)

	// AddItem creates the cart if needed and adds quantity to the line with the same product, size and color,
	// creating the line if there is none.
	AddItem(ctx context.Context, cartID uuid.UUID, params db.CreateCartItemParams) (*db.CartItem, error)

	// SetQuantity replaces the quantity of a line that still holds expected.
	// Returns ErrCartLineNotFound if the cart has no such line and ErrOptimisticLock if its quantity
	// is no longer expected.
	SetQuantity(ctx context.Context, cartID, itemID uuid.UUID, expected, quantity int32) (*db.CartItem, error)

	// RemoveItem deletes one line that still holds expected.
	// Returns ErrCartLineNotFound if the cart has no such line and ErrOptimisticLock if its quantity
	// is no longer expected.
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID, expected int32) error

	// Merge moves every line of from into to, summing identical lines, and deletes from.
	Merge(ctx context.Context, from, to uuid.UUID) error
}
