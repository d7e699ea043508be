package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/inventory/service"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/google/uuid"
)

// CartService defines the cart operations. Every quantity change is mirrored by a reservation or release.
type CartService interface {
	// Get returns the cart with current availability per line. Lines whose product or size no longer
	// exists are dropped.
	Get(ctx context.Context, cartID uuid.UUID) (*CartDto, error)

	// AddItem reserves the quantity and adds it to the cart.
	// Returns ErrProductNotFound, ErrInvalidSize or *InsufficientStockError.
	AddItem(ctx context.Context, cartID uuid.UUID, item AddItemDto) (*CartDto, error)

	// UpdateQuantity sets a line's quantity, reserving or releasing the difference. Zero removes the line.
	UpdateQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int32) (*CartDto, error)

	// RemoveItem releases a line's quantity and removes the line.
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error

	// Clear releases and removes every line.
	Clear(ctx context.Context, cartID uuid.UUID) error

	// Merge moves a guest cart into a user cart. Stock is already held for the guest lines.
	Merge(ctx context.Context, guestID, userID uuid.UUID) (*CartDto, error)
}

// AddItemDto represents the data transfer object for adding a product to the cart.
type AddItemDto struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size"       validate:"required,max=32"`
	Color     string    `json:"color"      validate:"max=32"`
	Quantity  int32     `json:"quantity"   validate:"required,min=1"`
}

// UpdateQuantityDto represents the data transfer object for changing a line's quantity.
type UpdateQuantityDto struct {
	Quantity int32 `json:"quantity" validate:"min=0"`
}

// CartDto represents the data transfer object for a cart.
type CartDto struct {
	ID    uuid.UUID     `json:"id"`
	Items []CartItemDto `json:"items"`
}

// CartItemDto is one cart line with the stock still available for its size.
type CartItemDto struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Size      string    `json:"size"`
	Color     string    `json:"color,omitempty"`
	Quantity  int32     `json:"quantity"`
	Available int32     `json:"available"`
	AddedAt   string    `json:"added_at"`
}

const (
	// maxWriteAttempts bounds the retries of a line write that lost to a concurrent change.
	maxWriteAttempts    = 3
	compensationTimeout = 5 * time.Second
)

// Service implements CartService.
type Service struct {
	store    Store
	reserver service.Reserver
	logger   *slog.Logger
}

// NewService creates a new instance of CartService.
func NewService(store Store, reserver service.Reserver, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		reserver: reserver,
		logger:   logger.With("component", "cart"),
	}
}

func (s *Service) Get(ctx context.Context, cartID uuid.UUID) (*CartDto, error) {
	items, err := s.store.Items(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart %s: %w", cartID, err)
	}
	cart := &CartDto{ID: cartID, Items: make([]CartItemDto, 0, len(items))}
	for _, item := range items {
		available, err := s.reserver.Availability(ctx, item.ProductID, item.Size)
		if gone(err) {
			s.logger.InfoContext(ctx, "dropping cart line of unavailable product",
				"cart_id", cartID, "item_id", item.ID, "product_id", item.ProductID, "size", item.Size, "error", err)
			rmErr := s.store.RemoveItem(ctx, cartID, item.ID, item.Quantity)
			if rmErr != nil && !errors.Is(rmErr, perrors.ErrCartLineNotFound) && !errors.Is(rmErr, perrors.ErrOptimisticLock) {
				s.logger.WarnContext(ctx, "failed to drop cart line", "item_id", item.ID, "error", rmErr)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve availability of %s: %w", item.ProductID, err)
		}
		cart.Items = append(cart.Items, toItemDto(item, available))
	}
	return cart, nil
}

func (s *Service) AddItem(ctx context.Context, cartID uuid.UUID, item AddItemDto) (*CartDto, error) {
	if _, err := s.reserver.Reserve(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
		return nil, err
	}
	_, err := s.store.AddItem(ctx, cartID, db.CreateCartItemParams{
		ProductID: item.ProductID,
		Size:      item.Size,
		Color:     item.Color,
		Quantity:  item.Quantity,
	})
	if err != nil {
		s.compensate(ctx, item.ProductID, item.Size, item.Quantity)
		return nil, fmt.Errorf("failed to add item to cart %s: %w", cartID, err)
	}
	s.logger.DebugContext(ctx, "item added to cart", "cart_id", cartID, "product_id", item.ProductID,
		"size", item.Size, "quantity", item.Quantity)
	return s.Get(ctx, cartID)
}

func (s *Service) UpdateQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int32) (*CartDto, error) {
	if quantity < 0 {
		return nil, perrors.ErrInvalidQuantity
	}
	if quantity == 0 {
		if err := s.RemoveItem(ctx, cartID, itemID); err != nil {
			return nil, err
		}
		return s.Get(ctx, cartID)
	}
	for attempt := 1; ; attempt++ {
		item, err := s.store.Item(ctx, cartID, itemID)
		if err != nil {
			return nil, err
		}
		err = s.setQuantity(ctx, cartID, *item, quantity)
		if errors.Is(err, perrors.ErrOptimisticLock) && attempt < maxWriteAttempts {
			s.logger.DebugContext(ctx, "cart line changed concurrently, retrying", "cart_id", cartID,
				"item_id", itemID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.Get(ctx, cartID)
	}
}

// setQuantity moves a line from the quantity it was read with to quantity. Stock is reserved before
// the line grows and released only after it shrank, so losing the conditional write to a concurrent
// change never hands the same units out twice.
func (s *Service) setQuantity(ctx context.Context, cartID uuid.UUID, item db.CartItem, quantity int32) error {
	delta := quantity - item.Quantity
	switch {
	case delta == 0:
		return nil
	case delta > 0:
		if _, err := s.reserver.Reserve(ctx, item.ProductID, item.Size, delta); err != nil {
			return err
		}
		if _, err := s.store.SetQuantity(ctx, cartID, item.ID, item.Quantity, quantity); err != nil {
			s.compensate(ctx, item.ProductID, item.Size, delta)
			return fmt.Errorf("failed to update cart item %s: %w", item.ID, err)
		}
	default:
		if _, err := s.store.SetQuantity(ctx, cartID, item.ID, item.Quantity, quantity); err != nil {
			return fmt.Errorf("failed to update cart item %s: %w", item.ID, err)
		}
		if _, err := s.reserver.Release(ctx, item.ProductID, item.Size, -delta); err != nil && !gone(err) {
			s.restoreQuantity(ctx, cartID, item.ID, quantity, item.Quantity)
			return fmt.Errorf("failed to release cart item %s: %w", item.ID, err)
		}
	}
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	for attempt := 1; ; attempt++ {
		item, err := s.store.Item(ctx, cartID, itemID)
		if err != nil {
			return err
		}
		err = s.removeLine(ctx, cartID, *item)
		if errors.Is(err, perrors.ErrOptimisticLock) && attempt < maxWriteAttempts {
			continue
		}
		return err
	}
}

func (s *Service) Clear(ctx context.Context, cartID uuid.UUID) error {
	items, err := s.store.Items(ctx, cartID)
	if err != nil {
		return fmt.Errorf("failed to fetch cart %s: %w", cartID, err)
	}
	var errs []error
	for _, item := range items {
		if err := s.RemoveItem(ctx, cartID, item.ID); err != nil && !errors.Is(err, perrors.ErrCartLineNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// removeLine deletes the line if it still holds the quantity it was read with, then gives that stock back.
// Only the caller whose delete succeeded releases, so two removals of one line release once.
// A line whose product or size is gone holds no stock that could be released.
func (s *Service) removeLine(ctx context.Context, cartID uuid.UUID, item db.CartItem) error {
	if err := s.store.RemoveItem(ctx, cartID, item.ID, item.Quantity); err != nil {
		return fmt.Errorf("failed to remove cart item %s: %w", item.ID, err)
	}
	_, err := s.reserver.Release(ctx, item.ProductID, item.Size, item.Quantity)
	if err != nil && !gone(err) {
		s.restoreLine(ctx, cartID, item)
		return fmt.Errorf("failed to release cart item %s: %w", item.ID, err)
	}
	return nil
}

func (s *Service) Merge(ctx context.Context, guestID, userID uuid.UUID) (*CartDto, error) {
	if guestID != userID {
		if err := s.store.Merge(ctx, guestID, userID); err != nil {
			return nil, fmt.Errorf("failed to merge cart %s into %s: %w", guestID, userID, err)
		}
		s.logger.InfoContext(ctx, "guest cart merged", "guest_id", guestID, "user_id", userID)
	}
	return s.Get(ctx, userID)
}

// compensate undoes a stock change whose cart write failed. A positive quantity is released,
// a negative one reserved again.
func (s *Service) compensate(ctx context.Context, productID uuid.UUID, size string, quantity int32) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if _, err := s.reserver.Adjust(ctx, productID, size, -quantity); err != nil {
		s.logger.ErrorContext(ctx, "failed to compensate stock after cart write failure",
			"product_id", productID, "size", size, "quantity", quantity, "error", err)
	}
}

// restoreQuantity puts back a line quantity whose release failed, so the line keeps matching held stock.
func (s *Service) restoreQuantity(ctx context.Context, cartID, itemID uuid.UUID, from, to int32) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if _, err := s.store.SetQuantity(ctx, cartID, itemID, from, to); err != nil {
		s.logger.ErrorContext(ctx, "failed to restore cart line after release failure",
			"cart_id", cartID, "item_id", itemID, "quantity", to, "error", err)
	}
}

// restoreLine adds back a deleted line whose release failed.
func (s *Service) restoreLine(ctx context.Context, cartID uuid.UUID, item db.CartItem) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	_, err := s.store.AddItem(ctx, cartID, db.CreateCartItemParams{
		ProductID: item.ProductID,
		Size:      item.Size,
		Color:     item.Color,
		Quantity:  item.Quantity,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to restore cart line after release failure",
			"cart_id", cartID, "item_id", item.ID, "quantity", item.Quantity, "error", err)
	}
}

func gone(err error) bool {
	return errors.Is(err, perrors.ErrProductNotFound) || errors.Is(err, perrors.ErrInvalidSize)
}

func toItemDto(item db.CartItem, available int32) CartItemDto {
	return CartItemDto{
		ID:        item.ID,
		ProductID: item.ProductID,
		Size:      item.Size,
		Color:     item.Color,
		Quantity:  item.Quantity,
		Available: available,
		AddedAt:   item.CreatedAt.Format(time.RFC3339),
	}
}
