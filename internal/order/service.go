package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/inventory"
	"github.com/abgdnv/storefront/internal/inventory/service"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
)

// OrderService defines the methods for managing orders.
type OrderService interface {
	// Place reserves stock for every line and stores the order. Nothing stays reserved if it fails.
	// Returns *InsufficientStockError, ErrProductNotFound, ErrInvalidSize or *DuplicateRequestError.
	Place(ctx context.Context, userID uuid.UUID, order PlaceOrderDto, idempotencyKey string) (*OrderDto, error)

	// Cancel cancels a pending order and releases its stock.
	// Returns ErrOrderNotFound, ErrAccessDenied, ErrOrderNotCancellable or ErrOptimisticLock.
	Cancel(ctx context.Context, userID, id uuid.UUID) (*OrderDto, error)

	// FindByID retrieves a single order of the user.
	// Returns ErrOrderNotFound or ErrAccessDenied.
	FindByID(ctx context.Context, userID, id uuid.UUID) (*OrderDto, error)

	// FindOrdersByUserID returns a page of the user's orders without items.
	FindOrdersByUserID(ctx context.Context, userID uuid.UUID, offset, limit int32) ([]OrderDto, error)
}

// Products looks up product prices at placement time.
type Products interface {
	FindByID(ctx context.Context, id uuid.UUID) (*inventory.Product, error)
}

// PlaceOrderDto represents the data transfer object for placing an order.
type PlaceOrderDto struct {
	Items []service.Line `json:"items" validate:"required,gt=0,dive"`
}

// OrderDto represents the data transfer object for an order.
// Version is read-only and used for optimistic concurrency control.
type OrderDto struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Status    string         `json:"status"`
	Total     int64          `json:"total"`
	Version   int32          `json:"version"`
	CreatedAt string         `json:"created_at"`
	Items     []OrderItemDto `json:"items,omitempty"`
}

type OrderItemDto struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	Size         string    `json:"size"`
	Quantity     int32     `json:"quantity"`
	PricePerItem int64     `json:"price_per_item"`
	Price        int64     `json:"price"`
}

// Service implements OrderService.
type Service struct {
	store       Store
	products    Products
	reserver    service.Reserver
	idempotency Idempotency
	publisher   messaging.Publisher
	logger      *slog.Logger
	placed      metric.Int64Counter
}

// NewService creates a new instance of OrderService.
func NewService(store Store, products Products, reserver service.Reserver, idempotency Idempotency,
	publisher messaging.Publisher, logger *slog.Logger) *Service {
	placed, err := otel.Meter("orders").Int64Counter("orders_placed", metric.WithDescription("Total number of placed orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_placed counter: %v", err))
	}
	if idempotency == nil {
		idempotency = NopIdempotency{}
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Service{
		store:       store,
		products:    products,
		reserver:    reserver,
		idempotency: idempotency,
		publisher:   publisher,
		logger:      logger.With("component", "orders"),
		placed:      placed,
	}
}

func (s *Service) Place(ctx context.Context, userID uuid.UUID, order PlaceOrderDto, idempotencyKey string) (*OrderDto, error) {
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("order has no items: %w", perrors.ErrInvalidArgument)
	}
	if idempotencyKey != "" {
		if err := s.claim(ctx, idempotencyKey); err != nil {
			return nil, err
		}
	}

	created, items, err := s.place(ctx, userID, order.Items, idempotencyKey)
	if err != nil {
		if idempotencyKey != "" && !errors.Is(err, perrors.ErrDuplicateRequest) {
			s.abandon(ctx, idempotencyKey)
		}
		return nil, err
	}
	if idempotencyKey != "" {
		if err := s.idempotency.Complete(ctx, idempotencyKey, created.ID.String()); err != nil {
			s.logger.WarnContext(ctx, "failed to record idempotency key", "key", idempotencyKey, "error", err)
		}
	}

	s.placed.Add(ctx, 1)
	s.publishPlaced(ctx, created, items)
	s.logger.InfoContext(ctx, "order placed", "order_id", created.ID, "user_id", userID, "total", created.Total)
	return toDto(created, items), nil
}

// claim rejects a key that already produced an order or is being processed right now.
func (s *Service) claim(ctx context.Context, key string) error {
	claimed, orderID, err := s.idempotency.Claim(ctx, key)
	if err != nil {
		// The order table still enforces the key.
		s.logger.WarnContext(ctx, "idempotency fast path unavailable", "key", key, "error", err)
		claimed = true
	}
	if !claimed {
		return &perrors.DuplicateRequestError{Key: key, OrderID: orderID}
	}
	existing, err := s.store.FindByIdempotencyKey(ctx, key)
	if err == nil {
		if err := s.idempotency.Complete(ctx, key, existing.ID.String()); err != nil {
			s.logger.WarnContext(ctx, "failed to record idempotency key", "key", key, "error", err)
		}
		return &perrors.DuplicateRequestError{Key: key, OrderID: existing.ID.String()}
	}
	if !errors.Is(err, perrors.ErrOrderNotFound) {
		s.abandon(ctx, key)
		return err
	}
	return nil
}

// abandon frees a claimed key so the client can retry. It runs even when the request was canceled.
func (s *Service) abandon(ctx context.Context, key string) {
	if err := s.idempotency.Abandon(context.WithoutCancel(ctx), key); err != nil {
		s.logger.WarnContext(ctx, "failed to abandon idempotency key", "key", key, "error", err)
	}
}

func (s *Service) place(ctx context.Context, userID uuid.UUID, lines []service.Line, key string) (*db.Order, []db.OrderItem, error) {
	priced, total, err := s.price(ctx, lines)
	if err != nil {
		return nil, nil, err
	}
	if err := s.reserver.ReserveAll(ctx, lines); err != nil {
		return nil, nil, err
	}

	params := db.CreateOrderParams{UserID: userID, Status: StatusPending, Total: total}
	if key != "" {
		params.IdempotencyKey = &key
	}
	created, items, err := s.store.CreateOrder(ctx, params, priced)
	if err != nil {
		if relErr := s.reserver.ReleaseAll(context.WithoutCancel(ctx), lines); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release stock of unsaved order", "user_id", userID, "error", relErr)
		}
		if errors.Is(err, perrors.ErrDuplicateRequest) {
			return nil, nil, s.duplicate(ctx, key)
		}
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}
	return created, items, nil
}

// duplicate resolves the order a concurrent request created with the same key.
func (s *Service) duplicate(ctx context.Context, key string) error {
	dupErr := &perrors.DuplicateRequestError{Key: key}
	if existing, err := s.store.FindByIdempotencyKey(ctx, key); err == nil {
		dupErr.OrderID = existing.ID.String()
	}
	return dupErr
}

// price reads the current price of every product. Unknown products fail before any stock is touched.
func (s *Service) price(ctx context.Context, lines []service.Line) ([]db.CreateOrderItemParams, int64, error) {
	prices := make(map[uuid.UUID]int64, len(lines))
	items := make([]db.CreateOrderItemParams, 0, len(lines))
	var total int64
	for _, line := range lines {
		unit, ok := prices[line.ProductID]
		if !ok {
			p, err := s.products.FindByID(ctx, line.ProductID)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to price product %s: %w", line.ProductID, err)
			}
			unit = p.Price
			prices[line.ProductID] = unit
		}
		price := unit * int64(line.Quantity)
		items = append(items, db.CreateOrderItemParams{
			ProductID:    line.ProductID,
			Size:         line.Size,
			Quantity:     line.Quantity,
			PricePerItem: unit,
			Price:        price,
		})
		total += price
	}
	return items, total, nil
}

func (s *Service) Cancel(ctx context.Context, userID, id uuid.UUID) (*OrderDto, error) {
	order, items, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, perrors.ErrAccessDenied
	}
	if order.Status != StatusPending {
		return nil, fmt.Errorf("order %s is %s: %w", id, order.Status, perrors.ErrOrderNotCancellable)
	}

	updated, err := s.store.UpdateStatus(ctx, db.UpdateOrderStatusParams{ID: id, Version: order.Version, Status: StatusCancelled})
	if err != nil {
		return nil, err
	}

	lines := make([]service.Line, len(items))
	for i, item := range items {
		lines[i] = service.Line{ProductID: item.ProductID, Size: item.Size, Quantity: item.Quantity}
	}
	// The order is cancelled either way; stock that could not be released is left for reconciliation.
	if err := s.reserver.ReleaseAll(context.WithoutCancel(ctx), lines); err != nil {
		s.logger.ErrorContext(ctx, "failed to release stock of cancelled order", "order_id", id, "error", err)
	}

	event := events.OrderCancelledEvent{OrderID: id, UserID: userID, CancelledAt: updated.UpdatedAt}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish OrderCancelledEvent", "order_id", id, "error", err)
	}
	s.logger.InfoContext(ctx, "order cancelled", "order_id", id, "user_id", userID)
	return toDto(updated, items), nil
}

// FindByID retrieves an order by its ID and returns it as an OrderDto.
func (s *Service) FindByID(ctx context.Context, userID, id uuid.UUID) (*OrderDto, error) {
	order, items, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, perrors.ErrAccessDenied
	}
	return toDto(order, items), nil
}

// FindOrdersByUserID retrieves a page of the user's orders.
func (s *Service) FindOrdersByUserID(ctx context.Context, userID uuid.UUID, offset, limit int32) ([]OrderDto, error) {
	orders, err := s.store.FindOrdersByUserID(ctx, db.FindOrdersByUserIDParams{UserID: userID, Offset: offset, Limit: limit})
	if err != nil {
		return nil, err
	}
	dtos := make([]OrderDto, len(orders))
	for i := range orders {
		dtos[i] = *toDto(&orders[i], nil)
	}
	return dtos, nil
}

func (s *Service) publishPlaced(ctx context.Context, order *db.Order, items []db.OrderItem) {
	lines := make([]events.OrderLine, len(items))
	for i, item := range items {
		lines[i] = events.OrderLine{ProductID: item.ProductID, Size: item.Size, Quantity: item.Quantity}
	}
	event := events.OrderPlacedEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalPrice: order.Total,
		Lines:      lines,
		CreatedAt:  order.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish OrderPlacedEvent", "order_id", order.ID, "error", err)
	}
}

func toDto(order *db.Order, items []db.OrderItem) *OrderDto {
	dto := &OrderDto{
		ID:        order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Total:     order.Total,
		Version:   order.Version,
		CreatedAt: order.CreatedAt.Format(time.RFC3339),
	}
	if items != nil {
		dto.Items = make([]OrderItemDto, len(items))
		for i, item := range items {
			dto.Items[i] = OrderItemDto{
				ID:           item.ID,
				ProductID:    item.ProductID,
				Size:         item.Size,
				Quantity:     item.Quantity,
				PricePerItem: item.PricePerItem,
				Price:        item.Price,
			}
		}
	}
	return dto
}
