package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/order"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// IdempotencyKeyHeader lets clients retry order placement safely.
const IdempotencyKeyHeader = "Idempotency-Key"

type OrderHandler struct {
	service  order.OrderService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewOrderHandler creates the order handler.
func NewOrderHandler(service order.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(web.UserHeaderMiddleware)
		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", h.FindOrdersByUserID)
			r.Post("/", h.Place)
			r.Get("/{id}", h.FindByID)
			r.Post("/{id}/cancel", h.Cancel)
		})
	})
}

// Place reserves the stock of every line and creates the order.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	var dto order.PlaceOrderDto
	if !web.DecodeValid(w, r, mLogger, h.validate, &dto) {
		return
	}
	key := r.Header.Get(IdempotencyKeyHeader)
	if len(key) > 128 {
		web.RespondError(w, mLogger, http.StatusBadRequest, IdempotencyKeyHeader+" must not exceed 128 characters")
		return
	}

	placed, err := h.service.Place(r.Context(), userID, dto, key)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to place order")
		return
	}
	mLogger.InfoContext(r.Context(), "Order placed successfully", "ID", placed.ID)
	web.RespondJSON(w, mLogger, http.StatusCreated, placed)
}

// FindByID retrieves an order of the calling user.
func (h *OrderHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	found, err := h.service.FindByID(r.Context(), userID, id)
	if err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to retrieve order with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// FindOrdersByUserID retrieves a page of the calling user's orders.
func (h *OrderHandler) FindOrdersByUserID(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	offset, limit, ok := web.Page(w, r, mLogger)
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	list, err := h.service.FindOrdersByUserID(r.Context(), userID, offset, limit)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to fetch orders")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Cancel cancels a pending order and releases its stock.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	cancelled, err := h.service.Cancel(r.Context(), userID, id)
	if err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to cancel order with ID %s", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Order cancelled successfully", "ID", id)
	web.RespondJSON(w, mLogger, http.StatusOK, cancelled)
}
