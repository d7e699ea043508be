package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type CartHandler struct {
	service  cart.CartService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewCartHandler creates the cart handler. Carts are addressed by the user ID or a guest session ID.
func NewCartHandler(service cart.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the cart routes. Merging needs the X-User-Id header.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/carts/{cartID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Post("/items", h.AddItem)
		r.Put("/items/{itemID}", h.UpdateQuantity)
		r.Delete("/items/{itemID}", h.RemoveItem)
		r.With(web.UserHeaderMiddleware).Post("/merge", h.Merge)
	})
}

// Get returns the cart with current availability per line.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	cartID, ok := web.ParseUUIDParam(w, r, mLogger, "cartID")
	if !ok {
		return
	}
	found, err := h.service.Get(r.Context(), cartID)
	if err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to retrieve cart %s", cartID))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// AddItem reserves stock and adds it to the cart.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	cartID, ok := web.ParseUUIDParam(w, r, mLogger, "cartID")
	if !ok {
		return
	}
	var dto cart.AddItemDto
	if !web.DecodeValid(w, r, mLogger, h.validate, &dto) {
		return
	}
	updated, err := h.service.AddItem(r.Context(), cartID, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to add item to cart %s", cartID))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// UpdateQuantity sets a line's quantity; zero removes it.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	cartID, ok := web.ParseUUIDParam(w, r, mLogger, "cartID")
	if !ok {
		return
	}
	itemID, ok := web.ParseUUIDParam(w, r, mLogger, "itemID")
	if !ok {
		return
	}
	var dto cart.UpdateQuantityDto
	if !web.DecodeValid(w, r, mLogger, h.validate, &dto) {
		return
	}
	updated, err := h.service.UpdateQuantity(r.Context(), cartID, itemID, dto.Quantity)
	if err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to update cart item %s", itemID))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// RemoveItem releases a line's stock and removes the line.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	cartID, ok := web.ParseUUIDParam(w, r, mLogger, "cartID")
	if !ok {
		return
	}
	itemID, ok := web.ParseUUIDParam(w, r, mLogger, "itemID")
	if !ok {
		return
	}
	if err := h.service.RemoveItem(r.Context(), cartID, itemID); err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to remove cart item %s", itemID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear releases and removes every line.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	cartID, ok := web.ParseUUIDParam(w, r, mLogger, "cartID")
	if !ok {
		return
	}
	if err := h.service.Clear(r.Context(), cartID); err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to clear cart %s", cartID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Merge moves the guest cart in the path into the cart of the calling user.
func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	guestID, ok := web.ParseUUIDParam(w, r, mLogger, "cartID")
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	merged, err := h.service.Merge(r.Context(), guestID, userID)
	if err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to merge cart %s", guestID))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, merged)
}
