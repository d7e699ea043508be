// Package rest provides the HTTP handlers of the storefront API.
package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/inventory/service"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type ProductHandler struct {
	service  service.CatalogService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewProductHandler creates the product catalog handler.
func NewProductHandler(service service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the product routes. Write routes are mounted behind admin, and only when
// admin is set.
func (h *ProductHandler) RegisterRoutes(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Get("/{id}", h.FindByID)
		r.Get("/{id}/stock/{size}", h.Stock)
		if admin == nil {
			return
		}
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.DeleteByID)
			r.Put("/{id}/inventory", h.SetInventory)
		})
	})
}

// FindByID retrieves a product with its per-size availability.
func (h *ProductHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to retrieve product with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// FindAll retrieves a page of products.
func (h *ProductHandler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	offset, limit, ok := web.Page(w, r, mLogger)
	if !ok {
		return
	}
	list, err := h.service.FindAll(r.Context(), offset, limit)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

type stockResponse struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Available int32  `json:"available"`
}

// Stock returns the effective available stock of one size.
func (h *ProductHandler) Stock(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	size := r.PathValue("size")
	available, err := h.service.Stock(r.Context(), id, size)
	if err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to resolve stock of product %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, stockResponse{ProductID: id.String(), Size: size, Available: available})
}

// Create handles the creation of a new product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	var dto service.ProductCreateDto
	if !web.DecodeValid(w, r, mLogger, h.validate, &dto) {
		return
	}
	created, err := h.service.Create(r.Context(), dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID)
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// Update handles updating product details.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.ProductUpdateDto
	if !web.DecodeValid(w, r, mLogger, h.validate, &dto) {
		return
	}
	updated, err := h.service.Update(r.Context(), id, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to update product with ID %s", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// SetInventory replaces the sizes and stock of a product.
func (h *ProductHandler) SetInventory(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.InventoryUpdateDto
	if !web.DecodeValid(w, r, mLogger, h.validate, &dto) {
		return
	}
	updated, err := h.service.SetInventory(r.Context(), id, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to set inventory of product with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// DeleteByID deletes a product by its ID and version.
func (h *ProductHandler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	version, ok := web.QueryInt32(w, r, mLogger, "version", 1)
	if !ok {
		return
	}
	if err := h.service.DeleteByID(r.Context(), id, version); err != nil {
		respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to delete product with ID %s", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// loggerWithReqID creates a logger with the request ID from the context.
func loggerWithReqID(logger *slog.Logger, r *http.Request) *slog.Logger {
	return logger.With("request_id", middleware.GetReqID(r.Context()))
}
