package rest

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/inventory/service"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type AdminHandler struct {
	service service.CacheAdmin
	logger  *slog.Logger
}

// NewAdminHandler creates the inventory cache administration handler.
func NewAdminHandler(service service.CacheAdmin, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the cache administration routes behind admin. Nothing is mounted without admin.
func (h *AdminHandler) RegisterRoutes(r chi.Router, admin func(http.Handler) http.Handler) {
	if admin == nil {
		return
	}
	r.Route("/api/v1/admin/inventory-cache", func(r chi.Router) {
		r.Use(admin)
		r.Delete("/", h.Invalidate)
		r.Get("/stats", h.Stats)
	})
}

type invalidateResponse struct {
	Scope string `json:"scope"`
}

// Invalidate drops the whole cache, one product, or one size of a product.
func (h *AdminHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	var productID uuid.UUID
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		var err error
		if productID, err = uuid.Parse(raw); err != nil {
			web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid product_id: "+raw)
			return
		}
	}
	scope, err := h.service.Invalidate(r.Context(), productID, r.URL.Query().Get("size"))
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to invalidate inventory cache")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, invalidateResponse{Scope: scope})
}

// Stats reports the inventory cache counters.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	mLogger := loggerWithReqID(h.logger, r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.service.Stats(r.Context()))
}
