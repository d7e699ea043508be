package rest

import (
	"errors"
	"log/slog"
	"net/http"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/web"
)

// respondServiceError maps service errors to HTTP responses. Expected outcomes are logged at Warn,
// everything else at Error with the generic message.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, message string) {
	ctx := r.Context()

	var stockErr *perrors.InsufficientStockError
	if errors.As(err, &stockErr) {
		logger.WarnContext(ctx, "Insufficient stock", "product_id", stockErr.ProductID, "size", stockErr.Size,
			"requested", stockErr.Requested, "available", stockErr.Available)
		web.RespondJSON(w, logger, http.StatusConflict, map[string]any{
			"error":      stockErr.Error(),
			"product_id": stockErr.ProductID,
			"size":       stockErr.Size,
			"available":  stockErr.Available,
		})
		return
	}
	var dupErr *perrors.DuplicateRequestError
	if errors.As(err, &dupErr) {
		logger.WarnContext(ctx, "Duplicate request", "idempotency_key", dupErr.Key, "order_id", dupErr.OrderID)
		web.RespondJSON(w, logger, http.StatusConflict, map[string]any{
			"error":    dupErr.Error(),
			"order_id": dupErr.OrderID,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, perrors.ErrProductNotFound), errors.Is(err, perrors.ErrOrderNotFound),
		errors.Is(err, perrors.ErrCartNotFound), errors.Is(err, perrors.ErrCartLineNotFound):
		status = http.StatusNotFound
	case errors.Is(err, perrors.ErrInvalidSize), errors.Is(err, perrors.ErrInvalidQuantity),
		errors.Is(err, perrors.ErrInvalidInventory), errors.Is(err, perrors.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, perrors.ErrOptimisticLock), errors.Is(err, perrors.ErrOrderNotCancellable),
		errors.Is(err, perrors.ErrStockOverflow):
		status = http.StatusConflict
	case errors.Is(err, perrors.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, perrors.ErrTransientStore):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		logger.ErrorContext(ctx, message, "error", err)
		web.RespondError(w, logger, status, message)
		return
	}
	logger.WarnContext(ctx, message, "error", err)
	web.RespondError(w, logger, status, err.Error())
}
