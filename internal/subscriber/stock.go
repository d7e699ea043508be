// Package subscriber reacts to inventory events published by other storefront instances.
package subscriber

import (
	"context"
	"log/slog"

	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/abgdnv/storefront/pkg/nats"
	"github.com/google/uuid"
)

// Forgetter drops a product from the local inventory cache.
type Forgetter interface {
	Forget(id uuid.UUID)
}

// StockChanged returns a handler that invalidates the local cache entries of every product another
// instance changed. Events published by this instance are acknowledged without action.
func StockChanged(stock Forgetter, source string, logger *slog.Logger) nats.Handler {
	logger = logger.With("component", "stock-subscriber")
	return func(ctx context.Context, msg nats.Message) error {
		event, err := events.ParseStockChanged(msg.Data())
		if err != nil {
			// Redelivery cannot fix a malformed payload.
			logger.ErrorContext(ctx, "failed to unmarshal stock changed event", "subject", msg.Subject(), "error", err)
			return nil
		}
		if event.Source == source {
			return nil
		}
		stock.Forget(event.ProductID)
		logger.DebugContext(ctx, "inventory cache invalidated by remote change",
			"product_id", event.ProductID, "size", event.Size, "source", event.Source, "version", event.Version)
		return nil
	}
}
