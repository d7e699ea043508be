package web

import (
	"context"
	"log/slog"

	"github.com/abgdnv/storefront/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

type userIDKey struct{}

// WithUserID stores the caller's user ID in ctx. Log records written with the returned context carry it as user_id.
func WithUserID(ctx context.Context, userID string) context.Context {
	ctx = logger.AppendCtx(ctx, slog.String("user_id", userID))
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user ID set by WithUserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

// GetRequestID returns the request ID assigned by the router.
func GetRequestID(ctx context.Context) (string, bool) {
	id := middleware.GetReqID(ctx)
	return id, id != ""
}
