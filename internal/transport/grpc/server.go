// Package grpc provides the gRPC inventory administration server.
package grpc

import (
	"context"
	"errors"
	"log/slog"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/inventory/service"
	inventoryv1 "github.com/abgdnv/storefront/pkg/api/inventory/v1"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StockReader resolves the effective stock of one size.
type StockReader interface {
	Availability(ctx context.Context, id uuid.UUID, size string) (int32, error)
}

type Server struct {
	// Embed the unimplemented server for forward compatibility
	inventoryv1.UnimplementedInventoryAdminServer
	admin  service.CacheAdmin
	stock  StockReader
	logger *slog.Logger
}

func NewServer(admin service.CacheAdmin, stock StockReader, logger *slog.Logger) *Server {
	return &Server{admin: admin, stock: stock, logger: logger.With("component", "grpc")}
}

func (s *Server) InvalidateCache(ctx context.Context, req *inventoryv1.InvalidateCacheRequest) (*inventoryv1.InvalidateCacheResponse, error) {
	var productID uuid.UUID
	if req.ProductID != "" {
		var err error
		if productID, err = uuid.Parse(req.ProductID); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid product ID: %v", err)
		}
	}
	scope, err := s.admin.Invalidate(ctx, productID, req.Size)
	if err != nil {
		return nil, s.toStatus(ctx, "InvalidateCache", err)
	}
	return &inventoryv1.InvalidateCacheResponse{Scope: scope}, nil
}

func (s *Server) GetStock(ctx context.Context, req *inventoryv1.GetStockRequest) (*inventoryv1.GetStockResponse, error) {
	id, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid product ID: %v", err)
	}
	if req.Size == "" {
		return nil, status.Error(codes.InvalidArgument, "size is required")
	}
	available, err := s.stock.Availability(ctx, id, req.Size)
	if err != nil {
		return nil, s.toStatus(ctx, "GetStock", err)
	}
	return &inventoryv1.GetStockResponse{ProductID: req.ProductID, Size: req.Size, Available: available}, nil
}

func (s *Server) CacheStats(ctx context.Context, _ *inventoryv1.CacheStatsRequest) (*inventoryv1.CacheStatsResponse, error) {
	stats := s.admin.Stats(ctx)
	return &inventoryv1.CacheStatsResponse{
		Hits:            stats.Hits,
		Misses:          stats.Misses,
		Evictions:       stats.Evictions,
		Inconsistencies: stats.Inconsistencies,
		Entries:         int64(stats.Entries),
	}, nil
}

func (s *Server) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, perrors.ErrProductNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, perrors.ErrInvalidArgument), errors.Is(err, perrors.ErrInvalidSize):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, perrors.ErrInsufficientStock), errors.Is(err, perrors.ErrStockOverflow):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, perrors.ErrTransientStore):
		s.logger.WarnContext(ctx, "store unavailable", "method", method, "error", err)
		return status.Error(codes.Unavailable, "store unavailable")
	}
	s.logger.ErrorContext(ctx, "request failed", "method", method, "error", err)
	return status.Error(codes.Internal, "internal server error")
}
