// Package inventoryv1 defines the storefront.admin.v1.InventoryAdmin gRPC service.
// Messages travel as JSON (see jsoncodec), so the service descriptor is written by hand.
package inventoryv1

import (
	"context"

	"github.com/abgdnv/storefront/pkg/api/jsoncodec"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "storefront.admin.v1.InventoryAdmin"

	InvalidateCacheMethod = "/" + ServiceName + "/InvalidateCache"
	GetStockMethod        = "/" + ServiceName + "/GetStock"
	CacheStatsMethod      = "/" + ServiceName + "/CacheStats"
)

// InvalidateCacheRequest selects what to drop: everything, one product, or one size of a product.
type InvalidateCacheRequest struct {
	ProductID string `json:"product_id,omitempty"`
	Size      string `json:"size,omitempty"`
}

type InvalidateCacheResponse struct {
	Scope string `json:"scope"`
}

type GetStockRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
}

type GetStockResponse struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Available int32  `json:"available"`
}

type CacheStatsRequest struct{}

type CacheStatsResponse struct {
	Hits            int64 `json:"hits"`
	Misses          int64 `json:"misses"`
	Evictions       int64 `json:"evictions"`
	Inconsistencies int64 `json:"inconsistencies"`
	Entries         int64 `json:"entries"`
}

// InventoryAdminServer is the server API for the InventoryAdmin service.
type InventoryAdminServer interface {
	InvalidateCache(context.Context, *InvalidateCacheRequest) (*InvalidateCacheResponse, error)
	GetStock(context.Context, *GetStockRequest) (*GetStockResponse, error)
	CacheStats(context.Context, *CacheStatsRequest) (*CacheStatsResponse, error)
}

// UnimplementedInventoryAdminServer can be embedded to have forward compatible implementations.
type UnimplementedInventoryAdminServer struct{}

func (UnimplementedInventoryAdminServer) InvalidateCache(context.Context, *InvalidateCacheRequest) (*InvalidateCacheResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method InvalidateCache not implemented")
}

func (UnimplementedInventoryAdminServer) GetStock(context.Context, *GetStockRequest) (*GetStockResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStock not implemented")
}

func (UnimplementedInventoryAdminServer) CacheStats(context.Context, *CacheStatsRequest) (*CacheStatsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CacheStats not implemented")
}

// RegisterInventoryAdminServer registers srv with s.
func RegisterInventoryAdminServer(s grpc.ServiceRegistrar, srv InventoryAdminServer) {
	s.RegisterService(&InventoryAdmin_ServiceDesc, srv)
}

func _InventoryAdmin_InvalidateCache_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(InvalidateCacheRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryAdminServer).InvalidateCache(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InvalidateCacheMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryAdminServer).InvalidateCache(ctx, req.(*InvalidateCacheRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _InventoryAdmin_GetStock_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetStockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryAdminServer).GetStock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetStockMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryAdminServer).GetStock(ctx, req.(*GetStockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _InventoryAdmin_CacheStats_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CacheStatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryAdminServer).CacheStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CacheStatsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryAdminServer).CacheStats(ctx, req.(*CacheStatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// InventoryAdmin_ServiceDesc is the grpc.ServiceDesc for the InventoryAdmin service.
var InventoryAdmin_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "InvalidateCache", Handler: _InventoryAdmin_InvalidateCache_Handler},
		{MethodName: "GetStock", Handler: _InventoryAdmin_GetStock_Handler},
		{MethodName: "CacheStats", Handler: _InventoryAdmin_CacheStats_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/admin/v1/inventory_admin.json",
}

// InventoryAdminClient is the client API for the InventoryAdmin service.
type InventoryAdminClient interface {
	InvalidateCache(ctx context.Context, in *InvalidateCacheRequest, opts ...grpc.CallOption) (*InvalidateCacheResponse, error)
	GetStock(ctx context.Context, in *GetStockRequest, opts ...grpc.CallOption) (*GetStockResponse, error)
	CacheStats(ctx context.Context, in *CacheStatsRequest, opts ...grpc.CallOption) (*CacheStatsResponse, error)
}

type inventoryAdminClient struct {
	cc grpc.ClientConnInterface
}

// NewInventoryAdminClient creates a client that always selects the JSON codec.
func NewInventoryAdminClient(cc grpc.ClientConnInterface) InventoryAdminClient {
	return &inventoryAdminClient{cc: cc}
}

func withJSON(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(jsoncodec.Name)}, opts...)
}

func (c *inventoryAdminClient) InvalidateCache(ctx context.Context, in *InvalidateCacheRequest, opts ...grpc.CallOption) (*InvalidateCacheResponse, error) {
	out := new(InvalidateCacheResponse)
	if err := c.cc.Invoke(ctx, InvalidateCacheMethod, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inventoryAdminClient) GetStock(ctx context.Context, in *GetStockRequest, opts ...grpc.CallOption) (*GetStockResponse, error) {
	out := new(GetStockResponse)
	if err := c.cc.Invoke(ctx, GetStockMethod, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inventoryAdminClient) CacheStats(ctx context.Context, in *CacheStatsRequest, opts ...grpc.CallOption) (*CacheStatsResponse, error) {
	out := new(CacheStatsResponse)
	if err := c.cc.Invoke(ctx, CacheStatsMethod, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}
