package server

import (
	"context"
	"log/slog"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// RegistrationFunc registers a grpc service with the server.
type RegistrationFunc func(*grpc.Server)

// NewGRPCServer returns a server with tracing and the standard health service. Reflection and
// the stream and idle limits follow cfg; the port is only used by the caller's listener.
func NewGRPCServer(cfg config.GrpcServerConfig, unary []grpc.UnaryServerInterceptor, registerFunc ...RegistrationFunc) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unary...),
	}
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(cfg.MaxConcurrentStreams))
	}
	if cfg.MaxConnectionIdle > 0 {
		opts = append(opts, grpc.KeepaliveParams(keepalive.ServerParameters{MaxConnectionIdle: cfg.MaxConnectionIdle}))
	}
	grpcServer := grpc.NewServer(opts...)

	healthpb.RegisterHealthServer(grpcServer, health.NewServer())
	if cfg.ReflectionEnabled {
		reflection.Register(grpcServer)
	}
	for _, regFunc := range registerFunc {
		regFunc(grpcServer)
	}
	return grpcServer
}

// UnaryServerInterceptors logs finished calls through logger and turns handler panics into codes.Internal.
func UnaryServerInterceptors(logger *slog.Logger) []grpc.UnaryServerInterceptor {
	slogAdapter := logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		logger.Log(ctx, slog.Level(lvl), msg, fields...)
	})
	return []grpc.UnaryServerInterceptor{
		logging.UnaryServerInterceptor(slogAdapter, logging.WithLogOnEvents(logging.FinishCall)),
		recovery.UnaryServerInterceptor(recovery.WithRecoveryHandlerContext(func(ctx context.Context, p any) error {
			logger.ErrorContext(ctx, "panic in gRPC handler", "panic", p)
			return status.Error(codes.Internal, "internal error")
		})),
	}
}
