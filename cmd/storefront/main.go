package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/order"
	"github.com/abgdnv/storefront/internal/subscriber"
	"github.com/abgdnv/storefront/pkg/auth"
	"github.com/abgdnv/storefront/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/config/configloader"
	"github.com/abgdnv/storefront/pkg/nats"
	"github.com/abgdnv/storefront/pkg/probes"
	"github.com/abgdnv/storefront/pkg/telemetry"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"
)

const serviceName = "storefront"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run wires the storefront and serves HTTP, gRPC, pprof and the cache-invalidation subscriber until ctx is done.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName, configloader.WithDefaults(config.Defaults()))
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	var infra app.Infra

	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Instance, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer shutdownWith(logger, cfg, "tracer provider", tp.Shutdown)
	}
	if cfg.Telemetry.Metrics.Enabled {
		mp, metricsHandler, err := telemetry.NewMeterProvider(serviceName, cfg.Instance)
		if err != nil {
			return fmt.Errorf("failed to create meter provider: %w", err)
		}
		defer shutdownWith(logger, cfg, "meter provider", mp.Shutdown)
		infra.Metrics = metricsHandler
	}

	stores, closeStores, err := newStores(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	if cfg.Redis.Enabled {
		rdb, err := bootstrap.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer func() { _ = rdb.Close() }()
		infra.Idempotency = order.NewRedisIdempotency(rdb, cfg.Redis.IdempotencyTTL)
		logger.Info("Successfully connected to redis", slog.String("addr", cfg.Redis.Addr))
	}

	var js jetstream.JetStream
	if cfg.Nats.Enabled {
		natsConn, err := nats.NewClient(cfg.Nats, serviceName+"-"+cfg.Instance, logger)
		if err != nil {
			return fmt.Errorf("failed to create NATS connection: %w", err)
		}
		defer natsConn.Close()
		if js, err = nats.NewJetStreamContext(natsConn); err != nil {
			return fmt.Errorf("failed to get JetStream context: %w", err)
		}
		if err := nats.EnsureStream(ctx, js, cfg.Nats.Stream, cfg.Nats.Subjects, cfg.Nats.StreamMaxAge); err != nil {
			return err
		}
		infra.Publisher = nats.NewNatsPublisher(js)
	}

	if cfg.IdP.Enabled {
		verifier, err := auth.NewJWTVerifier(ctx, cfg.IdP)
		if err != nil {
			return fmt.Errorf("failed to create JWT verifier: %w", err)
		}
		infra.Verifier = verifier
	} else {
		logger.Info("IdP is disabled, admin routes are not mounted")
	}

	deps := app.SetupDependencies(stores, infra, cfg, logger)
	defer deps.Close()

	httpServer := app.SetupHttpServer(deps, cfg)
	grpcServer := app.SetupGrpcServer(deps, cfg.GRPC)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port %s: %w", cfg.GRPC.Port, err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		if cfg.Probes.Enabled {
			if err := probes.MarkNotReady(cfg.Probes); err != nil {
				logger.Warn("failed to mark not ready", "error", err)
			}
		}
		time.Sleep(cfg.Shutdown.DrainDelay)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the gRPC server
	g.Go(func() error {
		logger.Info("gRPC server listening", slog.String("addr", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			return fmt.Errorf("grpc server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down gRPC server...")
		grpcServer.GracefulStop()
		return nil
	})

	if cfg.Nats.Enabled {
		consumer := cfg.Subscriber.ConsumerFor(cfg.Instance)
		handler := subscriber.StockChanged(deps.Reservations, cfg.Instance, logger)
		g.Go(func() error {
			err := nats.Subscribe(gCtx, js, cfg.Subscriber, consumer, handler, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("subscriber failed", "error", err)
				return err
			}
			logger.Info("subscriber stopped gracefully")
			return nil
		})
	}

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		runtime.SetMutexProfileFraction(cfg.PProf.MutexProfileFraction)
		runtime.SetBlockProfileRate(cfg.PProf.BlockProfileRate)
		pprofServer := &http.Server{
			Addr: cfg.PProf.Addr,
		}
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if cfg.Probes.Enabled {
		g.Go(func() error {
			return probes.RunLiveness(gCtx, cfg.Probes, logger)
		})
		if err := probes.MarkReady(cfg.Probes); err != nil {
			logger.Warn("failed to mark ready", "error", err)
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// newStores connects to the configured product store. Carts and orders exist only with postgres.
func newStores(ctx context.Context, cfg pkgconfig.DatabaseConfig, logger *slog.Logger) (app.Stores, func(), error) {
	switch cfg.Driver {
	case pkgconfig.DriverFirestore:
		client, err := bootstrap.NewFirestoreClient(ctx, cfg.Firestore)
		if err != nil {
			return app.Stores{}, nil, err
		}
		logger.Info("Using firestore product store", slog.String("project", cfg.Firestore.ProjectID))
		return app.FirestoreStores(client, cfg.Firestore.Collection), func() { _ = client.Close() }, nil
	case pkgconfig.DriverMemory:
		logger.Warn("Using in-memory product store, carts and orders are disabled")
		return app.MemoryStores(), func() {}, nil
	default:
		if cfg.Migrate {
			if err := bootstrap.Migrate(cfg.URL, cfg.Migrations); err != nil {
				return app.Stores{}, nil, err
			}
			logger.Info("Database migrations applied")
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.URL, cfg.Timeout)
		if err != nil {
			return app.Stores{}, nil, err
		}
		logger.Info("Successfully connected to the database!")
		return app.PgStores(dbPool), dbPool.Close, nil
	}
}

func shutdownWith(logger *slog.Logger, cfg *config.Config, name string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Error("failed to shut down "+name, "error", err)
	}
}
