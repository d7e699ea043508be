// Command cachectl administers the inventory cache of a running storefront instance over gRPC.
//
//	cachectl invalidate [-product ID] [-size S]
//	cachectl stock -product ID -size S
//	cachectl stats
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	inventoryv1 "github.com/abgdnv/storefront/pkg/api/inventory/v1"
	"github.com/abgdnv/storefront/pkg/client/grpc/interceptors"
	"github.com/abgdnv/storefront/pkg/config/configloader"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const serviceName = "cachectl"

var errUsage = errors.New("usage: cachectl invalidate [-product ID] [-size S] | stock -product ID -size S | stats")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Printf("cachectl: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := configloader.Load[*Config](serviceName,
		configloader.WithDefaults(defaults()),
		configloader.WithConfigFile("cachectl.yaml"),
	)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	conn, err := grpc.NewClient(cfg.Grpc.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(interceptors.ClientChain("inventory-admin", cfg.Grpc,
			slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))...),
	)
	if err != nil {
		return fmt.Errorf("failed to create gRPC client connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return execute(ctx, inventoryv1.NewInventoryAdminClient(conn), args, os.Stdout)
}

// execute runs one subcommand and prints its response as JSON.
func execute(ctx context.Context, client inventoryv1.InventoryAdminClient, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	productID := fs.String("product", "", "product ID")
	size := fs.String("size", "", "size label")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	var (
		resp any
		err  error
	)
	switch args[0] {
	case "invalidate":
		resp, err = client.InvalidateCache(ctx, &inventoryv1.InvalidateCacheRequest{ProductID: *productID, Size: *size})
	case "stock":
		if *productID == "" || *size == "" {
			return errUsage
		}
		resp, err = client.GetStock(ctx, &inventoryv1.GetStockRequest{ProductID: *productID, Size: *size})
	case "stats":
		resp, err = client.CacheStats(ctx, &inventoryv1.CacheStatsRequest{})
	default:
		return errUsage
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", args[0], err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
