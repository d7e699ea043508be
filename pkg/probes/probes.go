// Package probes implements file based readiness and liveness probes for container orchestrators.
package probes

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
)

// MarkReady creates the readiness file.
func MarkReady(cfg config.ProbesConfig) error {
	if err := touch(cfg.ReadinessFileName); err != nil {
		return fmt.Errorf("failed to create readiness file: %w", err)
	}
	return nil
}

// MarkNotReady removes the readiness file.
func MarkNotReady(cfg config.ProbesConfig) error {
	if err := os.Remove(cfg.ReadinessFileName); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove readiness file: %w", err)
	}
	return nil
}

// RunLiveness touches the liveness file every LivenessInterval until ctx is done, then removes it.
func RunLiveness(ctx context.Context, cfg config.ProbesConfig, logger *slog.Logger) error {
	ticker := time.NewTicker(cfg.LivenessInterval)
	defer ticker.Stop()
	defer func() { _ = os.Remove(cfg.LivenessFileName) }()

	if err := touch(cfg.LivenessFileName); err != nil {
		logger.WarnContext(ctx, "failed to touch liveness file", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := touch(cfg.LivenessFileName); err != nil {
				logger.WarnContext(ctx, "failed to touch liveness file", "error", err)
			}
		}
	}
}

func touch(name string) error {
	now := time.Now()
	if err := os.Chtimes(name, now, now); err == nil {
		return nil
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	return f.Close()
}
