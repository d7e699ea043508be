// Package config holds the storefront service configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	// Instance names this process in published events. Defaults to the host name.
	Instance   string                  `koanf:"instance"`
	HTTPServer config.HTTPConfig       `koanf:"server"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Cache      config.CacheConfig      `koanf:"cache"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Subscriber config.SubscriberConfig `koanf:"subscriber"`
	Redis      config.RedisConfig      `koanf:"redis"`
	IdP        config.IdP              `koanf:"idp"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Probes     config.ProbesConfig     `koanf:"probes"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
}

// Defaults returns the values used when neither config.yaml nor the environment sets a key.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":                   8080,
		"server.maxheaderbytes":         1 << 20,
		"server.timeout.read":           5 * time.Second,
		"server.timeout.write":          10 * time.Second,
		"server.timeout.idle":           60 * time.Second,
		"server.timeout.readheader":     2 * time.Second,
		"grpc.port":                     "50051",
		"grpc.maxconcurrentstreams":     100,
		"grpc.maxconnectionidle":        5 * time.Minute,
		"database.driver":               config.DriverPostgres,
		"database.timeout":              5 * time.Second,
		"database.querytimeout":         3 * time.Second,
		"database.migrations":           "migrations",
		"database.firestore.collection": "products",
		"cache.ttl":                     5 * time.Minute,
		"cache.sweepinterval":           time.Minute,
		"nats.timeout":                  5 * time.Second,
		"nats.maxreconnects":            -1,
		"nats.reconnectwait":            2 * time.Second,
		"nats.streammaxage":             24 * time.Hour,
		"nats.stream":                   "STOREFRONT",
		"nats.subjects":                 []string{"inventory.>", "orders.>"},
		"subscriber.stream":             "STOREFRONT",
		"subscriber.subject":            "inventory.stock.changed",
		"subscriber.consumer":           "inventory-cache",
		"subscriber.batch":              10,
		"subscriber.timeout":            5 * time.Second,
		"subscriber.interval":           time.Second,
		"subscriber.workers":            1,
		"subscriber.maxdeliver":         5,
		"subscriber.inactivethreshold":  time.Hour,
		"redis.timeout":                 time.Second,
		"redis.idempotencyttl":          24 * time.Hour,
		"idp.adminrole":                 "storefront-admin",
		"idp.mininterval":               5 * time.Minute,
		"telemetry.traces.sampleratio":  1.0,
		"telemetry.metrics.enabled":     true,
		"telemetry.metrics.path":        "/metrics",
		"log.level":                     "info",
		"log.format":                    config.LogFormatJSON,
		"pprof.addr":                    "localhost:6060",
		"pprof.mutexprofilefraction":    5,
		"probes.readinessfilename":      "/tmp/ready",
		"probes.livenessfilename":       "/tmp/live",
		"probes.livenessinterval":       20 * time.Second,
		"shutdown.timeout":              15 * time.Second,
		"shutdown.draindelay":           2 * time.Second,
	}
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("\n--- Instance ---\n")
	b.WriteString("  instance: " + c.Instance + "\n")
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.Cache.String())
	b.WriteString(c.Nats.String())
	if c.Nats.Enabled {
		b.WriteString(c.Subscriber.String())
	}
	b.WriteString(c.Redis.String())
	b.WriteString(c.IdP.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Probes.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if c.Instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("instance is not configured and the host name is unknown: %w", err)
		}
		c.Instance = host
	}
	validators := []configloader.Validator{
		&c.HTTPServer, &c.GRPC, &c.Database, &c.Cache, &c.Nats, &c.Redis,
		&c.IdP, &c.Telemetry, &c.Log, &c.PProf, &c.Probes, &c.Shutdown,
	}
	if c.Nats.Enabled {
		validators = append(validators, &c.Subscriber)
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
