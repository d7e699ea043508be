package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GrpcServerConfig configures the inventory admin gRPC listener.
// Zero MaxConcurrentStreams and MaxConnectionIdle keep the grpc-go defaults.
type GrpcServerConfig struct {
	Port                 string        `koanf:"port"`
	ReflectionEnabled    bool          `koanf:"reflection"`
	MaxConcurrentStreams uint32        `koanf:"maxconcurrentstreams"`
	MaxConnectionIdle    time.Duration `koanf:"maxconnectionidle"`
}

func (c *GrpcServerConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- gRPC Server ---\n")
	b.WriteString(fmt.Sprintf("  port: %s\n", c.Port))
	b.WriteString(fmt.Sprintf("  reflection: %t\n", c.ReflectionEnabled))
	b.WriteString(fmt.Sprintf("  maxconcurrentstreams: %d\n", c.MaxConcurrentStreams))
	b.WriteString(fmt.Sprintf("  maxconnectionidle: %s\n", c.MaxConnectionIdle))
	return b.String()
}

func (c *GrpcServerConfig) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("grpc.port %q is not a valid port", c.Port)
	}
	if c.MaxConnectionIdle < 0 {
		return fmt.Errorf("grpc.maxconnectionidle must not be negative")
	}
	return nil
}
