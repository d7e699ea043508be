package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// GrpcClientConfig configures an outbound gRPC connection and the resilience chain around its calls.
type GrpcClientConfig struct {
	Addr       string           `koanf:"addr"`
	Timeout    time.Duration    `koanf:"timeout"`
	Resilience ResilienceConfig `koanf:"resilience"`
}

func (c *GrpcClientConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- gRPC Client ---\n")
	b.WriteString(fmt.Sprintf("  addr: %s\n", c.Addr))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(c.Resilience.String())
	return b.String()
}

func (c *GrpcClientConfig) Validate() error {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("grpc.addr %q is not host:port: %w", c.Addr, err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("grpc.timeout must be greater than 0")
	}
	return c.Resilience.Validate()
}
