package config

import (
	"fmt"
	"strings"
	"time"
)

// HTTPConfig configures the storefront REST listener.
type HTTPConfig struct {
	Port           int `koanf:"port"`
	MaxHeaderBytes int `koanf:"maxheaderbytes"`
	Timeout        struct {
		Read       time.Duration `koanf:"read"`
		Write      time.Duration `koanf:"write"`
		Idle       time.Duration `koanf:"idle"`
		ReadHeader time.Duration `koanf:"readheader"`
	} `koanf:"timeout"`
}

func (c *HTTPConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Port)
	}
	if c.MaxHeaderBytes < 0 {
		return fmt.Errorf("server.maxheaderbytes must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"read": c.Timeout.Read, "write": c.Timeout.Write, "idle": c.Timeout.Idle, "readheader": c.Timeout.ReadHeader,
	} {
		if d <= 0 {
			return fmt.Errorf("server.timeout.%s must be greater than zero, got %s", name, d)
		}
	}
	if c.Timeout.ReadHeader > c.Timeout.Read {
		return fmt.Errorf("server.timeout.readheader %s exceeds server.timeout.read %s", c.Timeout.ReadHeader, c.Timeout.Read)
	}
	return nil
}

func (c *HTTPConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- HTTP Server ---\n")
	b.WriteString(fmt.Sprintf("  port: %d\n", c.Port))
	b.WriteString(fmt.Sprintf("  maxheaderbytes: %d\n", c.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  timeout: read=%s write=%s idle=%s readheader=%s\n",
		c.Timeout.Read, c.Timeout.Write, c.Timeout.Idle, c.Timeout.ReadHeader))
	return b.String()
}
