package config

import (
	"fmt"
	"strings"
	"time"
)

type CacheConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	SweepInterval time.Duration `koanf:"sweepinterval"`
}

// String returns a string representation of the inventory cache configuration.
func (c *CacheConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Inventory Cache ---\n")
	b.WriteString(fmt.Sprintf("  ttl: %s\n", c.TTL))
	b.WriteString(fmt.Sprintf("  sweepinterval: %s\n", c.SweepInterval))
	return b.String()
}

func (c *CacheConfig) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("cache TTL must be greater than zero")
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("cache sweep interval must not be negative")
	}
	return nil
}
