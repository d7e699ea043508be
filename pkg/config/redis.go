package config

import (
	"fmt"
	"strings"
	"time"
)

type RedisConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Addr           string        `koanf:"addr"`
	Password       string        `koanf:"password"`
	DB             int           `koanf:"db"`
	Timeout        time.Duration `koanf:"timeout"`
	IdempotencyTTL time.Duration `koanf:"idempotencyttl"`
}

// String returns a string representation of the Redis configuration with the password masked.
func (c *RedisConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Redis ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  addr: %s\n", c.Addr))
	if c.Password != "" {
		b.WriteString("  password: xxxxx\n")
	}
	b.WriteString(fmt.Sprintf("  db: %d\n", c.DB))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  idempotencyttl: %s\n", c.IdempotencyTTL))
	return b.String()
}

func (c *RedisConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis address is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("redis timeout must be greater than zero")
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("redis idempotency TTL must be greater than zero")
	}
	return nil
}
