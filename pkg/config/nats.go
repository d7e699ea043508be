package config

import (
	"fmt"
	"strings"
	"time"
)

// NATSConfig configures the JetStream connection and the stream carrying stock and order events.
// StreamMaxAge bounds retention; stock events are only useful to caches that are running.
type NATSConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Url           string        `koanf:"url"`
	Timeout       time.Duration `koanf:"timeout"`
	MaxReconnects int           `koanf:"maxreconnects"`
	ReconnectWait time.Duration `koanf:"reconnectwait"`
	Stream        string        `koanf:"stream"`
	Subjects      []string      `koanf:"subjects"`
	StreamMaxAge  time.Duration `koanf:"streammaxage"`
}

func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	if !c.Enabled {
		return b.String()
	}
	b.WriteString(fmt.Sprintf("  url: %s\n", c.Url))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  reconnect: %d every %s\n", c.MaxReconnects, c.ReconnectWait))
	b.WriteString(fmt.Sprintf("  stream: %s [%s]\n", c.Stream, strings.Join(c.Subjects, ",")))
	b.WriteString(fmt.Sprintf("  streammaxage: %s\n", c.StreamMaxAge))
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case c.Url == "":
		return fmt.Errorf("nats: url is not configured")
	case c.Timeout <= 0:
		return fmt.Errorf("nats: dial timeout is not configured")
	case c.ReconnectWait < 0 || c.StreamMaxAge < 0:
		return fmt.Errorf("nats: reconnectwait and streammaxage must not be negative")
	case c.Stream == "":
		return fmt.Errorf("nats: stream is not configured")
	case len(c.Subjects) == 0:
		return fmt.Errorf("nats: stream subjects are not configured")
	}
	return nil
}
