package config

import (
	"fmt"
	"strings"
	"time"
)

// SubscriberConfig configures the pull consumer that feeds remote stock changes into the local cache.
// Every instance owns a durable consumer named after it, see ConsumerFor. InactiveThreshold lets the
// server drop the consumer of an instance that is gone for good.
type SubscriberConfig struct {
	Stream            string        `koanf:"stream"`
	Subject           string        `koanf:"subject"`
	Consumer          string        `koanf:"consumer"`
	Batch             int           `koanf:"batch"`
	Timeout           time.Duration `koanf:"timeout"`
	Interval          time.Duration `koanf:"interval"`
	Workers           int           `koanf:"workers"`
	MaxDeliver        int           `koanf:"maxdeliver"`
	InactiveThreshold time.Duration `koanf:"inactivethreshold"`
}

var consumerNameReplacer = strings.NewReplacer(".", "-", " ", "-", "*", "-", ">", "-")

// ConsumerFor returns the durable consumer name of instance. NATS forbids '.', '*', '>' and
// whitespace in consumer names, so those become '-'.
func (c *SubscriberConfig) ConsumerFor(instance string) string {
	return c.Consumer + "-" + consumerNameReplacer.Replace(instance)
}

func (c *SubscriberConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS Subscriber ---\n")
	b.WriteString(fmt.Sprintf("  stream: %s\n", c.Stream))
	b.WriteString(fmt.Sprintf("  subject: %s\n", c.Subject))
	b.WriteString(fmt.Sprintf("  consumer: %s-<instance>\n", c.Consumer))
	b.WriteString(fmt.Sprintf("  batch: %d, workers: %d\n", c.Batch, c.Workers))
	b.WriteString(fmt.Sprintf("  timeout: %s, interval: %s\n", c.Timeout, c.Interval))
	b.WriteString(fmt.Sprintf("  maxdeliver: %d\n", c.MaxDeliver))
	b.WriteString(fmt.Sprintf("  inactivethreshold: %s\n", c.InactiveThreshold))
	return b.String()
}

func (c *SubscriberConfig) Validate() error {
	switch {
	case c.Stream == "":
		return fmt.Errorf("subscriber: stream is not configured")
	case c.Subject == "":
		return fmt.Errorf("subscriber: subject is not configured")
	case c.Consumer == "":
		return fmt.Errorf("subscriber: consumer is not configured")
	case c.Batch <= 0 || c.Workers <= 0:
		return fmt.Errorf("subscriber: batch and workers must be greater than zero")
	case c.Timeout <= 0 || c.Interval <= 0:
		return fmt.Errorf("subscriber: timeout and interval must be greater than zero")
	case c.MaxDeliver == 0 || c.MaxDeliver < -1:
		return fmt.Errorf("subscriber: maxdeliver must be positive or -1 for unlimited")
	case c.InactiveThreshold < 0:
		return fmt.Errorf("subscriber: inactivethreshold must not be negative")
	}
	return nil
}
