package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
	DriverMemory    = "memory"
)

type DatabaseConfig struct {
	Driver       string          `koanf:"driver"`
	URL          string          `koanf:"url"`
	Timeout      time.Duration   `koanf:"timeout"`
	QueryTimeout time.Duration   `koanf:"querytimeout"`
	Migrate      bool            `koanf:"migrate"`
	Migrations   string          `koanf:"migrations"`
	Firestore    FirestoreConfig `koanf:"firestore"`
}

type FirestoreConfig struct {
	ProjectID       string `koanf:"projectid"`
	CredentialsFile string `koanf:"credentialsfile"`
	Collection      string `koanf:"collection"`
}

// String returns a string representation of the database configuration with credentials masked.
func (c *DatabaseConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Database ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	b.WriteString(fmt.Sprintf("  url: %s\n", MaskURL(c.URL)))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  querytimeout: %s\n", c.QueryTimeout))
	b.WriteString(fmt.Sprintf("  migrate: %t\n", c.Migrate))
	if c.Driver == DriverFirestore {
		b.WriteString(fmt.Sprintf("  firestore.projectid: %s\n", c.Firestore.ProjectID))
		b.WriteString(fmt.Sprintf("  firestore.collection: %s\n", c.Firestore.Collection))
	}
	return b.String()
}

func (c *DatabaseConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("database connect timeout must be greater than zero")
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("database query timeout must be greater than zero")
	}
	switch c.Driver {
	case DriverPostgres:
		if c.URL == "" {
			return fmt.Errorf("database URL is not configured")
		}
		if !isValidPostgresURL(c.URL) {
			return fmt.Errorf("database URL must start with 'postgres://': %s", MaskURL(c.URL))
		}
		if c.Migrate && c.Migrations == "" {
			return fmt.Errorf("database migrations path is not configured")
		}
	case DriverFirestore:
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("firestore project ID is not configured")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Driver)
	}
	return nil
}

// isValidPostgresURL checks if the provided URL is a valid PostgreSQL URL
func isValidPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://")
}

// MaskURL hides the password part of a connection URL.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
