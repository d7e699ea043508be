package config

import (
	"fmt"
	"strings"
	"time"
)

// LogConfig selects the slog level and output encoding.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

func (c *LogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Log ---\n")
	b.WriteString(fmt.Sprintf("  level: %s\n", c.Level))
	b.WriteString(fmt.Sprintf("  format: %s\n", c.Format))
	return b.String()
}

func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Level)
	}
	switch c.Format {
	case "":
		c.Format = LogFormatJSON
	case LogFormatJSON, LogFormatText:
	default:
		return fmt.Errorf("log: unknown format %q, want %s or %s", c.Format, LogFormatJSON, LogFormatText)
	}
	return nil
}

// PProfConfig controls the debug listener. The profile rates feed runtime.SetMutexProfileFraction
// and runtime.SetBlockProfileRate, which is how contention on the reservation locks shows up.
type PProfConfig struct {
	Enabled              bool   `koanf:"enabled"`
	Addr                 string `koanf:"addr"`
	MutexProfileFraction int    `koanf:"mutexprofilefraction"`
	BlockProfileRate     int    `koanf:"blockprofilerate"`
}

func (c *PProfConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- PProf ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	if c.Enabled {
		b.WriteString(fmt.Sprintf("  addr: %s\n", c.Addr))
		b.WriteString(fmt.Sprintf("  mutexprofilefraction: %d\n", c.MutexProfileFraction))
		b.WriteString(fmt.Sprintf("  blockprofilerate: %d\n", c.BlockProfileRate))
	}
	return b.String()
}

func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("pprof: enabled without an address")
	}
	if c.MutexProfileFraction < 0 || c.BlockProfileRate < 0 {
		return fmt.Errorf("pprof: profile rates must not be negative")
	}
	return nil
}

// ProbesConfig describes the file probes watched by the container runtime.
type ProbesConfig struct {
	Enabled           bool          `koanf:"enabled"`
	ReadinessFileName string        `koanf:"readinessfilename"`
	LivenessFileName  string        `koanf:"livenessfilename"`
	LivenessInterval  time.Duration `koanf:"livenessinterval"`
}

func (c *ProbesConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Probes ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	if c.Enabled {
		b.WriteString(fmt.Sprintf("  readinessfilename: %s\n", c.ReadinessFileName))
		b.WriteString(fmt.Sprintf("  livenessfilename: %s\n", c.LivenessFileName))
		b.WriteString(fmt.Sprintf("  livenessinterval: %s\n", c.LivenessInterval))
	}
	return b.String()
}

func (c *ProbesConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ReadinessFileName == "" || c.LivenessFileName == "" {
		return fmt.Errorf("probes: readiness and liveness file names are required")
	}
	if c.ReadinessFileName == c.LivenessFileName {
		return fmt.Errorf("probes: readiness and liveness must use different files")
	}
	if c.LivenessInterval <= 0 {
		return fmt.Errorf("probes: livenessinterval must be greater than zero")
	}
	return nil
}

// ShutdownConfig bounds graceful shutdown. DrainDelay keeps serving after the readiness
// probe is withdrawn, so the load balancer stops routing before connections close.
type ShutdownConfig struct {
	Timeout    time.Duration `koanf:"timeout"`
	DrainDelay time.Duration `koanf:"draindelay"`
}

func (c *ShutdownConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Shutdown ---\n")
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  draindelay: %s\n", c.DrainDelay))
	return b.String()
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown: timeout is not configured")
	}
	if c.DrainDelay < 0 || c.DrainDelay >= c.Timeout {
		return fmt.Errorf("shutdown: draindelay %s must be non-negative and shorter than timeout %s", c.DrainDelay, c.Timeout)
	}
	return nil
}
