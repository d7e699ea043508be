package main

import (
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	Grpc config.GrpcClientConfig `koanf:"grpc"`
}

func defaults() map[string]any {
	return map[string]any{
		"grpc.addr":                                          "localhost:50051",
		"grpc.timeout":                                       3 * time.Second,
		"grpc.resilience.retry.maxattempts":                  3,
		"grpc.resilience.retry.initialbackoff":               100 * time.Millisecond,
		"grpc.resilience.circuitbreaker.consecutivefailures": 5,
		"grpc.resilience.circuitbreaker.errorratepercent":    50,
		"grpc.resilience.circuitbreaker.opentimeout":         10 * time.Second,
		"grpc.resilience.circuitbreaker.halfopenrequests":    1,
	}
}

func (c *Config) String() string {
	return c.Grpc.String()
}

func (c *Config) Validate() error {
	return c.Grpc.Validate()
}
