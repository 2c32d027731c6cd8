package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    BaseURL  string `env:"LMS_API_BASE_URL" envDefault:"https://lms.example.com"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// LoadFrom parses the given key/value environment instead of the process
// environment. Keys missing from environ fall back to their envDefault.
// CLI flag overrides are layered on top of the real environment this way.
func LoadFrom(cfg any, environ map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Overlay returns the process environment with overrides applied on top.
// Empty override values are ignored so unset flags keep the env value.
func Overlay(overrides map[string]string) map[string]string {
	environ := env.ToMap(os.Environ())
	for k, v := range overrides {
		if v != "" {
			environ[k] = v
		}
	}
	return environ
}
