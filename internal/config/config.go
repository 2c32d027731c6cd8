// Package config loads the settings shared by lmsctl and lmsweb.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dev-tahsin7/LMS-TestApp/internal/api"
	"github.com/dev-tahsin7/LMS-TestApp/internal/session"
	pkgconfig "github.com/dev-tahsin7/LMS-TestApp/pkg/config"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/database"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/httpclient"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/kafka"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/middleware"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/tracing"
)

// Session backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all configuration for the LMS client.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// LMS API
	APIBaseURL string        `env:"LMS_API_BASE_URL" envDefault:"https://lms-backend-xpwc.onrender.com"`
	APITimeout time.Duration `env:"LMS_API_TIMEOUT" envDefault:"30s"`

	// Outbound rate limit; 0 disables it.
	APIRateLimit float64 `env:"LMS_API_RATE_LIMIT_RPS" envDefault:"0"`
	APIRateBurst int     `env:"LMS_API_RATE_LIMIT_BURST" envDefault:"1"`

	// Circuit breaker around the LMS API
	CBMaxRequests  uint32  `env:"LMS_CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"LMS_CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"LMS_CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"LMS_CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"LMS_CB_MIN_REQUESTS" envDefault:"5"`

	// Session store
	SessionBackend   string `env:"LMS_SESSION_BACKEND" envDefault:"file"`
	SessionFile      string `env:"LMS_SESSION_FILE"`
	SessionKeyPrefix string `env:"LMS_SESSION_KEY_PREFIX" envDefault:"lms:session:"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Web companion
	HTTPPort          int      `env:"LMS_WEB_HTTP_PORT" envDefault:"8080"`
	LoginPath         string   `env:"LMS_LOGIN_PATH" envDefault:"/login"`
	RequireSession    bool     `env:"LMS_WEB_REQUIRE_SESSION" envDefault:"false"`
	CORSOrigins       []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Slow session-store operation logging
	SlowOpThresholdMs int `env:"LOG_SLOW_OP_MS" envDefault:"200"`

	// Activity events; publishing is off when no brokers are set.
	EventBrokers []string `env:"LMS_EVENTS_BROKERS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load lms config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWith reads configuration from the environment with overrides layered
// on top. lmsctl passes its global flags this way.
func LoadWith(overrides map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, pkgconfig.Overlay(overrides)); err != nil {
		return nil, fmt.Errorf("load lms config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	u, err := url.ParseRequestURI(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid LMS_API_BASE_URL %q: %w", c.APIBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("LMS_API_BASE_URL must be http or https, got %q", u.Scheme)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("LMS_API_TIMEOUT must be positive, got %s", c.APITimeout)
	}
	if c.APIRateLimit < 0 {
		return fmt.Errorf("LMS_API_RATE_LIMIT_RPS must not be negative, got %f", c.APIRateLimit)
	}
	if c.APIRateLimit > 0 && c.APIRateBurst < 1 {
		return fmt.Errorf("LMS_API_RATE_LIMIT_BURST must be at least 1, got %d", c.APIRateBurst)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1.0 {
		return fmt.Errorf("LMS_CB_FAILURE_RATIO must be in (0.0, 1.0], got %f", c.CBFailureRatio)
	}
	switch c.SessionBackend {
	case BackendFile, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("LMS_SESSION_BACKEND must be one of file, redis, memory, got %q", c.SessionBackend)
	}
	if c.SessionBackend == BackendRedis && c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required for the redis session backend")
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.LoginPath == "" || c.LoginPath[0] != '/' {
		return fmt.Errorf("LMS_LOGIN_PATH must be an absolute path, got %q", c.LoginPath)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// IsDevelopment reports whether the client runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// SessionFilePath returns the file store location, defaulting to the user
// config directory.
func (c *Config) SessionFilePath() (string, error) {
	if c.SessionFile != "" {
		return c.SessionFile, nil
	}
	return session.DefaultFilePath()
}

// APIConfig returns the API client configuration.
func (c *Config) APIConfig() api.Config {
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = c.APITimeout
	httpCfg.MaxRetries = 0

	return api.Config{
		BaseURL: c.APIBaseURL,
		HTTP:    httpCfg,
		Breaker: httpclient.CircuitBreakerConfig{
			Name:         "lms-api",
			MaxRequests:  c.CBMaxRequests,
			Interval:     time.Duration(c.CBInterval) * time.Second,
			Timeout:      time.Duration(c.CBTimeout) * time.Second,
			FailureRatio: c.CBFailureRatio,
			MinRequests:  c.CBMinRequests,
		},
		RateLimit: c.APIRateLimit,
		RateBurst: c.APIRateBurst,
	}
}

// RedisConfig returns the redis connection settings.
func (c *Config) RedisConfig() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Host = c.RedisHost
	rc.Port = c.RedisPort
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}

// TracingConfig returns the tracer settings for the named binary.
func (c *Config) TracingConfig(serviceName string) tracing.Config {
	tc := tracing.DefaultConfig(serviceName)
	tc.Environment = c.Environment
	tc.OTLPEndpoint = c.OTELEndpoint
	tc.SampleRate = c.OTELSampleRate
	tc.Enabled = c.OTELEnabled
	return tc
}

// CORSConfig returns the CORS policy for the web companion.
func (c *Config) CORSConfig() middleware.CORSConfig {
	cc := middleware.DefaultCORSConfig()
	cc.AllowedOrigins = c.CORSOrigins
	cc.Environment = c.Environment
	return cc
}

// EventsEnabled reports whether activity events are published.
func (c *Config) EventsEnabled() bool {
	return len(c.EventBrokers) > 0
}

// ProducerConfig returns the Kafka producer settings for activity events.
func (c *Config) ProducerConfig() kafka.ProducerConfig {
	return kafka.DefaultProducerConfig(c.EventBrokers)
}

// SlowOpThreshold returns the slow store-operation threshold.
func (c *Config) SlowOpThreshold() time.Duration {
	return time.Duration(c.SlowOpThresholdMs) * time.Millisecond
}
