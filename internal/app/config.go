package app

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// PGDSN enables the learning event archive when set.
	PGDSN string `envconfig:"PG_DSN"`

	// RedisAddr enables background jobs and the stats cache when set.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	StatsCacheTTL time.Duration `envconfig:"STATS_CACHE_TTL" default:"30s"`

	CartTTL          time.Duration `envconfig:"CART_TTL" default:"30m"`
	TaxRatePct       float64       `envconfig:"TAX_RATE_PCT" default:"14"`
	PatternThreshold int           `envconfig:"PATTERN_THRESHOLD" default:"5"`

	// SeedDemo loads the demo chart of accounts and sample products on boot.
	SeedDemo bool `envconfig:"SEED_DEMO" default:"true"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
