package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kitchen-storefront/internal/domain/cart"
	"github.com/xenking/kitchen-storefront/internal/session"
)

// Config holds the complete application configuration, loadable from
// environment variables (KITCHEN_ prefix), flags, or YAML config files.
// It is built once at startup and passed explicitly into Run; nothing in
// the application reads configuration from package state.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (KITCHEN_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL    string `usage:"Redis connection URL (KITCHEN_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	Pricing     PricingConfig
	Retry       RetryConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// PricingConfig controls totals derivation. Values are decimal strings so no
// float rounding sneaks in through the environment.
type PricingConfig struct {
	TaxRate     string `default:"0.08" usage:"Sales tax rate applied to the subtotal" flag:"tax-rate"`
	DeliveryFee string `default:"5.00" usage:"Flat delivery fee for non-empty orders" flag:"delivery-fee"`
}

// RetryConfig controls the bounded write retry loop of the persistence
// gateway.
type RetryConfig struct {
	Attempts        int           `default:"3"  usage:"Total write attempts before surfacing a persistence failure"`
	InitialInterval time.Duration `default:"1s" usage:"Wait before the first retry; doubles each attempt" flag:"retry-interval"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// CartPricing parses the pricing configuration into domain terms.
func (c *Config) CartPricing() (cart.Pricing, error) {
	taxRate, err := decimal.NewFromString(c.Pricing.TaxRate)
	if err != nil {
		return cart.Pricing{}, errors.Wrap(err, "parse tax rate")
	}
	fee, err := decimal.NewFromString(c.Pricing.DeliveryFee)
	if err != nil {
		return cart.Pricing{}, errors.Wrap(err, "parse delivery fee")
	}
	return cart.Pricing{TaxRate: taxRate, DeliveryFee: cart.FlatFee(fee)}, nil
}

// RetryPolicy maps the retry configuration into session terms.
func (c *Config) RetryPolicy() session.RetryPolicy {
	return session.RetryPolicy{
		Attempts:        c.Retry.Attempts,
		InitialInterval: c.Retry.InitialInterval,
		Multiplier:      2,
	}
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KITCHEN",
		Files:     []string{"config.yaml", "/etc/kitchen/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set KITCHEN_DATABASE_URL or DATABASE_URL")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("redis URL is required: set KITCHEN_REDIS_URL or REDIS_URL")
	}
	if cfg.Retry.Attempts < 1 {
		return nil, errors.New("retry attempts must be at least 1")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's KITCHEN_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
