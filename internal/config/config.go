package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/MeronDaniel/E-commerce-project/internal/domain"
	pkgconfig "github.com/MeronDaniel/E-commerce-project/pkg/config"
	"github.com/MeronDaniel/E-commerce-project/pkg/money"
)

// Pricing holds the storefront's fixed pricing rules. The view model and the
// sandbox read the same variables so their totals agree.
type Pricing struct {
	FreeShippingThresholdCents int64      `env:"FREE_SHIPPING_THRESHOLD_CENTS" envDefault:"10000"`
	FlatShippingCents          int64      `env:"FLAT_SHIPPING_CENTS" envDefault:"999"`
	TaxRate                    money.Rate `env:"TAX_RATE" envDefault:"0.13"`
}

// Domain converts p to the pricing rules used by ComputeTotals.
func (p Pricing) Domain() domain.PricingConfig {
	return domain.PricingConfig{
		FreeShippingThresholdCents: p.FreeShippingThresholdCents,
		FlatShippingCents:          p.FlatShippingCents,
		TaxRate:                    p.TaxRate.Decimal,
	}
}

// Tracing holds OpenTelemetry settings.
type Tracing struct {
	Enabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

func (t Tracing) validate() error {
	if t.SampleRate < 0 || t.SampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", t.SampleRate)
	}
	return nil
}

// Breaker holds circuit breaker settings for the storefront client.
type Breaker struct {
	FailureRatio float64       `env:"BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	MinRequests  uint32        `env:"BREAKER_MIN_REQUESTS" envDefault:"5"`
	OpenTimeout  time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"15s"`
}

// CartView holds configuration for the cart view model and its CLI.
type CartView struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	APIURL      string `env:"STOREFRONT_API_URL" envDefault:"http://localhost:5000/api"`
	AccessToken string `env:"STOREFRONT_ACCESS_TOKEN"`

	// RequestTimeout bounds each cart operation's network call.
	RequestTimeout time.Duration `env:"CART_REQUEST_TIMEOUT" envDefault:"5s"`
	MaxRetries     int           `env:"HTTP_MAX_RETRIES" envDefault:"2"`

	Breaker Breaker
	Pricing Pricing
	Tracing Tracing
}

// LoadCartView reads the view model configuration from the environment.
func LoadCartView() (*CartView, error) {
	cfg := &CartView{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load cartview config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *CartView) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid STOREFRONT_API_URL: %q", c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("CART_REQUEST_TIMEOUT must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("HTTP_MAX_RETRIES must not be negative")
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	if err := c.Pricing.Domain().Validate(); err != nil {
		return fmt.Errorf("invalid pricing: %w", err)
	}
	return c.Tracing.validate()
}

// Sandbox holds configuration for the local storefront sandbox server.
type Sandbox struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPPort int `env:"SANDBOX_HTTP_PORT" envDefault:"5000"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Redis commands slower than this are logged. Zero disables it.
	RedisSlowThreshold time.Duration `env:"REDIS_SLOW_THRESHOLD" envDefault:"50ms"`

	// Cart TTL in hours (default: 7 days)
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"168"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"sandbox-dev-secret-change-me"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`

	// PromoCodes maps each accepted code to its discount percent.
	PromoCodes map[string]int `env:"SANDBOX_PROMO_CODES" envDefault:"SAVE10:10,WELCOME20:20" envSeparator:"," envKeyValSeparator:":"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	Pricing Pricing
	Tracing Tracing
}

// LoadSandbox reads the sandbox configuration from the environment.
func LoadSandbox() (*Sandbox, error) {
	cfg := &Sandbox{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load sandbox config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Sandbox) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CartTTL < 1 {
		return fmt.Errorf("CART_TTL_HOURS must be at least 1")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	for code, pct := range c.PromoCodes {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("promo %s: discount %d%% out of range", code, pct)
		}
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must be positive")
	}
	if err := c.Pricing.Domain().Validate(); err != nil {
		return fmt.Errorf("invalid pricing: %w", err)
	}
	return c.Tracing.validate()
}

// CartTTLDuration returns CartTTL as a duration.
func (c *Sandbox) CartTTLDuration() time.Duration {
	return time.Duration(c.CartTTL) * time.Hour
}
