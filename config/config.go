// Package config carries the SDK configuration. Values load from the
// environment but may equally be constructed directly by the host app.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/helioapps/purchasekit/errs"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentSandbox    Environment = "sandbox"
)

type Config struct {
	// APIKey authenticates the app against the backend service.
	APIKey string `env:"PURCHASEKIT_API_KEY" validate:"required"`

	BaseURL     string      `env:"PURCHASEKIT_BASE_URL" envDefault:"https://api.purchasekit.dev/v1" validate:"required,url"`
	Environment Environment `env:"PURCHASEKIT_ENVIRONMENT" envDefault:"production" validate:"oneof=production sandbox"`

	// LanguageCode is the BCP 47 code attached to backend requests and
	// used for price formatting. Empty means English.
	LanguageCode string `env:"PURCHASEKIT_LANGUAGE"`

	// BundleID enables local receipt inspection when set.
	BundleID string `env:"PURCHASEKIT_BUNDLE_ID"`

	// AutoFinishTransactions acknowledges verified stream transactions
	// to the provider before forwarding them to the listener.
	AutoFinishTransactions bool `env:"PURCHASEKIT_AUTO_FINISH" envDefault:"true"`

	RequestTimeout   time.Duration `env:"PURCHASEKIT_REQUEST_TIMEOUT" envDefault:"30s"`
	MaxRetryAttempts int           `env:"PURCHASEKIT_MAX_RETRY_ATTEMPTS" envDefault:"3" validate:"min=1"`

	// OfferingsCacheTTL bounds how long fetched offerings are served
	// from cache before the paywall join runs again.
	OfferingsCacheTTL time.Duration `env:"PURCHASEKIT_OFFERINGS_CACHE_TTL" envDefault:"5m"`
}

var validate = validator.New()

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errs.Wrap(err, errs.DomainConfiguration, errs.CodeNotInitialized, "parsing environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast with a configuration error rather than letting a
// half-initialized client limp along.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errs.Wrap(err, errs.DomainConfiguration, errs.CodeNotInitialized, "invalid configuration")
	}
	return nil
}

func (c *Config) IsSandbox() bool {
	return c.Environment == EnvironmentSandbox
}
