// Package config defines the configuration structure for the SunTracker
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved from the OS environment, with an optional .env file for
// local development. Any missing required value or invalid format causes the
// application to fail immediately on startup.
package config

import (
	"time"
)

// Config is the top-level configuration struct for the SunTracker service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"suntracker"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	Geocoder GeocoderConfig
	Provider ProviderConfig
	Limits   LimitsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string   `envconfig:"PORT" default:"8080"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required"`

	// Tuning Parameters
	MaxConns          int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int32         `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// GeocoderConfig holds settings for the Nominatim location resolver.
// Nominatim's usage policy requires an identifying User-Agent.
type GeocoderConfig struct {
	BaseURL   string        `envconfig:"GEOCODER_BASE_URL" default:"https://nominatim.openstreetmap.org" validate:"required,url"`
	UserAgent string        `envconfig:"GEOCODER_USER_AGENT" default:"suntracker/1.0"`
	Timeout   time.Duration `envconfig:"GEOCODER_TIMEOUT" default:"10s"`
}

// ProviderConfig holds settings for the upstream solar-events provider.
type ProviderConfig struct {
	BaseURL    string        `envconfig:"PROVIDER_BASE_URL" default:"https://api.sunrisesunset.io" validate:"required,url"`
	UserAgent  string        `envconfig:"PROVIDER_USER_AGENT" default:"suntracker/1.0"`
	Timeout    time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"15s"`
	MaxRetries int           `envconfig:"PROVIDER_MAX_RETRIES" default:"3"`
	RetryMin   time.Duration `envconfig:"PROVIDER_RETRY_MIN_WAIT" default:"500ms"`
	RetryMax   time.Duration `envconfig:"PROVIDER_RETRY_MAX_WAIT" default:"10s"`
}

// LimitsConfig holds request-shaping limits for the public API.
type LimitsConfig struct {
	// MaxRangeDays caps the number of calendar days a single request may span.
	MaxRangeDays int `envconfig:"MAX_RANGE_DAYS" default:"365" validate:"min=1"`
}
