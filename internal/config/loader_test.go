package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/suntracker_test")
}

func TestLoad_DefaultsApplied(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "suntracker", cfg.Service)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)

	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, int32(2), cfg.Database.MinConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.MaxConnLifetime)

	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocoder.BaseURL)
	assert.Equal(t, "https://api.sunrisesunset.io", cfg.Provider.BaseURL)
	assert.Equal(t, 3, cfg.Provider.MaxRetries)
	assert.Equal(t, 365, cfg.Limits.MaxRangeDays)
}

func TestLoad_PinsProcessToUTC(t *testing.T) {
	setRequiredEnv(t)

	_, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, time.Local)
}

func TestLoad_OverridesFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAX_RANGE_DAYS", "30")
	t.Setenv("PROVIDER_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30, cfg.Limits.MaxRangeDays)
	assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoad_MissingDatabaseURLFailsValidation(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "validation", cfgErr.Stage)
}

func TestLoad_InvalidEnvironmentRejected(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production-ish")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "validation", cfgErr.Stage)
}

func TestLoad_MalformedDurationIsParsingError(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PROVIDER_TIMEOUT", "not-a-duration")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "parsing", cfgErr.Stage)
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Stage: "validation", Message: "bad config", Err: errors.New("field required")}
	assert.Contains(t, err.Error(), "[validation]")
	assert.Contains(t, err.Error(), "field required")

	bare := &ConfigError{Stage: "parsing", Message: "bad config"}
	assert.Equal(t, "[parsing] bad config", bare.Error())
}
