package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "http://localhost:8080", cfg.ShortURLBase)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 8, cfg.ShortCodeLength)
	assert.False(t, cfg.SeedDemoData)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":3000")
	t.Setenv("BASE_URL", "http://short.example.com")
	t.Setenv("TOKEN_TTL", "15m")
	t.Setenv("SHORT_CODE_LENGTH", "10")
	t.Setenv("SEED_DEMO_DATA", "true")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "http://short.example.com", cfg.ShortURLBase)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.ShortCodeLength)
	assert.True(t, cfg.SeedDemoData)
}

func TestRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestRejectsTooShortCodeLength(t *testing.T) {
	t.Setenv("SHORT_CODE_LENGTH", "2")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestRejectsNonBase64SigningKey(t *testing.T) {
	t.Setenv("TOKEN_SIGNING_KEY", "not base64!")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}
