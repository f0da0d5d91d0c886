package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfolio/smartfolio/pkg/config"
)

type billingConfig struct {
	Provider  string        `env:"BILLING_PROVIDER" envDefault:"local"`
	TrialDays int           `env:"BILLING_TRIAL_DAYS" envDefault:"14"`
	Timeout   time.Duration `env:"BILLING_PROVIDER_TIMEOUT" envDefault:"15s"`
	AppURL    string        `env:"APP_URL,required"`
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults and overrides", func(t *testing.T) {
		t.Parallel()
		var cfg billingConfig
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{
			"APP_URL":            "https://smartfolio.test",
			"BILLING_TRIAL_DAYS": "7",
		}))
		require.NoError(t, err)
		assert.Equal(t, "local", cfg.Provider)
		assert.Equal(t, 7, cfg.TrialDays)
		assert.Equal(t, 15*time.Second, cfg.Timeout)
		assert.Equal(t, "https://smartfolio.test", cfg.AppURL)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		t.Parallel()
		var cfg billingConfig
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("malformed value fails", func(t *testing.T) {
		t.Parallel()
		var cfg billingConfig
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{
			"APP_URL":            "https://smartfolio.test",
			"BILLING_TRIAL_DAYS": "two weeks",
		}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("prefix is prepended", func(t *testing.T) {
		t.Parallel()
		var cfg billingConfig
		err := config.Load(&cfg,
			config.WithPrefix("TEST_"),
			config.WithEnvironment(map[string]string{"TEST_APP_URL": "https://prefixed.test"}),
		)
		require.NoError(t, err)
		assert.Equal(t, "https://prefixed.test", cfg.AppURL)
	})

	t.Run("nil pointer is rejected", func(t *testing.T) {
		t.Parallel()
		var cfg *billingConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("must load panics on failure", func(t *testing.T) {
		t.Parallel()
		var cfg billingConfig
		assert.Panics(t, func() { config.MustLoad(&cfg, config.WithEnvironment(map[string]string{})) })
	})
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SMARTFOLIO_CONFIG_TEST=from-file\n"), 0o600))
	t.Setenv("SMARTFOLIO_CONFIG_PRESET", "kept")

	require.NoError(t, config.LoadEnv(filepath.Join(dir, "missing.env"), path))
	t.Cleanup(func() { _ = os.Unsetenv("SMARTFOLIO_CONFIG_TEST") })

	assert.Equal(t, "from-file", os.Getenv("SMARTFOLIO_CONFIG_TEST"))
	assert.Equal(t, "kept", os.Getenv("SMARTFOLIO_CONFIG_PRESET"))
}
