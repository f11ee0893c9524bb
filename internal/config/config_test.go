package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, DefaultSignalWindow, cfg.SignalWindow)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
	assert.Equal(t, DefaultAlertCooldown, cfg.AlertCooldown)
	assert.Equal(t, []string{"high", "critical"}, cfg.EnabledLevels)
	assert.Equal(t, []string{"console"}, cfg.Adapters)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "SIGNAL_WINDOW_MS", "300000")
	setEnv(t, "ALERT_LEVELS", "medium,high,critical")
	setEnv(t, "MONITORED_PLATFORMS", "stake.us, Bovada.LV")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.SignalWindow)
	assert.Equal(t, []string{"medium", "high", "critical"}, cfg.EnabledLevels)
	assert.Equal(t, []string{"stake.us", "bovada.lv"}, cfg.MonitoredPlatforms)
}

func TestLoad_UnknownLevel(t *testing.T) {
	setEnv(t, "ALERT_LEVELS", "high,extreme")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown risk level")
}

func TestLoad_UnknownAdapter(t *testing.T) {
	setEnv(t, "ALERT_ADAPTERS", "console,pager")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown adapter")
}

func TestLoad_WebhookAdapterNeedsURL(t *testing.T) {
	setEnv(t, "ALERT_ADAPTERS", "webhook")
	setEnv(t, "ALERT_WEBHOOK_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_WEBHOOK_URL")

	setEnv(t, "ALERT_WEBHOOK_URL", "https://hooks.example.com/tilt")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"webhook"}, cfg.Adapters)
}

func TestLoad_EmailAdapterNeedsSMTPSettings(t *testing.T) {
	setEnv(t, "ALERT_ADAPTERS", "email")
	setEnv(t, "SMTP_ADDR", "smtp.example.com:587")
	setEnv(t, "SMTP_FROM", "alerts@example.com")
	setEnv(t, "SMTP_TO", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP")
}

func TestValidate_SweepIntervalVsTTL(t *testing.T) {
	setEnv(t, "SESSION_TTL_MS", "60000")
	setEnv(t, "SWEEP_INTERVAL_MS", "60000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SWEEP_INTERVAL_MS")
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	setEnv(t, "SIGNAL_WINDOW_MS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSignalWindow, cfg.SignalWindow)
}

func TestIsDevelopmentAndProduction(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}
