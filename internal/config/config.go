// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Tracing
	OTLPEndpoint string

	// Ingest settings
	RateLimitRPM       int
	MonitoredPlatforms []string // empty means monitor everything

	// Scoring settings
	SignalWindow  time.Duration // how long a signal keeps contributing to the score
	SessionTTL    time.Duration // idle time before a session is evicted
	SweepInterval time.Duration // how often the eviction sweep runs

	// Alerting settings
	AlertCooldown  time.Duration // minimum time between alerts for one session
	AdapterTimeout time.Duration // per-adapter send timeout
	EnabledLevels  []string      // risk levels that trigger alerts
	Adapters       []string      // adapter names to notify

	// Adapter settings
	WebhookURL        string
	WebhookSecret     string
	DiscordWebhookURL string
	SMTPAddr          string // host:port
	SMTPFrom          string
	SMTPTo            string
}

// Defaults
const (
	DefaultPort          = "8080"
	DefaultEnv           = "development"
	DefaultLogLevel      = "info"
	DefaultRateLimitRPM  = 300
	DefaultSignalWindow  = 10 * time.Minute
	DefaultSessionTTL    = 30 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultAlertCooldown = 5 * time.Minute
	DefaultAdapterTO     = 5 * time.Second
)

// knownLevels are the risk levels an alert can be configured for.
var knownLevels = map[string]bool{
	"low": true, "medium": true, "high": true, "critical": true,
}

// knownAdapters are the adapter names the dispatcher can construct.
var knownAdapters = map[string]bool{
	"console": true, "webhook": true, "discord": true, "email": true,
}

// Load reads configuration from environment variables.
// It loads a .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:       int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
		MonitoredPlatforms: getEnvList("MONITORED_PLATFORMS"),
		SignalWindow:       getEnvDuration("SIGNAL_WINDOW_MS", DefaultSignalWindow),
		SessionTTL:         getEnvDuration("SESSION_TTL_MS", DefaultSessionTTL),
		SweepInterval:      getEnvDuration("SWEEP_INTERVAL_MS", DefaultSweepInterval),
		AlertCooldown:      getEnvDuration("ALERT_COOLDOWN_MS", DefaultAlertCooldown),
		AdapterTimeout:     getEnvDuration("ADAPTER_TIMEOUT_MS", DefaultAdapterTO),
		EnabledLevels:      getEnvListDefault("ALERT_LEVELS", []string{"high", "critical"}),
		Adapters:           getEnvListDefault("ALERT_ADAPTERS", []string{"console"}),
		WebhookURL:         os.Getenv("ALERT_WEBHOOK_URL"),
		WebhookSecret:      os.Getenv("ALERT_WEBHOOK_SECRET"),
		DiscordWebhookURL:  os.Getenv("DISCORD_WEBHOOK_URL"),
		SMTPAddr:           os.Getenv("SMTP_ADDR"),
		SMTPFrom:           os.Getenv("SMTP_FROM"),
		SMTPTo:             os.Getenv("SMTP_TO"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the alerting configuration is well-formed.
// A misconfigured alert path is fatal: silently running with no alerting
// defeats the purpose of the system.
func (c *Config) Validate() error {
	for _, level := range c.EnabledLevels {
		if !knownLevels[strings.ToLower(level)] {
			return fmt.Errorf("ALERT_LEVELS: unknown risk level %q", level)
		}
	}

	for _, name := range c.Adapters {
		if !knownAdapters[strings.ToLower(name)] {
			return fmt.Errorf("ALERT_ADAPTERS: unknown adapter %q", name)
		}
	}

	if c.AlertCooldown <= 0 {
		return fmt.Errorf("ALERT_COOLDOWN_MS must be positive")
	}
	if c.AdapterTimeout <= 0 {
		return fmt.Errorf("ADAPTER_TIMEOUT_MS must be positive")
	}
	if c.SignalWindow <= 0 {
		return fmt.Errorf("SIGNAL_WINDOW_MS must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MS must be positive")
	}

	// The sweep must leave margin so it never evicts a session mid-update.
	if c.SweepInterval >= c.SessionTTL {
		return fmt.Errorf("SWEEP_INTERVAL_MS must be shorter than SESSION_TTL_MS")
	}

	// Adapters that need settings must have them at startup.
	for _, name := range c.Adapters {
		switch strings.ToLower(name) {
		case "webhook":
			if c.WebhookURL == "" {
				return fmt.Errorf("ALERT_WEBHOOK_URL is required when the webhook adapter is enabled")
			}
		case "discord":
			if c.DiscordWebhookURL == "" {
				return fmt.Errorf("DISCORD_WEBHOOK_URL is required when the discord adapter is enabled")
			}
		case "email":
			if c.SMTPAddr == "" || c.SMTPFrom == "" || c.SMTPTo == "" {
				return fmt.Errorf("SMTP_ADDR, SMTP_FROM and SMTP_TO are required when the email adapter is enabled")
			}
		}
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration reads a millisecond count from the environment.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

func getEnvListDefault(key string, fallback []string) []string {
	if list := getEnvList(key); list != nil {
		return list
	}
	return fallback
}
