// Package config loads the process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/vk-watch/pkg/vkapi"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ErrMissingToken is returned when VK_ACCESS_TOKEN is unset or still the
// sample placeholder. It matches vkapi.ErrMissingToken with errors.Is.
var ErrMissingToken = fmt.Errorf("VK_ACCESS_TOKEN: %w", vkapi.ErrMissingToken)

// Config is the complete process configuration.
type Config struct {
	AccessToken string
	APIVersion  string
	BaseURL     string

	// DatabaseURL is the PostgreSQL DSN; empty disables the durable store.
	DatabaseURL string
	// RedisURL is a redis:// URL; empty disables the quota tracker and snapshot cache.
	RedisURL string

	LogLevel  string
	LogPretty bool

	RequestsPerSecond float64
	EntryDelay        time.Duration
	BatchCooldown     time.Duration
	FinalDelay        time.Duration

	WatchInterval time.Duration
	MetricsAddr   string
	SnapshotTTL   time.Duration
}

// Load reads the configuration. A missing .env file is not an error;
// an unparsable value or a missing token is.
func Load(envPath ...string) (*Config, error) {
	if err := godotenv.Load(envPath...); err != nil {
		log.Debug().Err(err).Strs("path", envPath).Msg("No .env file loaded")
	}

	defaults := vkapi.DefaultConfig("")
	var errs []error

	cfg := &Config{
		AccessToken: os.Getenv("VK_ACCESS_TOKEN"),
		APIVersion:  getEnv("API_VERSION", defaults.APIVersion),
		BaseURL:     getEnv("VK_API_BASE_URL", defaults.BaseURL),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
	}

	cfg.LogPretty = getEnvBool("LOG_PRETTY", false, &errs)
	cfg.RequestsPerSecond = getEnvFloat("VK_REQUESTS_PER_SECOND", defaults.RequestsPerSecond, &errs)
	cfg.EntryDelay = getEnvDuration("ENTRY_DELAY", 1*time.Second, &errs)
	cfg.BatchCooldown = getEnvDuration("BATCH_COOLDOWN", 1*time.Second, &errs)
	cfg.FinalDelay = getEnvDuration("FINAL_DELAY", 1*time.Second, &errs)
	cfg.WatchInterval = getEnvDuration("WATCH_INTERVAL", 30*time.Minute, &errs)
	cfg.SnapshotTTL = getEnvDuration("SNAPSHOT_TTL", 24*time.Hour, &errs)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings no run can do without.
func (c *Config) Validate() error {
	if !vkapi.ValidToken(c.AccessToken) {
		return ErrMissingToken
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("WATCH_INTERVAL must be positive, got %s", c.WatchInterval)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("VK_REQUESTS_PER_SECOND must not be negative, got %g", c.RequestsPerSecond)
	}
	return nil
}

// ClientConfig derives the platform client configuration.
func (c *Config) ClientConfig() vkapi.Config {
	cc := vkapi.DefaultConfig(c.AccessToken)
	cc.APIVersion = c.APIVersion
	cc.BaseURL = c.BaseURL
	cc.RequestsPerSecond = c.RequestsPerSecond
	return cc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func getEnvFloat(key string, defaultValue float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return b
}
