// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	wooKey := cfg.Platforms.WooCommerce.ConsumerKey
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
)

// Config represents the entire application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Sync          SyncConfig          `yaml:"sync"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Platforms     PlatformsConfig     `yaml:"platforms"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// SyncConfig holds the pacing of sync jobs
type SyncConfig struct {
	DurationSeconds int           `yaml:"duration_seconds"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	ProgressStep    int           `yaml:"progress_step"`
	LogRetention    int           `yaml:"log_retention"` // 0 keeps every entry
}

// Schedule frequencies
const (
	FrequencyManual = "manual"
	FrequencyHourly = "hourly"
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// ScheduleConfig holds automatic sync settings
type ScheduleConfig struct {
	Frequency      string `yaml:"frequency"`
	ErrorThreshold int    `yaml:"error_threshold"`
}

// Interval returns the period of scheduled syncs, or 0 for manual.
func (s ScheduleConfig) Interval() time.Duration {
	switch s.Frequency {
	case FrequencyHourly:
		return time.Hour
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

// PlatformsConfig holds per-platform credentials and limits
type PlatformsConfig struct {
	LojaIntegrada LojaIntegradaConfig `yaml:"loja_integrada"`
	WooCommerce   WooCommerceConfig   `yaml:"woocommerce"`
}

// Enabled returns the enabled platforms in display order.
func (p PlatformsConfig) Enabled() []platform.ID {
	var out []platform.ID
	if p.LojaIntegrada.Enabled {
		out = append(out, platform.LojaIntegrada)
	}
	if p.WooCommerce.Enabled {
		out = append(out, platform.WooCommerce)
	}
	return out
}

// LojaIntegradaConfig holds Loja Integrada API settings
type LojaIntegradaConfig struct {
	Enabled   bool    `yaml:"enabled"`
	APIKey    string  `yaml:"api_key"`
	AppKey    string  `yaml:"app_key"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second
	Burst     int     `yaml:"burst"`
}

// WooCommerceConfig holds WooCommerce REST API settings
type WooCommerceConfig struct {
	Enabled        bool    `yaml:"enabled"`
	BaseURL        string  `yaml:"base_url"`
	ConsumerKey    string  `yaml:"consumer_key"`
	ConsumerSecret string  `yaml:"consumer_secret"`
	RateLimit      float64 `yaml:"rate_limit"` // requests per second
	Burst          int     `yaml:"burst"`
}

// CatalogConfig holds the product seed file location
type CatalogConfig struct {
	SeedPath string `yaml:"seed_path"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used for any value a file leaves out.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Storage: StorageConfig{
			DatabasePath: "inventory_sync.db",
		},
		Sync: SyncConfig{
			DurationSeconds: 50,
			TickInterval:    time.Second,
			ProgressStep:    2,
		},
		Schedule: ScheduleConfig{
			Frequency:      FrequencyManual,
			ErrorThreshold: 10,
		},
		Platforms: PlatformsConfig{
			LojaIntegrada: LojaIntegradaConfig{Enabled: true, RateLimit: 2, Burst: 1},
			WooCommerce:   WooCommerceConfig{Enabled: true, RateLimit: 5, Burst: 5},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${WOOCOMMERCE_CONSUMER_KEY})
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyCredentialEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	def := Default()
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", def.Server.Port),
			AllowedOrigins: def.Server.AllowedOrigins,
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("INVENTORY_SYNC_DB_PATH", def.Storage.DatabasePath),
		},
		Sync: SyncConfig{
			DurationSeconds: getEnvInt("SYNC_DURATION_SECONDS", def.Sync.DurationSeconds),
			TickInterval:    getEnvDuration("SYNC_TICK_INTERVAL", def.Sync.TickInterval),
			ProgressStep:    getEnvInt("SYNC_PROGRESS_STEP", def.Sync.ProgressStep),
			LogRetention:    getEnvInt("SYNC_LOG_RETENTION", def.Sync.LogRetention),
		},
		Schedule: ScheduleConfig{
			Frequency:      getEnv("SYNC_FREQUENCY", def.Schedule.Frequency),
			ErrorThreshold: getEnvInt("SYNC_ERROR_THRESHOLD", def.Schedule.ErrorThreshold),
		},
		Platforms: PlatformsConfig{
			LojaIntegrada: LojaIntegradaConfig{
				Enabled:   getEnvBool("LOJA_INTEGRADA_ENABLED", true),
				RateLimit: def.Platforms.LojaIntegrada.RateLimit,
				Burst:     def.Platforms.LojaIntegrada.Burst,
			},
			WooCommerce: WooCommerceConfig{
				Enabled:   getEnvBool("WOOCOMMERCE_ENABLED", true),
				RateLimit: def.Platforms.WooCommerce.RateLimit,
				Burst:     def.Platforms.WooCommerce.Burst,
			},
		},
		Catalog: CatalogConfig{
			SeedPath: getEnv("CATALOG_SEED_PATH", ""),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", def.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", def.Observability.Logging.Format),
			},
		},
	}
	cfg.applyCredentialEnv()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Storage.DatabasePath == "" {
		errs = append(errs, errors.New("storage.database_path is required"))
	}
	if c.Sync.DurationSeconds <= 0 {
		errs = append(errs, fmt.Errorf("sync.duration_seconds must be positive: %d", c.Sync.DurationSeconds))
	}
	if c.Sync.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("sync.tick_interval must be positive: %s", c.Sync.TickInterval))
	}
	if c.Sync.ProgressStep < 1 || c.Sync.ProgressStep > 100 {
		errs = append(errs, fmt.Errorf("sync.progress_step must be between 1 and 100: %d", c.Sync.ProgressStep))
	}
	if c.Sync.LogRetention < 0 {
		errs = append(errs, fmt.Errorf("sync.log_retention cannot be negative: %d", c.Sync.LogRetention))
	}
	switch c.Schedule.Frequency {
	case FrequencyManual, FrequencyHourly, FrequencyDaily, FrequencyWeekly:
	default:
		errs = append(errs, fmt.Errorf("schedule.frequency unknown: %q", c.Schedule.Frequency))
	}
	if c.Schedule.ErrorThreshold < 0 {
		errs = append(errs, fmt.Errorf("schedule.error_threshold cannot be negative: %d", c.Schedule.ErrorThreshold))
	}
	if c.Platforms.LojaIntegrada.RateLimit <= 0 || c.Platforms.WooCommerce.RateLimit <= 0 {
		errs = append(errs, errors.New("platform rate_limit must be positive"))
	}
	return errors.Join(errs...)
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

// applyCredentialEnv fills platform credentials the config leaves empty from
// the environment.
func (c *Config) applyCredentialEnv() {
	loja := &c.Platforms.LojaIntegrada
	loja.APIKey = c.GetAPIKey(loja.APIKey, "LOJA_INTEGRADA_API_KEY", "LOJA_INTEGRADA_CHAVE_API")
	loja.AppKey = c.GetAPIKey(loja.AppKey, "LOJA_INTEGRADA_APP_KEY", "LOJA_INTEGRADA_CHAVE_APLICACAO")

	woo := &c.Platforms.WooCommerce
	woo.BaseURL = c.GetAPIKey(woo.BaseURL, "WOOCOMMERCE_BASE_URL", "WOOCOMMERCE_URL")
	woo.ConsumerKey = c.GetAPIKey(woo.ConsumerKey, "WOOCOMMERCE_CONSUMER_KEY")
	woo.ConsumerSecret = c.GetAPIKey(woo.ConsumerSecret, "WOOCOMMERCE_CONSUMER_SECRET")
}

// GetAPIKey returns configValue, or the first non-empty environment variable
// of envVarNames.
// Usage: GetAPIKey(cfg.Platforms.WooCommerce.ConsumerKey, "WOOCOMMERCE_CONSUMER_KEY")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	// First, try the config value
	if configValue != "" {
		return configValue
	}

	// Then try each environment variable in order
	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}
