package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Inventory  InventoryConfig  `yaml:"inventory"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Watcher    WatcherConfig    `yaml:"watcher"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" env:"LAB_PORT"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" env:"LAB_RATE_LIMIT_PER_SEC"`
	RateLimitBurst  int     `yaml:"rate_limit_burst" env:"LAB_RATE_LIMIT_BURST"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds" env:"LAB_CACHE_TTL_SECONDS"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string        `yaml:"driver" env:"LAB_DB_DRIVER"` // postgres or sqlite
	DSN                    string        `yaml:"dsn" env:"LAB_DB_DSN"`
	MaxOpenConns           int           `yaml:"max_open_conns" env:"LAB_DB_MAX_OPEN_CONNS"`
	MaxIdleConns           int           `yaml:"max_idle_conns" env:"LAB_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetimeMinutes int           `yaml:"conn_max_lifetime_minutes"`
	OpTimeoutMillis        int           `yaml:"op_timeout_ms" env:"LAB_DB_OP_TIMEOUT_MS"`
	OpTimeout              time.Duration `yaml:"-"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret" env:"LAB_JWT_SECRET"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

// InventoryConfig describes the seeded workstation pool.
type InventoryConfig struct {
	TotalSystems    int `yaml:"total_systems"`
	HighTierSystems int `yaml:"high_tier_systems"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" env:"LAB_VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" env:"LAB_VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// WatcherConfig controls the store revision poller that refreshes dashboards.
type WatcherConfig struct {
	Enabled         bool          `yaml:"enabled" env:"LAB_WATCHER_ENABLED"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level" env:"LAB_LOG_LEVEL"`
	Format string `yaml:"format" env:"LAB_LOG_FORMAT"` // text or json
}

// Load reads the configuration from the given path and applies environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.OpTimeoutMillis <= 0 {
		cfg.Database.OpTimeoutMillis = 5000
	}
	cfg.Database.OpTimeout = time.Duration(cfg.Database.OpTimeoutMillis) * time.Millisecond

	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 12
	}

	if cfg.Inventory.TotalSystems <= 0 {
		cfg.Inventory.TotalSystems = 33
	}
	if cfg.Inventory.HighTierSystems <= 0 {
		cfg.Inventory.HighTierSystems = 14
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}

	if cfg.Watcher.IntervalSeconds <= 0 {
		cfg.Watcher.IntervalSeconds = 10
	}
	cfg.Watcher.Interval = time.Duration(cfg.Watcher.IntervalSeconds) * time.Second

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate rejects configurations the server cannot start with.
func (cfg *Config) Validate() error {
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be 'postgres' or 'sqlite', got %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if cfg.Inventory.HighTierSystems > cfg.Inventory.TotalSystems {
		return fmt.Errorf("inventory.high_tier_systems (%d) exceeds inventory.total_systems (%d)",
			cfg.Inventory.HighTierSystems, cfg.Inventory.TotalSystems)
	}
	return nil
}
