package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the crossplot service
type Config struct {
	// Server configuration
	HTTPPort    int    `env:"PORT" envDefault:"8080"`
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	TriggerMode string `env:"TRIGGER_MODE" envDefault:"batch"`

	// Object storage configuration
	Storage StorageConfig

	// Local artifacts and collector command
	Artifacts ArtifactConfig
	Refresh   RefreshConfig
	Plot      PlotConfig

	// Redis configuration (optional)
	Redis RedisConfig

	// Trigger lock and records
	Lock LockConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// StorageConfig holds S3-compatible object storage configuration
type StorageConfig struct {
	Endpoint  string `env:"MINIO_SERVER_URL"`
	AccessKey string `env:"MINIO_ROOT_USER"`
	SecretKey string `env:"MINIO_ROOT_PASSWORD"`
	Bucket    string `env:"MINIO_BUCKET_NAME"`
	Secure    bool   `env:"MINIO_SECURE" envDefault:"false"`
	Region    string `env:"MINIO_REGION"`
}

// ArtifactConfig holds local file paths and their object keys
type ArtifactConfig struct {
	WorkDir       string `env:"WORK_DIR" envDefault:"."`
	DataFile      string `env:"DATA_FILE" envDefault:"data.csv"`
	PlotFile      string `env:"PLOT_FILE" envDefault:"plot.svg"`
	DataObjectKey string `env:"DATA_OBJECT_KEY" envDefault:"data.csv"`
	PlotObjectKey string `env:"PLOT_OBJECT_KEY" envDefault:"plot.svg"`
}

// RefreshConfig describes the external collector invocation
type RefreshConfig struct {
	Command   string `env:"REFRESH_COMMAND" envDefault:"crossword"`
	TokenFlag string `env:"REFRESH_TOKEN_FLAG" envDefault:"-t"`
	DateFlag  string `env:"REFRESH_DATE_FLAG" envDefault:"-s"`
}

// PlotConfig holds chart rendering settings
type PlotConfig struct {
	ValueColumn string  `env:"PLOT_VALUE_COLUMN" envDefault:"solve_time_secs"`
	Width       float64 `env:"PLOT_WIDTH" envDefault:"10"`
	Height      float64 `env:"PLOT_HEIGHT" envDefault:"5"`
}

// RedisConfig holds Redis connection configuration. An empty Addr selects
// in-memory lock and record storage.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// LockConfig holds trigger lock and record retention settings
type LockConfig struct {
	TTL           time.Duration `env:"LOCK_TTL" envDefault:"15m"`
	RetryInterval time.Duration `env:"LOCK_RETRY_INTERVAL" envDefault:"500ms"`
	RecordTTL     time.Duration `env:"RECORD_TTL" envDefault:"24h"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	Refresh  time.Duration `env:"REFRESH_TIMEOUT" envDefault:"10m"`
	Storage  time.Duration `env:"STORAGE_TIMEOUT" envDefault:"60s"`
	Trigger  time.Duration `env:"TRIGGER_TIMEOUT" envDefault:"15m"`
	Shutdown time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	// 0 disables the gRPC health server
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	if c.Storage.Endpoint == "" {
		return fmt.Errorf("MINIO_SERVER_URL is required")
	}
	if c.Storage.AccessKey == "" {
		return fmt.Errorf("MINIO_ROOT_USER is required")
	}
	if c.Storage.SecretKey == "" {
		return fmt.Errorf("MINIO_ROOT_PASSWORD is required")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("MINIO_BUCKET_NAME is required")
	}

	if c.Refresh.Command == "" {
		return fmt.Errorf("refresh command is required")
	}
	if c.Artifacts.DataFile == "" || c.Artifacts.PlotFile == "" {
		return fmt.Errorf("data and plot file names are required")
	}
	if c.Artifacts.DataObjectKey == "" || c.Artifacts.PlotObjectKey == "" {
		return fmt.Errorf("data and plot object keys are required")
	}

	if c.TriggerMode != "batch" && c.TriggerMode != "stream" {
		return fmt.Errorf("invalid trigger mode: %s (must be batch or stream)", c.TriggerMode)
	}

	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return fmt.Errorf("plot dimensions must be positive")
	}

	for name, d := range map[string]time.Duration{
		"REFRESH_TIMEOUT": c.Timeouts.Refresh,
		"STORAGE_TIMEOUT": c.Timeouts.Storage,
		"TRIGGER_TIMEOUT": c.Timeouts.Trigger,
		"LOCK_TTL":        c.Lock.TTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

// DataPath returns the local data file path
func (c *Config) DataPath() string {
	return filepath.Join(c.Artifacts.WorkDir, c.Artifacts.DataFile)
}

// PlotPath returns the local plot file path
func (c *Config) PlotPath() string {
	return filepath.Join(c.Artifacts.WorkDir, c.Artifacts.PlotFile)
}
