package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. CAMPAIGN_SERVER_PORT.
const EnvPrefix = "CAMPAIGN"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Batch     BatchConfig     `yaml:"batch" envconfig:"BATCH"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Summary   SummaryConfig   `yaml:"summary" envconfig:"SUMMARY"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// UploadConfig limits what a single request may upload.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes" envconfig:"MAX_BYTES" validate:"gt=0"`
	MaxFiles int   `yaml:"max_files" envconfig:"MAX_FILES" validate:"gt=0"`
}

// BatchConfig controls how cleaning jobs are dispatched.
type BatchConfig struct {
	Workers   int    `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=64"`
	Marker    string `yaml:"marker" envconfig:"MARKER" validate:"required"`
	MatchMode string `yaml:"match_mode" envconfig:"MATCH_MODE" validate:"oneof=contains nfkc"`
}

// StorageConfig selects where uploads and cleaned files are kept.
type StorageConfig struct {
	Backend         string        `yaml:"backend" envconfig:"BACKEND" validate:"oneof=local s3"`
	UploadsDir      string        `yaml:"uploads_dir" envconfig:"UPLOADS_DIR"`
	OutputsDir      string        `yaml:"outputs_dir" envconfig:"OUTPUTS_DIR"`
	Retention       time.Duration `yaml:"retention" envconfig:"RETENTION" validate:"gte=0"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" envconfig:"CLEANUP_INTERVAL" validate:"gte=0"`
	PurgeOnShutdown bool          `yaml:"purge_on_shutdown" envconfig:"PURGE_ON_SHUTDOWN"`
	S3              S3Config      `yaml:"s3" envconfig:"S3"`
}

// S3Config contains S3 or S3-compatible object storage settings.
type S3Config struct {
	Bucket          string `yaml:"bucket" envconfig:"BUCKET"`
	Region          string `yaml:"region" envconfig:"REGION"`
	Endpoint        string `yaml:"endpoint" envconfig:"ENDPOINT" validate:"omitempty,url"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"SECRET_ACCESS_KEY"`
	ForcePathStyle  bool   `yaml:"force_path_style" envconfig:"FORCE_PATH_STYLE"`
	Prefix          string `yaml:"prefix" envconfig:"PREFIX"`
}

// SummaryConfig selects where batch summaries are kept between requests.
type SummaryConfig struct {
	Backend string        `yaml:"backend" envconfig:"BACKEND" validate:"oneof=memory redis"`
	TTL     time.Duration `yaml:"ttl" envconfig:"TTL" validate:"gt=0"`
	Redis   RedisConfig   `yaml:"redis" envconfig:"REDIS"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr      string `yaml:"addr" envconfig:"ADDR"`
	Password  string `yaml:"password" envconfig:"PASSWORD"`
	DB        int    `yaml:"db" envconfig:"DB" validate:"gte=0"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
}

// TelemetryConfig contains tracing and metrics settings.
type TelemetryConfig struct {
	ServiceName   string  `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file at filePath onto cfg.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	c.Summary.Backend = strings.ToLower(c.Summary.Backend)

	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Storage.Backend == "s3" {
		if c.Storage.S3.Bucket == "" || c.Storage.S3.Region == "" {
			return fmt.Errorf("s3 storage requires bucket and region")
		}
	}

	if c.Summary.Backend == "redis" && c.Summary.Redis.Addr == "" {
		return fmt.Errorf("redis summary store requires an address")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Logging.Output != "stdout" && c.Logging.FilePath == "" {
		return fmt.Errorf("log file path is required for output %q", c.Logging.Output)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  4 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"*"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Upload: UploadConfig{
			MaxBytes: 32 << 20, // 32MB
			MaxFiles: 100,
		},
		Batch: BatchConfig{
			Workers:   4,
			Marker:    "キャンペーン",
			MatchMode: "contains",
		},
		Storage: StorageConfig{
			Backend:         "local",
			Retention:       time.Hour,
			CleanupInterval: 10 * time.Minute,
			PurgeOnShutdown: true,
			S3: S3Config{
				Prefix: "campaignclean",
			},
		},
		Summary: SummaryConfig{
			Backend: "memory",
			TTL:     24 * time.Hour,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "campaignclean:batch:",
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "campaign-cleaner",
			Environment:   "development",
			EnableTracing: false,
			EnableMetrics: true,
			SampleRatio:   1.0,
		},
	}
}
