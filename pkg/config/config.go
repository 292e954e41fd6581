package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for mergetab-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Upload ceilings and batching
	Upload UploadConfig `yaml:"upload"`

	// Schema matching thresholds
	Matching MatchingConfig `yaml:"matching"`

	// Optional AI table naming (any OpenAI-compatible endpoint)
	Naming NamingConfig `yaml:"naming"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"mergetab"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"mergetab_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// UploadConfig holds file ingestion ceilings. Files beyond any ceiling are
// rejected up front with an explanatory message instead of failing
// mid-stream.
type UploadConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb" env:"UPLOAD_MAX_FILE_SIZE_MB" env-default:"100"`
	MaxRows       int `yaml:"max_rows" env:"UPLOAD_MAX_ROWS" env-default:"50000"`
	MaxColumns    int `yaml:"max_columns" env:"UPLOAD_MAX_COLUMNS" env-default:"200"`
	BatchSize     int `yaml:"batch_size" env:"UPLOAD_BATCH_SIZE" env-default:"1000"`
}

// MaxFileSizeBytes returns the file size ceiling in bytes.
func (c *UploadConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// MatchingConfig holds the similarity thresholds used by the group matcher.
// MinSimilarity is the floor for merging a file into an existing group;
// HighSimilarity gates the fast path in group creation and mapping
// auto-confirmation.
type MatchingConfig struct {
	MinSimilarity  float64 `yaml:"min_similarity" env:"MATCH_MIN_SIMILARITY" env-default:"0.85"`
	HighSimilarity float64 `yaml:"high_similarity" env:"MATCH_HIGH_SIMILARITY" env-default:"0.95"`
}

// NamingConfig holds the optional AI naming endpoint. When unset the naming
// service falls back to deterministic names without making any calls.
type NamingConfig struct {
	BaseURL string `yaml:"base_url" env:"NAMING_BASE_URL" env-default:""`
	Model   string `yaml:"model" env:"NAMING_MODEL" env-default:""`
	APIKey  string `yaml:"-" env:"NAMING_API_KEY"` // Secret - not in YAML
}

// Enabled reports whether an AI naming endpoint is configured.
func (c *NamingConfig) Enabled() bool {
	return c.BaseURL != "" && c.Model != ""
}

// Load reads configuration from config.yaml with environment variable
// overrides. When config.yaml does not exist, configuration comes from the
// environment alone. The version parameter is injected at build time and
// set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Matching.MinSimilarity <= 0 || c.Matching.MinSimilarity > 1 {
		return fmt.Errorf("min_similarity must be in (0,1], got %v", c.Matching.MinSimilarity)
	}
	if c.Matching.HighSimilarity < c.Matching.MinSimilarity || c.Matching.HighSimilarity > 1 {
		return fmt.Errorf("high_similarity must be in [min_similarity, 1], got %v", c.Matching.HighSimilarity)
	}
	if c.Upload.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.Upload.BatchSize)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
