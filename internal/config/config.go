// Package config provides typed application configuration loaded from a
// YAML file, environment variables, and defaults via Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultAppName         = "campusdash"
	DefaultAppEnv          = "development"
	DefaultLogLevel        = "info"
	DefaultServerAddress   = ":8085"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultRawLogPath      = "data/raw_records.jsonl"
	DefaultItemStorePath   = "data/structured_items.json"
	DefaultStatusDBPath    = "data/item_status.db"
	DefaultEnrichURL       = "http://localhost:11434"
	DefaultEnrichModel     = "qwen2.5:7b"
	DefaultEnrichChunkSize = 5
	DefaultEnrichTimeout   = 180 * time.Second
)

// Config holds all configuration for the campusdash service.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Server     ServerConfig     `mapstructure:"server"`
	Data       DataConfig       `mapstructure:"data"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

// ServerConfig holds the dashboard API server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DataConfig holds the pipeline's file and database paths.
type DataConfig struct {
	// RawLogPath is the crawler's append-only raw record log (NDJSON).
	RawLogPath string `mapstructure:"raw_log_path"`

	// ItemStorePath is the structured database file (JSON array).
	ItemStorePath string `mapstructure:"item_store_path"`

	// StatusDBPath is the sqlite completion-status side table.
	StatusDBPath string `mapstructure:"status_db_path"`

	// Semester is an optional label stamped onto raw records at crawl
	// time (e.g. "2025-2").
	Semester string `mapstructure:"semester"`
}

// EnrichmentConfig holds the optional LLM enrichment settings. When Enabled
// is false the pipeline runs in deterministic rule-based mode.
type EnrichmentConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	URL       string        `mapstructure:"url"`
	Model     string        `mapstructure:"model"`
	ChunkSize int           `mapstructure:"chunk_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SetDefaults registers every default value on v. Call before reading the
// config file so that file and environment values win.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.name", DefaultAppName)
	v.SetDefault("app.environment", DefaultAppEnv)
	v.SetDefault("app.debug", false)
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("server.address", DefaultServerAddress)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.idle_timeout", DefaultIdleTimeout)
	v.SetDefault("data.raw_log_path", DefaultRawLogPath)
	v.SetDefault("data.item_store_path", DefaultItemStorePath)
	v.SetDefault("data.status_db_path", DefaultStatusDBPath)
	v.SetDefault("data.semester", "")
	v.SetDefault("enrichment.enabled", false)
	v.SetDefault("enrichment.url", DefaultEnrichURL)
	v.SetDefault("enrichment.model", DefaultEnrichModel)
	v.SetDefault("enrichment.chunk_size", DefaultEnrichChunkSize)
	v.SetDefault("enrichment.timeout", DefaultEnrichTimeout)
}

// Load builds a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Data.RawLogPath == "" {
		return errors.New("data.raw_log_path must not be empty")
	}
	if c.Data.ItemStorePath == "" {
		return errors.New("data.item_store_path must not be empty")
	}
	if c.Server.Address == "" {
		return errors.New("server.address must not be empty")
	}
	if c.Enrichment.Enabled {
		if c.Enrichment.URL == "" {
			return errors.New("enrichment.url must not be empty when enrichment is enabled")
		}
		if c.Enrichment.Model == "" {
			return errors.New("enrichment.model must not be empty when enrichment is enabled")
		}
		if c.Enrichment.ChunkSize <= 0 {
			return fmt.Errorf("enrichment.chunk_size must be positive, got %d", c.Enrichment.ChunkSize)
		}
	}
	return nil
}
