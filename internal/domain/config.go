package domain

import (
	"time"
)

// Configuration Models

// Config represents the main application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Store       StoreConfig       `mapstructure:"store"`
	Interpreter InterpreterConfig `mapstructure:"interpreter"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Review      ReviewConfig      `mapstructure:"review"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// StoreConfig represents record store configuration: where the patient
// roster and trial rule documents live.
type StoreConfig struct {
	PatientsFile   string `mapstructure:"patients_file"`
	TrialsDir      string `mapstructure:"trials_dir"`
	TrialCacheSize int    `mapstructure:"trial_cache_size"`
}

// InterpreterConfig represents the text-interpretation service configuration.
type InterpreterConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// CacheConfig represents the optional redis cache for interpretation
// results. Disabled by default; the matching core itself is cache-free.
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	RedisURL   string        `mapstructure:"redis_url"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// ReviewConfig represents the annotation store configuration.
// Backend is "sqlite" (embedded, default) or "postgres".
type ReviewConfig struct {
	Backend        string `mapstructure:"backend"`
	SQLitePath     string `mapstructure:"sqlite_path"`
	DatabaseURL    string `mapstructure:"database_url"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
