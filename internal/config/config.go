package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// Manager loads and validates application configuration using Viper.
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/trialmatch/")

	viper.SetEnvPrefix("TRIALMATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars cover everything.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Record store defaults
	viper.SetDefault("store.patients_file", "./data/sample_patients.csv")
	viper.SetDefault("store.trials_dir", "./data/trials")
	viper.SetDefault("store.trial_cache_size", 128)

	// Interpretation service defaults. The api_key default is empty but must
	// be registered so AutomaticEnv surfaces TRIALMATCH_INTERPRETER_API_KEY
	// through Unmarshal.
	viper.SetDefault("interpreter.base_url", "https://api.openai.com/v1")
	viper.SetDefault("interpreter.api_key", "")
	viper.SetDefault("interpreter.model", "gpt-4o-mini")
	viper.SetDefault("interpreter.timeout", "60s")
	viper.SetDefault("interpreter.rate_limit", 2)

	// Cache defaults (disabled unless configured)
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.default_ttl", "24h")

	// Review store defaults. database_url is registered empty for the same
	// env-binding reason as the interpreter api_key.
	viper.SetDefault("review.backend", "sqlite")
	viper.SetDefault("review.sqlite_path", "./data/reviews.db")
	viper.SetDefault("review.database_url", "")
	viper.SetDefault("review.migrations_path", "./migrations")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetStoreConfig returns record store configuration
func (m *Manager) GetStoreConfig() *domain.StoreConfig {
	return &m.config.Store
}

// GetInterpreterConfig returns interpretation service configuration
func (m *Manager) GetInterpreterConfig() *domain.InterpreterConfig {
	return &m.config.Interpreter
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Store.PatientsFile == "" {
		return fmt.Errorf("store.patients_file is required")
	}
	if config.Store.TrialsDir == "" {
		return fmt.Errorf("store.trials_dir is required")
	}
	if config.Store.TrialCacheSize <= 0 {
		return fmt.Errorf("store.trial_cache_size must be positive")
	}

	if config.Interpreter.BaseURL == "" {
		return fmt.Errorf("interpreter.base_url is required")
	}

	switch strings.ToLower(config.Review.Backend) {
	case "sqlite":
		if config.Review.SQLitePath == "" {
			return fmt.Errorf("review.sqlite_path is required for the sqlite backend")
		}
	case "postgres":
		if config.Review.DatabaseURL == "" {
			return fmt.Errorf("review.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown review backend: %s", config.Review.Backend)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}
