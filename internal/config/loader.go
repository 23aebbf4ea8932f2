package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")

		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := viper.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	// Environment variables take precedence over the file
	applyEnvironmentOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvironmentOverrides applies environment variable overrides to config
func applyEnvironmentOverrides(cfg *Config) {
	// Catalog configuration
	if host := os.Getenv("CATALOG_HOST"); host != "" {
		cfg.Catalog.Host = host
	}
	if port := os.Getenv("CATALOG_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Catalog.Port = p
		}
	}
	if db := os.Getenv("CATALOG_DATABASE"); db != "" {
		cfg.Catalog.Database = db
	}
	if user := os.Getenv("CATALOG_USER"); user != "" {
		cfg.Catalog.User = user
	}
	if password := os.Getenv("CATALOG_PASSWORD"); password != "" {
		cfg.Catalog.Password = password
	}

	// Redis configuration
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Redis.Enabled = true
		cfg.Redis.Host = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Redis.Port = p
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	// Target configuration
	if user := os.Getenv("TARGET_ADMIN_USER"); user != "" {
		cfg.Target.AdminUser = user
	}
	if password := os.Getenv("TARGET_ADMIN_PASSWORD"); password != "" {
		cfg.Target.AdminPassword = password
	}

	// Logging configuration
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}
