package config

import (
	"errors"
	"time"
)

// Config represents the load shaper configuration
type Config struct {
	Catalog Catalog `mapstructure:"catalog"`
	Redis   Redis   `mapstructure:"redis"`
	Cache   Cache   `mapstructure:"cache"`
	Target  Target  `mapstructure:"target"`
	Shaper  Shaper  `mapstructure:"shaper"`
	Ops     Ops     `mapstructure:"ops"`
	Logging Logging `mapstructure:"logging"`
}

// Catalog represents the PostgreSQL shard catalog configuration
type Catalog struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MinConnections int    `mapstructure:"min_connections"`
}

// Redis represents the shared directory cache configuration
type Redis struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Cache represents directory cache tuning
type Cache struct {
	DirectoryTTL time.Duration `mapstructure:"directory_ttl"`
	MaxSize      int           `mapstructure:"max_size"`
}

// Target represents the tenant database load endpoint configuration
type Target struct {
	AdminUser        string        `mapstructure:"admin_user"`
	AdminPassword    string        `mapstructure:"admin_password"`
	Port             int           `mapstructure:"port"`
	ProcedureTimeout time.Duration `mapstructure:"procedure_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	MaxSubmitRate    float64       `mapstructure:"max_submit_rate"`
}

// Shaper represents the load session defaults
type Shaper struct {
	Intensity        int           `mapstructure:"intensity"`
	Duration         time.Duration `mapstructure:"duration"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	StopTimeout      time.Duration `mapstructure:"stop_timeout"`
	OneShot          bool          `mapstructure:"one_shot"`
	LongerBursts     bool          `mapstructure:"longer_bursts"`
	SingleTenant     bool          `mapstructure:"single_tenant"`
	SingleTenantName string        `mapstructure:"single_tenant_name"`
	SingleTenantDTU  int           `mapstructure:"single_tenant_dtu"`
	ProfilePath      string        `mapstructure:"profile_path"`
	Seed             uint64        `mapstructure:"seed"`
}

// Ops represents the health/status/metrics HTTP surface
type Ops struct {
	Enabled     bool   `mapstructure:"enabled"`
	Port        int    `mapstructure:"port"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// Logging represents logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Catalog.Host == "" {
		return errors.New("catalog.host is required")
	}
	if c.Catalog.Database == "" {
		return errors.New("catalog.database is required")
	}
	if c.Catalog.User == "" {
		return errors.New("catalog.user is required")
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return errors.New("redis.host is required when redis is enabled")
	}
	if c.Target.AdminUser == "" {
		return errors.New("target.admin_user is required")
	}
	if c.Target.Port <= 0 || c.Target.Port > 65535 {
		return errors.New("target.port must be between 1 and 65535")
	}
	if c.Shaper.Intensity < 1 || c.Shaper.Intensity > 100 {
		return errors.New("shaper.intensity must be between 1 and 100")
	}
	if c.Shaper.Duration <= 0 {
		return errors.New("shaper.duration must be positive")
	}
	if c.Shaper.SingleTenant && (c.Shaper.SingleTenantDTU < 1 || c.Shaper.SingleTenantDTU > 100) {
		return errors.New("shaper.single_tenant_dtu must be between 1 and 100")
	}
	if c.Ops.Enabled && (c.Ops.Port <= 0 || c.Ops.Port > 65535) {
		return errors.New("ops.port must be between 1 and 65535")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return nil
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	return &Config{
		Catalog: Catalog{
			Host:           "localhost",
			Port:           5432,
			Database:       "tenant_catalog",
			User:           "catalog",
			Password:       "",
			MaxConnections: 10,
			MinConnections: 2,
		},
		Redis: Redis{
			Enabled: false,
			Host:    "localhost",
			Port:    6379,
			DB:      0,
		},
		Cache: Cache{
			DirectoryTTL: 5 * time.Minute,
			MaxSize:      10000,
		},
		Target: Target{
			AdminUser:        "loadadmin",
			Port:             5432,
			ProcedureTimeout: 2 * time.Minute,
			MaxRetries:       3,
			RetryBackoff:     500 * time.Millisecond,
			MaxSubmitRate:    0,
		},
		Shaper: Shaper{
			Intensity:       40,
			Duration:        120 * time.Minute,
			PollInterval:    10 * time.Second,
			StopTimeout:     30 * time.Second,
			SingleTenantDTU: 95,
		},
		Ops: Ops{
			Enabled:     true,
			Port:        9090,
			MetricsPath: "/metrics",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}
