package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"partscatalog/sitemap/internal/domain"
	"partscatalog/sitemap/internal/sitemap"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Sitemap  SitemapConfig  `mapstructure:"sitemap"`
	Ping     PingConfig     `mapstructure:"ping"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	Table    string `mapstructure:"table"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig holds Redis connection details. Without redis, run state and
// the location registry are kept in process.
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	Database  int    `mapstructure:"database"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SitemapConfig controls generation
type SitemapConfig struct {
	BaseURL          string               `mapstructure:"base_url"`
	OutputDir        string               `mapstructure:"output_dir"`
	ShardCapacity    int                  `mapstructure:"shard_capacity"`
	BatchSize        int                  `mapstructure:"batch_size"`
	BatchesPerSecond int                  `mapstructure:"batches_per_second"`
	SampleSize       int                  `mapstructure:"sample_size"`
	ResolveScanLimit int                  `mapstructure:"resolve_scan_limit"`
	ProgressInterval int                  `mapstructure:"progress_interval"`
	StaticPages      []sitemap.StaticPage `mapstructure:"static_pages"`
}

// PingConfig lists search-engine endpoints notified after a batch run
type PingConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Endpoints  []string      `mapstructure:"endpoints"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// Load loads configuration from a YAML file with environment variable
// overrides. An empty path looks for config.yaml in the current directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config.yaml file not found in current directory")
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate rejects configurations no run could succeed with.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("database.name is required"))
	}
	if c.Database.User == "" {
		errs = append(errs, errors.New("database.user is required"))
	}
	if c.Sitemap.BaseURL == "" {
		errs = append(errs, errors.New("sitemap.base_url is required"))
	} else if !strings.HasPrefix(c.Sitemap.BaseURL, "http://") && !strings.HasPrefix(c.Sitemap.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("sitemap.base_url %q must be an absolute http(s) URL", c.Sitemap.BaseURL))
	}
	if c.Sitemap.ShardCapacity < 1 || c.Sitemap.ShardCapacity > domain.MaxShardEntries {
		errs = append(errs, fmt.Errorf("sitemap.shard_capacity must be between 1 and %d, got %d", domain.MaxShardEntries, c.Sitemap.ShardCapacity))
	}
	if c.Sitemap.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("sitemap.batch_size must be positive, got %d", c.Sitemap.BatchSize))
	}
	if c.Sitemap.OutputDir == "" {
		errs = append(errs, errors.New("sitemap.output_dir is required"))
	}
	if c.Ping.Enabled && len(c.Ping.Endpoints) == 0 {
		errs = append(errs, errors.New("ping.endpoints must not be empty when ping is enabled"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.request_timeout", 30*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "catalog")
	v.SetDefault("database.user", "catalog_user")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.table", "parts")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.key_prefix", "sitemap:")

	v.SetDefault("sitemap.base_url", "")
	v.SetDefault("sitemap.output_dir", "./public")
	v.SetDefault("sitemap.shard_capacity", domain.MaxShardEntries)
	v.SetDefault("sitemap.batch_size", 2000)
	v.SetDefault("sitemap.batches_per_second", 0)
	v.SetDefault("sitemap.sample_size", 1000)
	v.SetDefault("sitemap.resolve_scan_limit", 500)
	v.SetDefault("sitemap.progress_interval", 10)

	v.SetDefault("ping.enabled", false)
	v.SetDefault("ping.timeout", 10*time.Second)
	v.SetDefault("ping.max_retries", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
