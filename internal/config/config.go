package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. DEKDEK_SERVER_PORT
const EnvPrefix = "DEKDEK"

// Config holds all configuration for the stub backend
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Catalog  CatalogConfig
	Auth     AuthConfig
	Cleanup  CleanupConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds PostgreSQL configuration. An empty DSN selects the in-memory repository.
type DatabaseConfig struct {
	DSN        string
	AdminDSN   string
	Migrations string
}

// CatalogConfig holds the assessment item catalog location
type CatalogConfig struct {
	Dir string
}

// AuthConfig holds token issuing configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// CleanupConfig holds cleanup worker configuration
type CleanupConfig struct {
	Interval              time.Duration
	NotificationRetention time.Duration
}

// LogConfig selects the zap level and encoding
type LogConfig struct {
	Level  string
	Format string
}

// ClientConfig holds all configuration for the command line client
type ClientConfig struct {
	API           APIConfig
	Store         StoreConfig
	Log           LogConfig
	Session       SessionConfig
	Notifications NotificationsConfig
}

// APIConfig points the client at a backend
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// StoreConfig selects where the identity strings are persisted
type StoreConfig struct {
	Backend string // file, redis or memory
	Path    string
	Redis   RedisConfig
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// SessionConfig tunes the assessment session screen
type SessionConfig struct {
	MinLoading time.Duration
}

// NotificationsConfig tunes the notification poller
type NotificationsConfig struct {
	PollInterval time.Duration
}

// LoadServer loads the stub backend configuration from the environment and an optional YAML file
func LoadServer(path string) (*Config, error) {
	v, err := newViper(path, func(v *viper.Viper) {
		v.SetDefault("server.host", "0.0.0.0")
		v.SetDefault("server.port", 8080)
		v.SetDefault("database.dsn", "")
		v.SetDefault("database.admin_dsn", "")
		v.SetDefault("database.migrations", "./migrations")
		v.SetDefault("catalog.dir", "./catalog")
		v.SetDefault("auth.jwt_secret", "")
		v.SetDefault("auth.token_ttl", 7*24*time.Hour)
		v.SetDefault("cleanup.interval", 10*time.Minute)
		v.SetDefault("cleanup.notification_retention", 30*24*time.Hour)
		v.SetDefault("log.level", "info")
		v.SetDefault("log.format", "json")
	})
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Database: DatabaseConfig{
			DSN:        v.GetString("database.dsn"),
			AdminDSN:   v.GetString("database.admin_dsn"),
			Migrations: v.GetString("database.migrations"),
		},
		Catalog: CatalogConfig{
			Dir: v.GetString("catalog.dir"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
		Cleanup: CleanupConfig{
			Interval:              v.GetDuration("cleanup.interval"),
			NotificationRetention: v.GetDuration("cleanup.notification_retention"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("jwt secret must be at least 16 characters")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("invalid token ttl: %s", c.Auth.TokenTTL)
	}

	if c.Catalog.Dir == "" {
		return fmt.Errorf("catalog dir is required")
	}

	return nil
}

// LoadClient loads the client configuration from the environment and an optional YAML file
func LoadClient(path string) (*ClientConfig, error) {
	v, err := newViper(path, func(v *viper.Viper) {
		v.SetDefault("api.base_url", "http://localhost:8080")
		v.SetDefault("api.timeout", 30*time.Second)
		v.SetDefault("store.backend", "file")
		v.SetDefault("store.path", defaultStorePath())
		v.SetDefault("store.redis.address", "localhost:6379")
		v.SetDefault("store.redis.password", "")
		v.SetDefault("store.redis.db", 0)
		v.SetDefault("store.redis.prefix", "dekdek")
		v.SetDefault("log.level", "warn")
		v.SetDefault("log.format", "console")
		v.SetDefault("session.min_loading", 300*time.Millisecond)
		v.SetDefault("notifications.poll_interval", 30*time.Second)
	})
	if err != nil {
		return nil, err
	}

	cfg := &ClientConfig{
		API: APIConfig{
			BaseURL: strings.TrimRight(v.GetString("api.base_url"), "/"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Store: StoreConfig{
			Backend: v.GetString("store.backend"),
			Path:    v.GetString("store.path"),
			Redis: RedisConfig{
				Address:  v.GetString("store.redis.address"),
				Password: v.GetString("store.redis.password"),
				DB:       v.GetInt("store.redis.db"),
				Prefix:   v.GetString("store.redis.prefix"),
			},
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Session: SessionConfig{
			MinLoading: v.GetDuration("session.min_loading"),
		},
		Notifications: NotificationsConfig{
			PollInterval: v.GetDuration("notifications.poll_interval"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the client configuration
func (c *ClientConfig) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url is required")
	}

	switch c.Store.Backend {
	case "file":
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the file backend")
		}
	case "redis":
		if c.Store.Redis.Address == "" {
			return fmt.Errorf("redis address is required for the redis backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	if c.Notifications.PollInterval <= 0 {
		return fmt.Errorf("invalid notification poll interval: %s", c.Notifications.PollInterval)
	}

	return nil
}

// Helper functions

func newViper(path string, defaults func(*viper.Viper)) (*viper.Viper, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return v, nil
}

// loadDotEnv loads a .env file if it exists. Variables already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".dekdek-store.yaml"
	}
	return filepath.Join(dir, "dekdek", "store.yaml")
}
