package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends accepted by storage.backend.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// APIConfig holds the remote backend settings.
type APIConfig struct {
	// BaseURL is the REST root, e.g. https://host/api.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds every request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns TimeoutSec as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// StorageConfig selects where client-side state (seen ids, feed, session) lives.
type StorageConfig struct {
	Backend  string `mapstructure:"backend" yaml:"backend"`
	Path     string `mapstructure:"path" yaml:"path"`
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
}

// PollingConfig holds the cadence of each background poll.
type PollingConfig struct {
	ReviewIntervalSec   int `mapstructure:"review_interval_sec" yaml:"review_interval_sec"`
	DashboardIntervalMs int `mapstructure:"dashboard_interval_ms" yaml:"dashboard_interval_ms"`
	MailboxIntervalSec  int `mapstructure:"mailbox_interval_sec" yaml:"mailbox_interval_sec"`
}

func (c PollingConfig) ReviewInterval() time.Duration {
	return time.Duration(c.ReviewIntervalSec) * time.Second
}

func (c PollingConfig) DashboardInterval() time.Duration {
	return time.Duration(c.DashboardIntervalMs) * time.Millisecond
}

func (c PollingConfig) MailboxInterval() time.Duration {
	return time.Duration(c.MailboxIntervalSec) * time.Second
}

// BirthdayConfig controls the upcoming-birthday scan.
type BirthdayConfig struct {
	// Schedule is a cron spec; empty disables the periodic rescan.
	Schedule   string `mapstructure:"schedule" yaml:"schedule"`
	WindowDays int    `mapstructure:"window_days" yaml:"window_days"`
}

// NotificationsConfig sizes the notification feed.
type NotificationsConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

// MailboxConfig describes the optional guest feedback inbox.
// The password is kept in the system keyring, never in this file.
type MailboxConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API           APIConfig           `mapstructure:"api" yaml:"api"`
	Storage       StorageConfig       `mapstructure:"storage" yaml:"storage"`
	Polling       PollingConfig       `mapstructure:"polling" yaml:"polling"`
	Birthday      BirthdayConfig      `mapstructure:"birthday" yaml:"birthday"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Mailbox       MailboxConfig       `mapstructure:"mailbox" yaml:"mailbox"`
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/guestdesk.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "guestdesk")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/guestdesk/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://guest-review-backend.onrender.com/api")
	v.SetDefault("api.timeout_sec", 30)
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.path", filepath.Join(ConfigDir(), "state.db"))
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("polling.review_interval_sec", 5)
	v.SetDefault("polling.dashboard_interval_ms", 1000)
	v.SetDefault("polling.mailbox_interval_sec", 120)
	v.SetDefault("birthday.schedule", "@daily")
	v.SetDefault("birthday.window_days", 7)
	v.SetDefault("notifications.capacity", 20)
	v.SetDefault("mailbox.enabled", false)
	v.SetDefault("mailbox.port", 993)
	v.SetDefault("mailbox.tls", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", filepath.Join(ConfigDir(), "guestdesk.log"))
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *AppConfig {
	v := viper.New()
	setDefaults(v)
	cfg := &AppConfig{}
	// Defaults only; cannot fail on well-typed values.
	_ = v.Unmarshal(cfg)
	return cfg
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
// Environment variables prefixed GUESTDESK_ override file values
// (GUESTDESK_API_BASE_URL, GUESTDESK_STORAGE_BACKEND, ...).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("guestdesk")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints viper cannot express.
func (c *AppConfig) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("storage.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Notifications.Capacity <= 0 {
		return fmt.Errorf("notifications.capacity must be positive, got %d", c.Notifications.Capacity)
	}
	if c.Polling.ReviewIntervalSec <= 0 || c.Polling.DashboardIntervalMs <= 0 {
		return errors.New("polling intervals must be positive")
	}
	if c.Mailbox.Enabled && (c.Mailbox.Host == "" || c.Mailbox.Username == "") {
		return errors.New("mailbox.host and mailbox.username are required when the mailbox is enabled")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("storage", cfg.Storage)
	v.Set("polling", cfg.Polling)
	v.Set("birthday", cfg.Birthday)
	v.Set("notifications", cfg.Notifications)
	v.Set("mailbox", cfg.Mailbox)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
