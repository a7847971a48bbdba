// Package config manages application configuration from environment
// variables, config.yaml, and default values.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration indicates a fatal construction-time configuration
// problem: a missing credential or an incomplete auto-create request.
// It is never retried.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration. Values can be set via
// environment variables prefixed with GROUPME_ (e.g., GROUPME_API_KEY)
// or through config.yaml.
type Config struct {
	// GroupMe credentials and bot identity
	APIKey      string `mapstructure:"api_key"      validate:"required"`
	BotID       string `mapstructure:"bot_id"`
	GroupID     string `mapstructure:"group_id"`
	CallbackURL string `mapstructure:"callback_url" validate:"omitempty,url"`
	BotName     string `mapstructure:"bot_name"     validate:"required"`
	AvatarURL   string `mapstructure:"avatar_url"   validate:"omitempty,url"`
	AutoCreate  bool   `mapstructure:"auto_create"`

	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls log level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// StorageConfig controls the optional message history store.
type StorageConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path" validate:"required"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"min=1m"`
}

// ServerConfig controls the webhook HTTP server.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"      validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
}

// SchedulerConfig holds the set of scheduled background tasks keyed by
// task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a single scheduled task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}
