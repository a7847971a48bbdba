package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load loads and validates configuration from:
// 1. Default values
// 2. config.yaml file
// 3. GROUPME_* environment variables
func Load() (*Config, error) {
	setDefaults()

	if err := readConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to load config file: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

// readConfig initializes and loads the configuration using viper.
// A missing config file is not an error; defaults and environment
// variables still apply.
func readConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("GROUPME")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %v", err)
		}
	}

	return nil
}

// setDefaults sets default values for optional configuration parameters.
func setDefaults() {
	// Keys must be known to viper for environment-only values to
	// survive Unmarshal, so the credential keys get empty defaults.
	viper.SetDefault("api_key", "")
	viper.SetDefault("bot_id", "")
	viper.SetDefault("group_id", "")
	viper.SetDefault("callback_url", "")
	viper.SetDefault("avatar_url", "")

	viper.SetDefault("bot_name", DefaultBotName)
	viper.SetDefault("auto_create", true)

	viper.SetDefault("log.level", DefaultLogLevel)
	viper.SetDefault("log.format", DefaultLogFormat)

	viper.SetDefault("storage.enabled", false)
	viper.SetDefault("storage.path", DefaultStoragePath)
	viper.SetDefault("storage.conn_max_lifetime", DefaultStorageConnMaxLifetime)

	viper.SetDefault("server.listen_addr", DefaultServerListenAddr)
	viper.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	viper.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	viper.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)

	viper.SetDefault("scheduler.tasks", map[string]TaskConfig{
		"sql_maintenance": {Enabled: true, Schedule: DefaultMaintenanceSchedule},
	})
}
