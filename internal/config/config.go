// Package config loads server settings from defaults, an optional YAML file
// and RICHDOCS_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is prepended to every environment override, e.g. RICHDOCS_ADDR.
const EnvPrefix = "RICHDOCS"

// Config holds the process configuration.
type Config struct {
	Addr              string `mapstructure:"addr"`
	HistorySize       int    `mapstructure:"history_size"`
	UndoDepth         int    `mapstructure:"undo_depth"`
	SnapshotThreshold int    `mapstructure:"snapshot_threshold"`
	LogLevel          string `mapstructure:"log_level"`
	AccessControl     bool   `mapstructure:"access_control"`
}

// Load reads configuration. An empty path searches for config.yaml in the
// working directory and ./config; a missing file there is not an error.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("addr", ":8080")
	v.SetDefault("history_size", 100)
	v.SetDefault("undo_depth", 20)
	v.SetDefault("snapshot_threshold", 50)
	v.SetDefault("log_level", "info")
	v.SetDefault("access_control", true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports settings the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}

	if c.HistorySize < 1 {
		return fmt.Errorf("history_size must be positive, got %d", c.HistorySize)
	}

	if c.UndoDepth < 0 {
		return fmt.Errorf("undo_depth must not be negative, got %d", c.UndoDepth)
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log_level: %w", err)
	}

	return level, nil
}
