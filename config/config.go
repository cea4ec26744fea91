// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the settlectl configuration.
//
// Values are resolved in priority order: built-in defaults, then the YAML
// configuration file, then SETTLE_-prefixed environment variables
// (SETTLE_LOG_LEVEL, SETTLE_DATA_DIR, ...).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bitfsorg/settle-go/account"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "SETTLE"

// Rule store backends.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendPebble = "pebble"
)

// Config holds the settlectl configuration.
type Config struct {
	DataDir    string `mapstructure:"data_dir" yaml:"data_dir" json:"data_dir"`
	Admin      string `mapstructure:"admin" yaml:"admin" json:"admin"`
	Backend    string `mapstructure:"backend" yaml:"backend" json:"backend"`
	CacheSize  int    `mapstructure:"cache_size" yaml:"cache_size" json:"cache_size"`
	Network    string `mapstructure:"network" yaml:"network" json:"network"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFile    string `mapstructure:"log_file" yaml:"log_file" json:"log_file"`
	ArchiveDir string `mapstructure:"archive_dir" yaml:"archive_dir" json:"archive_dir"`
}

// DefaultDataDir returns ~/.settle, or .settle in the working directory if
// the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".settle"
	}
	return filepath.Join(home, ".settle")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:   DefaultDataDir(),
		Backend:   BackendBolt,
		CacheSize: 1024,
		Network:   "mainnet",
		LogLevel:  "info",
	}
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("admin", d.Admin)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("network", d.Network)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("archive_dir", d.ArchiveDir)
}

// LoadConfig reads the YAML file at path over the defaults and applies
// environment overrides. The result is not validated.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	data := append([]byte("# settlectl configuration\n"), body...)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// AdminID parses the configured administrator.
func (c Config) AdminID() (account.ID, error) {
	if strings.TrimSpace(c.Admin) == "" {
		return account.Zero, fmt.Errorf("%w: not set", ErrInvalidAdmin)
	}
	id, err := account.Parse(c.Admin)
	if err != nil {
		return account.Zero, fmt.Errorf("%w: %w", ErrInvalidAdmin, err)
	}
	if id.IsZero() {
		return account.Zero, fmt.Errorf("%w: null identifier", ErrInvalidAdmin)
	}
	return id, nil
}

// Mainnet reports whether addresses render for mainnet.
func (c Config) Mainnet() bool { return c.Network != "testnet" }

// SlogLevel maps LogLevel to a slog.Level, defaulting to Info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// RulesPath returns where the configured backend keeps its data. It is
// empty for the memory backend.
func (c Config) RulesPath() string {
	switch c.Backend {
	case BackendBolt:
		return filepath.Join(c.DataDir, "rules.db")
	case BackendPebble:
		return filepath.Join(c.DataDir, "rules.pebble")
	}
	return ""
}
