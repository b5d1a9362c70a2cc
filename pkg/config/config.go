// Package config loads axine settings from axine.yaml, AXINE_* environment
// variables and defaults, in that order of precedence (flags are applied by the CLI).
package config

import (
	"errors"
	"fmt"
	"strings"

	"axine-go/pkg/codec"

	"github.com/spf13/viper"
)

type Config struct {
	Debug             bool   `mapstructure:"debug"`
	Workers           int    `mapstructure:"workers"`            // 0 means GOMAXPROCS
	ParallelThreshold int    `mapstructure:"parallel_threshold"` // bytes
	Extension         string `mapstructure:"extension"`
	KeyFileName       string `mapstructure:"key_file_name"`
	Compress          bool   `mapstructure:"compress"`
	CompressLevel     string `mapstructure:"compress_level"`
	OutputDir         string `mapstructure:"output_dir"`
	InboxDir          string `mapstructure:"inbox_dir"`
	APIListenAddr     string `mapstructure:"api_listen_address"`
	LogDB             string `mapstructure:"log_db"`
	KeyringPath       string `mapstructure:"keyring_path"`
	MgmtPassword      string `mapstructure:"management_password"` // control socket; empty disables auth
	ConfigFile        string `mapstructure:"config_file"`
}

func DefaultConfig() *Config {
	return &Config{
		Workers:           0,
		ParallelThreshold: 64 * 1024,
		Extension:         ".axine",
		KeyFileName:       "encryption_key.key",
		CompressLevel:     "default",
		OutputDir:         ".",
		APIListenAddr:     ":7780",
		LogDB:             "axine.db",
		KeyringPath:       "keyring.db",
		ConfigFile:        "axine.yaml",
	}
}

// LoadConfig reads the configuration. An explicit path must exist; without one
// the usual locations are searched and a missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	v.SetDefault("debug", cfg.Debug)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("parallel_threshold", cfg.ParallelThreshold)
	v.SetDefault("extension", cfg.Extension)
	v.SetDefault("key_file_name", cfg.KeyFileName)
	v.SetDefault("compress", cfg.Compress)
	v.SetDefault("compress_level", cfg.CompressLevel)
	v.SetDefault("output_dir", cfg.OutputDir)
	v.SetDefault("inbox_dir", cfg.InboxDir)
	v.SetDefault("api_listen_address", cfg.APIListenAddr)
	v.SetDefault("log_db", cfg.LogDB)
	v.SetDefault("keyring_path", cfg.KeyringPath)
	v.SetDefault("management_password", cfg.MgmtPassword)

	v.SetEnvPrefix("AXINE") // AXINE_WORKERS, AXINE_COMPRESS, ...
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		cfg.ConfigFile = path
	} else {
		v.SetConfigName(strings.TrimSuffix(cfg.ConfigFile, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/axine-go/")
		v.AddConfigPath("$HOME/.axine-go")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	} else {
		cfg.ConfigFile = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must be >= 0, got %d", c.Workers)
	}
	if c.ParallelThreshold < 0 {
		return fmt.Errorf("config: parallel_threshold must be >= 0, got %d", c.ParallelThreshold)
	}
	if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
		return fmt.Errorf("config: extension must start with a dot, got %q", c.Extension)
	}
	if c.KeyFileName == "" {
		return errors.New("config: key_file_name is empty")
	}
	return nil
}

// CodecOptions turns the tuning keys into codec options. Workers == 0 keeps the
// codec default of one worker per CPU.
func (c *Config) CodecOptions() []codec.Option {
	opts := []codec.Option{codec.WithParallelThreshold(c.ParallelThreshold)}
	if c.Workers > 0 {
		opts = append(opts, codec.WithWorkers(c.Workers))
	}
	return opts
}
