package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Manifest ManifestConfig `mapstructure:"manifest" yaml:"manifest"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Ledger   LedgerConfig   `mapstructure:"ledger" yaml:"ledger"`
	Status   StatusConfig   `mapstructure:"status" yaml:"status"`
}

type ManifestConfig struct {
	// BaseURL is the directory holding the per-sector download scripts.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type DownloadConfig struct {
	Workers int  `mapstructure:"workers" yaml:"workers"`
	Clobber bool `mapstructure:"clobber" yaml:"clobber"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type LedgerConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type StatusConfig struct {
	// Addr, when set, serves live run progress over HTTP (e.g. ":8311").
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Load reads the optional yaml config file, applies defaults, and lets
// FFIBULK_* environment variables override either.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("manifest.base_url", "https://archive.stsci.edu/missions/tess/download_scripts/sector")
	v.SetDefault("download.workers", 40)
	v.SetDefault("download.clobber", false)
	v.SetDefault("log.path", "ffibulk.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
	v.SetDefault("ledger.path", "ffibulk.db")
	v.SetDefault("status.addr", "")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("FFIBULK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Manifest.BaseURL == "" {
		return fmt.Errorf("manifest base_url is required")
	}
	if c.Download.Workers <= 0 {
		return fmt.Errorf("download workers must be positive, got %d", c.Download.Workers)
	}
	return nil
}
