package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/foxfirecodes/datadog-viewer/internal/logger"
	"github.com/foxfirecodes/datadog-viewer/internal/state"
)

// Defaults applied when the config file leaves fields unset.
const (
	DefaultCSVFile   = "errors.csv"
	DefaultStateFile = "addressed_errors.json"
	DefaultPageSize  = 50
	DefaultListen    = ":8080"
	DefaultBasePath  = "/api"
)

// Config is the top-level TOML structure.
//
//	csv_file = "errors.csv"
//	page_size = 50
//
//	[server]
//	listen = ":8080"
//	base_path = "/api"
//	metrics_listen = ":9090"
//
//	[log]
//	level = "info"
//	format = "text"
//
//	[state]
//	type = "json"
//	path = "addressed_errors.json"
//
//	[history]
//	enabled = true
//	dsn = "sqlite://audit.db"
type Config struct {
	CSVFile  string         `toml:"csv_file" mapstructure:"csv_file"`
	PageSize int            `toml:"page_size" mapstructure:"page_size"`
	Server   ServerConfig   `toml:"server" mapstructure:"server"`
	Log      *logger.Config `toml:"log" mapstructure:"log"`
	State    state.Config   `toml:"state" mapstructure:"state"`
	History  HistoryConfig  `toml:"history" mapstructure:"history"`
}

type ServerConfig struct {
	Listen        string `toml:"listen" mapstructure:"listen"`
	BasePath      string `toml:"base_path" mapstructure:"base_path"`
	MetricsListen string `toml:"metrics_listen" mapstructure:"metrics_listen"`
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	DSN     string `toml:"dsn" mapstructure:"dsn"`
}

// Load parses a TOML config file and applies defaults. Relative
// csv/state paths are resolved against the config file's directory so
// the daemon behaves the same regardless of working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)

	base := filepath.Dir(path)
	cfg.CSVFile = resolve(base, cfg.CSVFile)
	if cfg.State.Path != "" {
		cfg.State.Path = resolve(base, cfg.State.Path)
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.CSVFile == "" {
		cfg.CSVFile = DefaultCSVFile
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	if cfg.Server.BasePath == "" {
		cfg.Server.BasePath = DefaultBasePath
	}
	if cfg.State.Type == "" {
		cfg.State.Type = "json"
	}
	if cfg.State.Type == "json" && cfg.State.Path == "" {
		cfg.State.Path = DefaultStateFile
	}
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
