package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters, lumberjack semantics.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config controls application logging. Level is one of debug, info,
// warn, error; Format is text or json. When File.Path is set, output
// goes to a rotating file instead of stderr and Color is ignored.
type Config struct {
	Level  string     `toml:"level" mapstructure:"level"`
	Format string     `toml:"format" mapstructure:"format"`
	Color  bool       `toml:"color" mapstructure:"color"`
	File   FileConfig `toml:"file" mapstructure:"file"`
}

// FileConfig describes the optional rotating log file.
type FileConfig struct {
	Path       string `toml:"path" mapstructure:"path"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// Writer returns the log destination: a lumberjack rotating file when
// File.Path is set, stderr otherwise.
func (c Config) Writer() io.Writer {
	if c.File.Path == "" {
		return os.Stderr
	}
	return &lj.Logger{
		Filename:   c.File.Path,
		MaxSize:    valOr(c.File.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.File.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.File.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.File.Compress,
	}
}

// NewSlogger builds a slog.Logger from the config. Callers typically
// pass the result to slog.SetDefault.
func (c Config) NewSlogger() *slog.Logger {
	w := c.Writer()
	opts := &slog.HandlerOptions{Level: c.slogLevel()}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	if c.Color && c.File.Path == "" {
		return slog.New(NewColorTextHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c Config) slogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
