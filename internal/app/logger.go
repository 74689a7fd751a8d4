package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a configured slog.Logger based on configuration.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *Config, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: slog.LevelInfo}
	if cfg == nil {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	opts.Level = parseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(out, opts))
	if cfg.LogFormat == "json" {
		logger = slog.New(slog.NewJSONHandler(out, opts))
	}
	return logger.With(slog.String("env", cfg.AppEnv))
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}
