package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Config holds pubsubctl runtime settings.
type Config struct {
	Addr     string
	Gateway  string
	Channels []string
	Patterns []string
	LogLevel string
}

func defaultConfig() Config {
	return Config{
		Addr:     "127.0.0.1:6379",
		LogLevel: "info",
	}
}

// fileConfig maps config.toml keys to runtime settings.
type fileConfig struct {
	Addr     string   `toml:"addr"`
	Gateway  string   `toml:"gateway_url"`
	Channels []string `toml:"channels"`
	Patterns []string `toml:"patterns"`
	LogLevel string   `toml:"log_level"`
}

// loadConfig overlays a TOML file onto the defaults. Keys absent from the
// file keep their default values.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("gateway_url") {
		cfg.Gateway = strings.TrimSpace(raw.Gateway)
	}
	if meta.IsDefined("channels") {
		cfg.Channels = raw.Channels
	}
	if meta.IsDefined("patterns") {
		cfg.Patterns = raw.Patterns
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	return cfg, nil
}

func resolveConfig(path string) (Config, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	return loadConfig(path)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}
