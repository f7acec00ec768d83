package main

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// bootstrapConfig is the optional YAML runtime bootstrap file's shape:
// host search paths and a default profile, read before flags are applied
// so an explicit flag can still override any of its values.
type bootstrapConfig struct {
	ModulesDir string `yaml:"modules_dir"`
	Profile    string `yaml:"profile"`
	LogLevel   string `yaml:"log_level"`
}

// loadBootstrap reads path if present; a missing file is not an error,
// since the bootstrap file itself is optional (spec-expanded ambient
// config tier, layered beneath the -modules/-profile/-v flags).
func loadBootstrap(path string) (bootstrapConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return bootstrapConfig{}, nil
		}
		return bootstrapConfig{}, fmt.Errorf("read bootstrap file %s: %w", path, err)
	}
	var cfg bootstrapConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return bootstrapConfig{}, fmt.Errorf("parse bootstrap file %s: %w", path, err)
	}
	return cfg, nil
}

// parseLogLevel maps the bootstrap file's log_level string to an slog
// level; an unrecognized value is reported rather than silently ignored.
func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unrecognized log_level %q", s)
	}
}
