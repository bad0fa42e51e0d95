// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package main

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds the serve subcommand configuration. Precedence, lowest
// to highest: defaults, config file, command-line flags.
type Config struct {
	// Listen is the authz endpoint address.
	Listen string `koanf:"listen"`
	// MetricsListen is the observability endpoint address.
	MetricsListen string `koanf:"metrics-listen"`
	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log-format"`
	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log-level"`
	// LinkSigningKey enables secret link tokens when non-empty. At
	// least 16 bytes.
	LinkSigningKey string `koanf:"link-signing-key"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Listen:        "127.0.0.1:8300",
		MetricsListen: "127.0.0.1:9300",
		LogFormat:     "json",
		LogLevel:      "info",
	}
}

// LoadConfig merges the config file (if any) and flags over the
// defaults.
func LoadConfig(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := DefaultConfig()

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.In("config").
				Code("INVALID_CONFIG").
				With("path", path).
				Wrapf(err, "load config file")
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.In("config").
				Code("INVALID_CONFIG").
				Wrapf(err, "load flags")
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.In("config").
			Code("INVALID_CONFIG").
			Wrapf(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks config constraints.
func (c Config) Validate() error {
	if c.Listen == "" {
		return oops.In("config").Code("INVALID_CONFIG").Errorf("listen address is required")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return oops.In("config").Code("INVALID_CONFIG").
			Errorf("log-format must be json or text, got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return oops.In("config").Code("INVALID_CONFIG").
			Errorf("log-level must be debug, info, warn, or error, got %q", c.LogLevel)
	}
	return nil
}
