// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads bitbus settings from a YAML or TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config file path
const EnvConfig = "BITBUS_CONFIG"

// Flag names shared with the command line
const (
	FlagPort        = "port"
	FlagBaud        = "baud"
	FlagURL         = "url"
	FlagUsername    = "username"
	FlagNoSSLVerify = "no-ssl-verify"
	FlagLogLevel    = "log-level"
	FlagLogFile     = "log-file"
	FlagMode        = "mode"
)

// Config holds link and logging settings
type Config struct {
	Port        string `yaml:"port" toml:"port"`
	Baud        int    `yaml:"baud" toml:"baud"`
	URL         string `yaml:"url" toml:"url"`
	Username    string `yaml:"username" toml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify" toml:"no_ssl_verify"`
	LogLevel    string `yaml:"log_level" toml:"log_level"`
	LogFile     string `yaml:"log_file" toml:"log_file"`
	// Analog field encoding used by send, control and replay: hex or decimal
	Mode string `yaml:"mode" toml:"mode"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Baud:     9600,
		Username: "admin",
		LogLevel: "info",
		Mode:     "hex",
	}
}

// Path resolves the config file: the flag value, then $BITBUS_CONFIG, then
// config.yaml or config.toml under the user config directory if present.
// Returns "" when there is no file to load.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(dir, "bitbus", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads path over the defaults. The format is chosen by extension.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config format %q (use .yaml or .toml)", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges
func (c Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	switch c.Mode {
	case "hex", "decimal", "dec":
	default:
		return fmt.Errorf("mode must be hex or decimal, got %q", c.Mode)
	}
	return nil
}

// Merge combines file settings with command line settings. A flag wins when
// changed reports it was set explicitly; otherwise the file value is kept.
func Merge(file, flags Config, changed func(name string) bool) Config {
	out := file
	if changed(FlagPort) {
		out.Port = flags.Port
	}
	if changed(FlagBaud) {
		out.Baud = flags.Baud
	}
	if changed(FlagURL) {
		out.URL = flags.URL
	}
	if changed(FlagUsername) {
		out.Username = flags.Username
	}
	if changed(FlagNoSSLVerify) {
		out.NoSSLVerify = flags.NoSSLVerify
	}
	if changed(FlagLogLevel) {
		out.LogLevel = flags.LogLevel
	}
	if changed(FlagLogFile) {
		out.LogFile = flags.LogFile
	}
	if changed(FlagMode) {
		out.Mode = flags.Mode
	}
	return out
}
