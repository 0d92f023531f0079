// Package config loads the daemon configuration from a YAML file, filling
// in defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProbeConfig selects and tunes the probe mechanism.
type ProbeConfig struct {
	Mode       string  `yaml:"mode"` // "fping" (default) or "icmp"
	Bin        string  `yaml:"bin"`  // fping binary
	Privileged bool    `yaml:"privileged"`
	Workers    int     `yaml:"workers"`
	RateLimit  float64 `yaml:"rate_limit"` // icmp target starts per second
}

// SNMPConfig enables the optional router identity check.
type SNMPConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Community string `yaml:"community"`
	Port      uint16 `yaml:"port"`
}

// GeoConfig enables hierarchy geo enrichment.
type GeoConfig struct {
	CityDBPath string `yaml:"city_db_path"`
}

// Config is the daemon configuration.
type Config struct {
	Listen          string      `yaml:"listen"`
	Source          string      `yaml:"source"` // sheet URL or local path
	CacheDir        string      `yaml:"cache_dir"`
	DBPath          string      `yaml:"db_path"` // snapshot store; "" disables
	AllowOrigin     string      `yaml:"allow_origin"`
	CooldownSeconds int         `yaml:"cooldown_seconds"`
	Probe           ProbeConfig `yaml:"probe"`
	SNMP            SNMPConfig  `yaml:"snmp"`
	Geo             GeoConfig   `yaml:"geo"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:          ":8080",
		CacheDir:        "./cache",
		DBPath:          "./rfdiagdb",
		AllowOrigin:     "*",
		CooldownSeconds: 2,
		Probe: ProbeConfig{
			Mode:    "fping",
			Bin:     "fping",
			Workers: 16,
		},
		SNMP: SNMPConfig{
			Community: "public",
			Port:      161,
		},
	}
}

// Load reads path and overlays it on the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.CooldownSeconds <= 0 {
		cfg.CooldownSeconds = 2
	}
	if cfg.Probe.Mode == "" {
		cfg.Probe.Mode = "fping"
	}
	if cfg.Probe.Bin == "" {
		cfg.Probe.Bin = "fping"
	}
	if cfg.Probe.Workers <= 0 {
		cfg.Probe.Workers = 16
	}

	return cfg, nil
}

// Cooldown returns the throttle cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}
