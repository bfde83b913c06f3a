// Package config loads Application Entity configuration from a YAML file,
// with environment-variable overrides for the handful of settings that
// commonly vary per deployment (title, port, timeout).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AEConfig mirrors the fields of netdicom.AE that a deployment typically
// wants to set from a file rather than Go source.
type AEConfig struct {
	AETitle          string   `yaml:"ae_title"`
	Port             int      `yaml:"port"`
	SCUSOPClasses    []string `yaml:"scu_sop_classes"`
	SCPSOPClasses    []string `yaml:"scp_sop_classes"`
	TransferSyntaxes []string `yaml:"transfer_syntaxes"`
	MaxPDUSize       int      `yaml:"max_pdu_size"`
	TimeoutSeconds   int      `yaml:"timeout_seconds"`
}

// Timeout returns the configured ARTIM/DIMSE timeout as a time.Duration.
func (c AEConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoggingConfig controls both the zerolog audit sink (see package audit)
// and, for cmd/ front-ends, logrus.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// DirectoryConfig selects how C-MOVE destination AE titles are resolved.
// See package directory.
type DirectoryConfig struct {
	Backend  string `yaml:"backend"` // "memory" or "redis"
	RedisURL string `yaml:"redis_url"`
}

// AdminConfig controls the management HTTP plane. See package httpadmin.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config is the top-level configuration document for an AE process.
type Config struct {
	AE        AEConfig        `yaml:"ae"`
	Logging   LoggingConfig   `yaml:"logging"`
	Directory DirectoryConfig `yaml:"directory"`
	Admin     AdminConfig     `yaml:"admin"`
}

// DefaultConfig returns sane defaults for a standalone echo/store SCP,
// used when no config file is present.
func DefaultConfig() *Config {
	return &Config{
		AE: AEConfig{
			AETitle:        "GONETDICOM",
			Port:           11112,
			MaxPDUSize:     16384,
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Directory: DirectoryConfig{
			Backend: "memory",
		},
		Admin: AdminConfig{
			Enabled: true,
			Addr:    ":8080",
		},
	}
}

// Load reads path as YAML and applies GONETDICOM_* environment overrides.
// A missing file is not an error: DefaultConfig is returned instead, since
// every cmd/ front-end is expected to run with zero configuration present.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyEnvOverrides(cfg), nil
			}
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return applyEnvOverrides(cfg), nil
}

func applyEnvOverrides(cfg *Config) *Config {
	if v := os.Getenv("GONETDICOM_AE_TITLE"); v != "" {
		cfg.AE.AETitle = v
	}
	if v := os.Getenv("GONETDICOM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.AE.Port = port
		}
	}
	if v := os.Getenv("GONETDICOM_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.AE.TimeoutSeconds = secs
		}
	}
	if v := os.Getenv("GONETDICOM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GONETDICOM_REDIS_URL"); v != "" {
		cfg.Directory.Backend = "redis"
		cfg.Directory.RedisURL = v
	}
	return cfg
}
