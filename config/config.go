// Package config defines the location manager configuration file.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	goutils "go.viam.com/utils"

	"github.com/geofix/locmgr/logging"
	"github.com/geofix/locmgr/positioning/nmea"
)

// Config is the location manager configuration.
type Config struct {
	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-"`

	TimeoutMs            int          `json:"timeout_ms,omitempty"`
	LowAccuracyTimeoutMs int          `json:"low_accuracy_timeout_ms,omitempty"`
	MaxAgeMs             int          `json:"max_age_ms,omitempty"`
	RequestPermission    bool         `json:"request_permission"`
	OpenSettings         bool         `json:"open_settings"`
	Cache                string       `json:"cache,omitempty"`
	NMEA                 *nmea.Config `json:"nmea,omitempty"`
	LogLevel             string       `json:"log_level,omitempty"`
	LogFile              string       `json:"log_file,omitempty"`
}

var cacheSchemes = []string{"memory:", "sqlite:", "postgres://", "postgresql://", "redis://", "rediss://"}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	for field, ms := range map[string]int{
		"timeout_ms":              cfg.TimeoutMs,
		"low_accuracy_timeout_ms": cfg.LowAccuracyTimeoutMs,
		"max_age_ms":              cfg.MaxAgeMs,
	} {
		if ms < 0 {
			return goutils.NewConfigValidationError(path, errors.Errorf("%s cannot be negative", field))
		}
	}
	if cfg.Cache != "" && !lo.ContainsBy(cacheSchemes, func(scheme string) bool {
		return strings.HasPrefix(cfg.Cache, scheme)
	}) {
		return goutils.NewConfigValidationError(path, errors.Errorf("unsupported cache %q", cfg.Cache))
	}
	if cfg.LogLevel != "" {
		if _, err := logging.LevelFromString(cfg.LogLevel); err != nil {
			return goutils.NewConfigValidationError(path, err)
		}
	}
	if cfg.NMEA != nil {
		if err := cfg.NMEA.Validate(path + ".nmea"); err != nil {
			return err
		}
	}
	return nil
}

// Timeout is the high accuracy deadline, zero meaning the acquirer's default.
func (cfg *Config) Timeout() time.Duration {
	return time.Duration(cfg.TimeoutMs) * time.Millisecond
}

// LowAccuracyTimeout bounds the low accuracy request, zero meaning the acquirer's default.
func (cfg *Config) LowAccuracyTimeout() time.Duration {
	return time.Duration(cfg.LowAccuracyTimeoutMs) * time.Millisecond
}

// MaxAge is how long a cached position stays fresh, zero meaning the manager's default.
func (cfg *Config) MaxAge() time.Duration {
	return time.Duration(cfg.MaxAgeMs) * time.Millisecond
}

// Level returns the configured log level, INFO when unset.
func (cfg *Config) Level() logging.Level {
	if cfg.LogLevel == "" {
		return logging.INFO
	}
	level, err := logging.LevelFromString(cfg.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}
