package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/pitchload/internal/domain/types"
)

// ErrInvalidConfig and ErrLoadConfig classify Load failures for errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

const (
	envPrefix  = "PITCH_"
	envFileVar = "PITCH_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PITCH_CONFIG is set
//  3. env (prefix PITCH_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PITCH_QUEUE_SIZE -> queue_size (flat keys, underscores preserved).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The config file location itself is not a setting.
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.RepositoryBackend {
	case BackendMemory:
	case BackendSQLite, BackendPostgres:
		if c.RepositoryDSN == "" {
			return fmt.Errorf("%w: repository_dsn is required for %s", ErrInvalidConfig, c.RepositoryBackend)
		}
	default:
		return fmt.Errorf("%w: unknown repository_backend %q", ErrInvalidConfig, c.RepositoryBackend)
	}
	switch c.CacheBackend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis_url is required for the redis cache", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cache_backend %q", ErrInvalidConfig, c.CacheBackend)
	}
	if c.DefaultWindowDays < 1 || c.RiskWindowDays < 1 || c.MaxWindowDays < 1 {
		return fmt.Errorf("%w: window days must be positive", ErrInvalidConfig)
	}
	if c.DefaultWindowDays > c.MaxWindowDays || c.RiskWindowDays > c.MaxWindowDays {
		return fmt.Errorf("%w: window days exceed max_window_days", ErrInvalidConfig)
	}
	if c.RepositoryTimeoutMS <= 0 {
		return fmt.Errorf("%w: repository_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.AnalysisConcurrency < 1 {
		return fmt.Errorf("%w: analysis_concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.LoadBaselineMinutesPerDay <= 0 {
		return fmt.Errorf("%w: load_baseline_minutes_per_day must be positive", ErrInvalidConfig)
	}
	for name, w := range map[string]float64{
		"load_volume_weight":    c.LoadVolumeWeight,
		"load_intensity_weight": c.LoadIntensityWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: %s must be within [0,1]", ErrInvalidConfig, name)
		}
	}
	for name, p := range c.RiskFactorPoints {
		if !types.RiskFactor(name).Known() {
			return fmt.Errorf("%w: risk_factor_points.%s is not a known risk factor", ErrInvalidConfig, name)
		}
		if p < 0 {
			return fmt.Errorf("%w: risk_factor_points.%s must not be negative", ErrInvalidConfig, name)
		}
	}
	return nil
}
