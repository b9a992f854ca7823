// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Durations are expressed in milliseconds so they map cleanly to env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
	"time"
)

// Repository backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RepositoryBackend is one of memory, sqlite, postgres.
	RepositoryBackend string `koanf:"repository_backend"`
	// RepositoryDSN is the sqlite file or postgres connection string.
	RepositoryDSN string `koanf:"repository_dsn"`
	// RepositoryTimeoutMS bounds every repository call.
	RepositoryTimeoutMS int `koanf:"repository_timeout_ms"`
	// RepositoryRateLimit is the sustained reads per second; 0 disables throttling.
	RepositoryRateLimit float64 `koanf:"repository_rate_limit"`
	RepositoryBurst     int     `koanf:"repository_burst"`

	// BreakerMaxFailures consecutive failures open the repository breaker.
	BreakerMaxFailures   int `koanf:"breaker_max_failures"`
	BreakerOpenTimeoutMS int `koanf:"breaker_open_timeout_ms"`

	// AnalysisConcurrency bounds per-player fan-out.
	AnalysisConcurrency int `koanf:"analysis_concurrency"`

	DefaultWindowDays int `koanf:"default_window_days"`
	RiskWindowDays    int `koanf:"risk_window_days"`
	MaxWindowDays     int `koanf:"max_window_days"`

	// CacheBackend is one of memory, redis, none.
	CacheBackend string `koanf:"cache_backend"`
	CacheTTLMS   int    `koanf:"cache_ttl_ms"`
	RedisURL     string `koanf:"redis_url"`
	// CacheSweepSchedule is a cron spec for evicting expired memory entries.
	CacheSweepSchedule string `koanf:"cache_sweep_schedule"`

	// QueueSize bounds the in-memory ingestion queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets the number of remembered session ids.
	DedupeSize int `koanf:"dedupe_size"`

	LoadBaselineMinutesPerDay float64 `koanf:"load_baseline_minutes_per_day"`
	LoadVolumeWeight          float64 `koanf:"load_volume_weight"`
	LoadIntensityWeight       float64 `koanf:"load_intensity_weight"`

	// RiskFactorPoints overrides the points per risk factor.
	RiskFactorPoints         map[string]int `koanf:"risk_factor_points"`
	RiskSeniorAge            int            `koanf:"risk_senior_age"`
	RiskJuniorAge            int            `koanf:"risk_junior_age"`
	RiskVolumeMinutesPerDay  float64        `koanf:"risk_volume_minutes_per_day"`
	RiskAvgHeartRate         float64        `koanf:"risk_avg_heart_rate"`
	RiskSprintsPerDay        float64        `koanf:"risk_sprints_per_day"`
	RiskSessionsPerWeek      float64        `koanf:"risk_sessions_per_week"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		RepositoryBackend:    BackendMemory,
		RepositoryDSN:        "",
		RepositoryTimeoutMS:  2000,
		RepositoryRateLimit:  0,
		RepositoryBurst:      64,
		BreakerMaxFailures:   5,
		BreakerOpenTimeoutMS: 10_000,
		AnalysisConcurrency:  8,
		DefaultWindowDays:    7,
		RiskWindowDays:       14,
		MaxWindowDays:        365,
		CacheBackend:         CacheMemory,
		CacheTTLMS:           30_000,
		RedisURL:             "redis://localhost:6379/0",
		CacheSweepSchedule:   "@every 1m",
		QueueSize:            10_000,
		WorkerCount:          runtime.NumCPU(),
		DedupeSize:           100_000,

		LoadBaselineMinutesPerDay: 90,
		LoadVolumeWeight:          0.8,
		LoadIntensityWeight:       0.2,

		RiskFactorPoints: map[string]int{
			"age_senior": 15,
			"age_junior": 10,
			"volume":     30,
			"intensity":  25,
			"frequency":  20,
		},
		RiskSeniorAge:           30,
		RiskJuniorAge:           18,
		RiskVolumeMinutesPerDay: 100,
		RiskAvgHeartRate:        165,
		RiskSprintsPerDay:       15,
		RiskSessionsPerWeek:     6,
	}
}

// RepositoryTimeout returns the per-call repository deadline.
func (c *Config) RepositoryTimeout() time.Duration {
	return time.Duration(c.RepositoryTimeoutMS) * time.Millisecond
}

// BreakerOpenTimeout returns how long the breaker stays open.
func (c *Config) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.BreakerOpenTimeoutMS) * time.Millisecond
}

// CacheTTL returns the analytics response cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMS) * time.Millisecond
}
