// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the content engine configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"

	"github.com/olegiv/ocms-content/internal/locale"
)

// MaxBatchSize is the largest id batch a single statement may bind. SQLite
// allows 32766 host parameters.
const MaxBatchSize = 32766

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"OCMS_DB_PATH" envDefault:"./data/ocms-content.db"`
	Env           string `env:"OCMS_ENV" envDefault:"development"`
	LogLevel      string `env:"OCMS_LOG_LEVEL" envDefault:"info"`
	DefaultLocale string `env:"OCMS_DEFAULT_LOCALE" envDefault:"en-US"`
	OpsAddr       string `env:"OCMS_OPS_ADDR"` // Health, events and job endpoints; empty disables

	// Content loading
	BatchSize  int  `env:"OCMS_BATCH_SIZE" envDefault:"2000"`    // Max ids per batched read
	StrictLoad bool `env:"OCMS_STRICT_LOAD" envDefault:"false"` // Duplicate property sets become errors

	// Cache configuration
	RedisURL     string `env:"OCMS_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"OCMS_CACHE_PREFIX" envDefault:"ocms:"`   // Redis key prefix
	CacheTTL     int    `env:"OCMS_CACHE_TTL" envDefault:"3600"`       // Default cache TTL in seconds
	CacheMaxSize int    `env:"OCMS_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Scheduler configuration
	SchedulerEnabled   bool   `env:"OCMS_SCHEDULER_ENABLED" envDefault:"true"`
	SchedulerSpec      string `env:"OCMS_SCHEDULER_SPEC" envDefault:"* * * * *"`  // Release/expiry processing
	RetentionSpec      string `env:"OCMS_RETENTION_SPEC" envDefault:"@daily"`     // Event log cleanup
	EventRetentionDays int    `env:"OCMS_EVENT_RETENTION_DAYS" envDefault:"90"`   // 0 keeps events forever
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CacheTTLDuration returns the cache TTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// EventRetention returns how long event log entries are kept.
func (c Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and normalizes the default locale.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "production":
	default:
		return fmt.Errorf("OCMS_ENV must be development or production, got %q", c.Env)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("OCMS_LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}

	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return fmt.Errorf("OCMS_BATCH_SIZE must be between 1 and %d, got %d", MaxBatchSize, c.BatchSize)
	}

	iso, err := locale.Canonicalize(c.DefaultLocale)
	if err != nil {
		return fmt.Errorf("OCMS_DEFAULT_LOCALE: %w", err)
	}
	c.DefaultLocale = iso

	if c.CacheTTL <= 0 {
		return fmt.Errorf("OCMS_CACHE_TTL must be positive, got %d", c.CacheTTL)
	}
	if c.CacheMaxSize < 0 {
		return fmt.Errorf("OCMS_CACHE_MAX_SIZE cannot be negative, got %d", c.CacheMaxSize)
	}
	if c.EventRetentionDays < 0 {
		return fmt.Errorf("OCMS_EVENT_RETENTION_DAYS cannot be negative, got %d", c.EventRetentionDays)
	}

	if _, err := cronParser.Parse(c.SchedulerSpec); err != nil {
		return fmt.Errorf("OCMS_SCHEDULER_SPEC %q: %w", c.SchedulerSpec, err)
	}
	if _, err := cronParser.Parse(c.RetentionSpec); err != nil {
		return fmt.Errorf("OCMS_RETENTION_SPEC %q: %w", c.RetentionSpec, err)
	}
	return nil
}
