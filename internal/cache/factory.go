// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Backend names.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig selects and configures a cache backend.
type CacheConfig struct {
	// Type is CacheBackendMemory or CacheBackendRedis.
	Type string

	// RedisURL is the connection URL, e.g. redis://localhost:6379/0.
	RedisURL string

	// Prefix is prepended to every Redis key.
	Prefix string

	// FallbackToMemory uses a memory cache when Redis is unreachable.
	FallbackToMemory bool

	DefaultTTL      time.Duration
	MaxSize         int
	CleanupInterval time.Duration
}

// Result is a created cache with the backend that was actually chosen.
type Result struct {
	Cache       Cacher
	BackendType string
	IsFallback  bool
	// Err is the Redis error that caused a fallback.
	Err error
}

// redisDialTimeout bounds the connection check made at startup.
const redisDialTimeout = 5 * time.Second

// NewCacheWithInfo creates the configured backend. A Redis failure falls back
// to memory only when FallbackToMemory is set.
func NewCacheWithInfo(ctx context.Context, cfg CacheConfig) (Result, error) {
	if cfg.Type == CacheBackendRedis && cfg.RedisURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
		rc, err := NewRedisCache(dialCtx, RedisOptions{
			URL: cfg.RedisURL, Prefix: cfg.Prefix, TTL: cfg.DefaultTTL, Timeout: redisDialTimeout,
		})
		cancel()
		if err == nil {
			return Result{Cache: rc, BackendType: CacheBackendRedis}, nil
		}
		if !cfg.FallbackToMemory {
			return Result{}, err
		}
		return Result{Cache: newMemory(cfg), BackendType: CacheBackendMemory, IsFallback: true, Err: err}, nil
	}
	return Result{Cache: newMemory(cfg), BackendType: CacheBackendMemory}, nil
}

func newMemory(cfg CacheConfig) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	})
}

// SanitizeRedisURL masks the password of a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}

// String describes the result for logging.
func (r Result) String() string {
	if r.IsFallback {
		return fmt.Sprintf("%s (fallback: %v)", r.BackendType, r.Err)
	}
	return r.BackendType
}
