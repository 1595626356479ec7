// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/olegiv/ocms-content/internal/cache"
	"github.com/olegiv/ocms-content/internal/version"
)

// Health status values.
const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthHandler reports whether the database and the content cache are usable.
type HealthHandler struct {
	db        *sql.DB
	cache     cache.Cacher
	info      version.Info
	startTime time.Time
}

// NewHealthHandler creates a new health handler. backend may be nil.
func NewHealthHandler(db *sql.DB, backend cache.Cacher, info version.Info) *HealthHandler {
	return &HealthHandler{
		db:        db,
		cache:     backend,
		info:      info,
		startTime: time.Now(),
	}
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Cache     *cache.Stats     `json:"cache,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains runtime information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Check{"database": h.checkDatabase(r.Context())}
	if h.cache != nil {
		checks["cache"] = h.checkCache(r.Context())
	}

	status := HealthStatus{
		Status:    statusHealthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.info.Version,
		Checks:    checks,
	}
	for _, c := range checks {
		if c.Status != statusHealthy {
			status.Status = statusDegraded
		}
	}
	if sp, ok := h.cache.(cache.StatsProvider); ok {
		stats := sp.Stats()
		status.Cache = &stats
	}
	if r.URL.Query().Get("verbose") == "true" {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		status.System = &SystemInfo{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     m.Alloc,
		}
	}

	code := http.StatusOK
	if status.Status != statusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if c := h.checkDatabase(r.Context()); c.Status != statusHealthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "message": c.Message})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var n int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM content_version WHERE current = 1").Scan(&n); err != nil {
		return Check{Status: "unhealthy", Message: "database query failed"}
	}
	return Check{Status: statusHealthy, Latency: time.Since(start).String()}
}

func (h *HealthHandler) checkCache(ctx context.Context) Check {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := h.cache.Has(ctx, "health"); err != nil {
		return Check{Status: "unhealthy", Message: "cache unavailable"}
	}
	return Check{Status: statusHealthy, Latency: time.Since(start).String()}
}
