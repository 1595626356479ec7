// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the operations HTTP endpoints: health checks, the
// event log and background job control.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Route paths.
const (
	RouteHealth      = "/health"
	RouteLiveness    = "/health/live"
	RouteReadiness   = "/health/ready"
	RouteEvents      = "/events"
	RouteJobs        = "/jobs"
	RouteJobRun      = "/jobs/{name}/run"
	RouteJobSchedule = "/jobs/{name}/schedule"
)

// Handlers groups the endpoint handlers mounted by NewRouter. Nil handlers
// leave their routes unmounted.
type Handlers struct {
	Health    *HealthHandler
	Events    *EventsHandler
	Scheduler *SchedulerHandler
}

// NewRouter builds the operations router.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	if h.Health != nil {
		r.Get(RouteHealth, h.Health.Health)
		r.Get(RouteLiveness, h.Health.Liveness)
		r.Get(RouteReadiness, h.Health.Readiness)
	}
	if h.Events != nil {
		r.Get(RouteEvents, h.Events.List)
	}
	if h.Scheduler != nil {
		r.Get(RouteJobs, h.Scheduler.List)
		r.Post(RouteJobRun, h.Scheduler.TriggerNow)
		r.Put(RouteJobSchedule, h.Scheduler.UpdateSchedule)
		r.Delete(RouteJobSchedule, h.Scheduler.ResetSchedule)
	}
	return r
}
