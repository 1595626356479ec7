// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/scheduler"
	"github.com/olegiv/ocms-content/internal/service"
)

// SchedulerHandler lists the background jobs and lets operators reschedule
// or trigger them.
type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	events    *service.EventService
	logger    *slog.Logger
}

// NewSchedulerHandler creates a new scheduler handler. events may be nil.
func NewSchedulerHandler(s *scheduler.Scheduler, events *service.EventService, logger *slog.Logger) *SchedulerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchedulerHandler{scheduler: s, events: events, logger: logger}
}

// List handles GET /jobs.
func (h *SchedulerHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSONSuccess(w, map[string]any{"jobs": h.scheduler.List()})
}

type scheduleRequest struct {
	Schedule string `json:"schedule"`
}

// UpdateSchedule handles PUT /jobs/{name}/schedule.
func (h *SchedulerHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Schedule == "" {
		writeJSONError(w, http.StatusBadRequest, "schedule is required")
		return
	}
	if err := h.scheduler.UpdateSchedule(name, req.Schedule); err != nil {
		h.writeJobError(w, name, err)
		return
	}
	h.logEvent(r, "Job schedule updated: "+name, map[string]any{"name": name, "schedule": req.Schedule})
	writeJSONSuccess(w, nil)
}

// ResetSchedule handles DELETE /jobs/{name}/schedule.
func (h *SchedulerHandler) ResetSchedule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.scheduler.ResetSchedule(name); err != nil {
		h.writeJobError(w, name, err)
		return
	}
	h.logEvent(r, "Job schedule reset: "+name, map[string]any{"name": name})
	writeJSONSuccess(w, nil)
}

// TriggerNow handles POST /jobs/{name}/run. The job runs on the request
// goroutine and its error is reported in the response.
func (h *SchedulerHandler) TriggerNow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.scheduler.TriggerNow(r.Context(), name); err != nil {
		h.writeJobError(w, name, err)
		return
	}
	h.logEvent(r, "Job manually triggered: "+name, map[string]any{"name": name})
	writeJSONSuccess(w, nil)
}

func (h *SchedulerHandler) writeJobError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		writeJSONError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, scheduler.ErrTriggerLimited):
		writeJSONError(w, http.StatusTooManyRequests, err.Error())
	default:
		h.logger.Error("scheduler job request failed", "name", name, "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
	}
}

func (h *SchedulerHandler) logEvent(r *http.Request, message string, metadata map[string]any) {
	if h.events == nil {
		return
	}
	_ = h.events.LogInfo(r.Context(), model.EventCategoryScheduler, message, metadata)
}
