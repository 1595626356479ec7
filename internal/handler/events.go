// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/olegiv/ocms-content/internal/service"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventsHandler exposes the event log.
type EventsHandler struct {
	events *service.EventService
	logger *slog.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(events *service.EventService, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{events: events, logger: logger}
}

// List handles GET /events?limit=N, newest first.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSONSuccess(w, map[string]any{"events": events})
}
