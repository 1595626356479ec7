// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Schedule actions
const (
	ScheduleRelease = "release"
	ScheduleExpire  = "expire"
)

// Schedule is a pending publish (release) or unpublish (expire) of a node,
// optionally for a single culture.
type Schedule struct {
	ID      int64     `json:"id"`
	NodeID  int64     `json:"node_id"`
	Culture string    `json:"culture,omitempty"`
	Action  string    `json:"action"`
	Date    time.Time `json:"date"`
}

// IsValidScheduleAction reports whether action is release or expire.
func IsValidScheduleAction(action string) bool {
	return action == ScheduleRelease || action == ScheduleExpire
}

// Redirect is a previous route of a node recorded when its published name changed.
type Redirect struct {
	ID        int64     `json:"id"`
	NodeKey   string    `json:"node_key"`
	Culture   string    `json:"culture,omitempty"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
