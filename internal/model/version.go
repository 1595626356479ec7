// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// ContentVersion is one row of a node's version history.
type ContentVersion struct {
	ID          int64     `json:"id"`
	NodeID      int64     `json:"node_id"`
	Current     bool      `json:"current"`
	Published   bool      `json:"published"`
	VersionDate time.Time `json:"version_date"`
	Name        string    `json:"name"`
	UserID      int64     `json:"user_id"`
}
