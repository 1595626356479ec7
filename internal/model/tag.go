// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Tag is a catalog entry identified by (text, group, culture). An empty
// culture is an invariant tag.
type Tag struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Group   string `json:"group"`
	Culture string `json:"culture,omitempty"`
}

// TagAssignment links a tag to a property of a node.
type TagAssignment struct {
	NodeID        int64  `json:"node_id"`
	PropertyAlias string `json:"property_alias"`
	Tag           Tag    `json:"tag"`
}
