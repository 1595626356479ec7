// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides null-type conversions and URL segment helpers.
package util

import (
	"database/sql"
	"time"
)

// NullInt64FromValue creates a valid sql.NullInt64 from an int64 value.
func NullInt64FromValue(val int64) sql.NullInt64 {
	return sql.NullInt64{Int64: val, Valid: true}
}

// NullInt64FromID converts an id into sql.NullInt64, treating zero as NULL.
// Locale columns use it: the invariant locale is stored as NULL.
func NullInt64FromID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

// IDFromNull returns the id held by n, or zero when it is NULL.
func IDFromNull(n sql.NullInt64) int64 {
	if !n.Valid {
		return 0
	}
	return n.Int64
}

// NullStringFromValue creates a sql.NullString that is valid when s is not empty.
func NullStringFromValue(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// TimeFromNull returns the time held by n in UTC, or the zero time.
func TimeFromNull(n sql.NullTime) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return n.Time.UTC()
}
