// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueStorage is the typed column a property value is stored in.
type ValueStorage string

const (
	StorageInteger  ValueStorage = "integer"
	StorageDecimal  ValueStorage = "decimal"
	StorageDate     ValueStorage = "date"
	StorageNvarchar ValueStorage = "nvarchar"
	StorageNtext    ValueStorage = "ntext"
)

// Valid reports whether s names a known storage column.
func (s ValueStorage) Valid() bool {
	switch s {
	case StorageInteger, StorageDecimal, StorageDate, StorageNvarchar, StorageNtext:
		return true
	}
	return false
}

// Normalize converts v to the Go type used for the storage: int64, float64,
// time.Time (UTC) or string. A nil value clears the property.
func (s ValueStorage) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch s {
	case StorageInteger:
		return toInt64(v)
	case StorageDecimal:
		return toFloat64(v)
	case StorageDate:
		return toTime(v)
	case StorageNvarchar, StorageNtext:
		return toString(v)
	default:
		return nil, Errorf(ErrInvalidOperation, "unknown value storage %q", string(s))
	}
}

func toInt64(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != float64(int64(x)) {
			return nil, Errorf(ErrInvalidOperation, "%v is not an integer", x)
		}
		return int64(x), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil, Errorf(ErrInvalidOperation, "%q is not an integer", x)
		}
		return n, nil
	}
	return nil, Errorf(ErrInvalidOperation, "cannot store %T as integer", v)
}

func toFloat64(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, Errorf(ErrInvalidOperation, "%q is not a decimal", x)
		}
		return f, nil
	}
	return nil, Errorf(ErrInvalidOperation, "cannot store %T as decimal", v)
}

func toTime(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return nil, nil
		}
		return x.UTC(), nil
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return nil, nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly} {
			if t, err := time.Parse(layout, x); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, Errorf(ErrInvalidOperation, "%q is not a date", x)
	}
	return nil, Errorf(ErrInvalidOperation, "cannot store %T as date", v)
}

func toString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case int, int64, float64, bool:
		return fmt.Sprint(x), nil
	}
	return nil, Errorf(ErrInvalidOperation, "cannot store %T as text", v)
}

// ValuesEqual compares two normalized values.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}
