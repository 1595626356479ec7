// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import "database/sql"

type localeKind uint8

const (
	localeInvariant localeKind = iota
	localeSpecific
	localeAnyCulture
)

// LocaleSelector chooses rows by their locale column: the invariant (NULL)
// rows, the rows of one locale, or every culture-specific row.
type LocaleSelector struct {
	kind localeKind
	id   int64
}

// InvariantLocale selects rows whose locale is NULL.
func InvariantLocale() LocaleSelector { return LocaleSelector{kind: localeInvariant} }

// SpecificLocale selects rows of a single locale.
func SpecificLocale(id int64) LocaleSelector { return LocaleSelector{kind: localeSpecific, id: id} }

// AnyCulture selects rows with any non-NULL locale.
func AnyCulture() LocaleSelector { return LocaleSelector{kind: localeAnyCulture} }

// IsInvariant reports whether the selector matches NULL locales.
func (s LocaleSelector) IsInvariant() bool { return s.kind == localeInvariant }

// predicate renders a condition on column plus its arguments.
func (s LocaleSelector) predicate(column string) (string, []any) {
	switch s.kind {
	case localeSpecific:
		return column + " = ?", []any{s.id}
	case localeAnyCulture:
		return column + " IS NOT NULL", nil
	default:
		return column + " IS NULL", nil
	}
}

// value is the column value used when the selector is a write target.
func (s LocaleSelector) value() sql.NullInt64 {
	if s.kind == localeSpecific {
		return sql.NullInt64{Int64: s.id, Valid: true}
	}
	return sql.NullInt64{}
}
