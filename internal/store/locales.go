// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
)

const createLocale = `
INSERT INTO locale (iso_code, name, is_default, fallback_id)
VALUES (?, ?, ?, ?)
RETURNING id, iso_code, name, is_default, fallback_id
`

type CreateLocaleParams struct {
	IsoCode    string
	Name       string
	IsDefault  bool
	FallbackID sql.NullInt64
}

func (q *Queries) CreateLocale(ctx context.Context, arg CreateLocaleParams) (Locale, error) {
	row := q.db.QueryRowContext(ctx, createLocale, arg.IsoCode, arg.Name, arg.IsDefault, arg.FallbackID)
	var i Locale
	err := row.Scan(&i.ID, &i.IsoCode, &i.Name, &i.IsDefault, &i.FallbackID)
	return i, err
}

const listLocales = `
SELECT id, iso_code, name, is_default, fallback_id
FROM locale
ORDER BY id
`

func (q *Queries) ListLocales(ctx context.Context) ([]Locale, error) {
	rows, err := q.db.QueryContext(ctx, listLocales)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Locale
	for rows.Next() {
		var i Locale
		if err := rows.Scan(&i.ID, &i.IsoCode, &i.Name, &i.IsDefault, &i.FallbackID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const clearDefaultLocale = `UPDATE locale SET is_default = 0 WHERE is_default = 1`

func (q *Queries) ClearDefaultLocale(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, clearDefaultLocale)
	return err
}

const setDefaultLocale = `UPDATE locale SET is_default = 1 WHERE id = ?`

func (q *Queries) SetDefaultLocale(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, setDefaultLocale, id)
	return err
}

const createUser = `INSERT INTO app_user (name) VALUES (?) RETURNING id, name`

// CreateUser inserts a lookup row used to resolve owner names when sorting.
func (q *Queries) CreateUser(ctx context.Context, name string) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, name)
	var i User
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}
