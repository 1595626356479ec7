// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const createRedirect = `
INSERT INTO redirect_url (node_key, locale_id, url, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, node_key, locale_id, url, created_at
`

type CreateRedirectParams struct {
	NodeKey   string
	LocaleID  sql.NullInt64
	URL       string
	CreatedAt time.Time
}

func (q *Queries) CreateRedirect(ctx context.Context, arg CreateRedirectParams) (RedirectURL, error) {
	var i RedirectURL
	err := q.db.QueryRowContext(ctx, createRedirect, arg.NodeKey, arg.LocaleID, arg.URL, arg.CreatedAt.UTC()).
		Scan(&i.ID, &i.NodeKey, &i.LocaleID, &i.URL, &i.CreatedAt)
	return i, err
}

const listRedirects = `
SELECT id, node_key, locale_id, url, created_at
FROM redirect_url
WHERE node_key = ?
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListRedirects(ctx context.Context, nodeKey string) ([]RedirectURL, error) {
	rows, err := q.db.QueryContext(ctx, listRedirects, nodeKey)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []RedirectURL
	for rows.Next() {
		var i RedirectURL
		if err := rows.Scan(&i.ID, &i.NodeKey, &i.LocaleID, &i.URL, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteRedirectURL = `DELETE FROM redirect_url WHERE node_key = ? AND url = ? AND COALESCE(locale_id, 0) = COALESCE(?, 0)`

// DeleteRedirectURL removes an earlier record of the same route, so the
// newest record wins.
func (q *Queries) DeleteRedirectURL(ctx context.Context, nodeKey, url string, localeID sql.NullInt64) error {
	_, err := q.db.ExecContext(ctx, deleteRedirectURL, nodeKey, url, localeID)
	return err
}

const deleteRedirectsForNode = `DELETE FROM redirect_url WHERE node_key = ?`

func (q *Queries) DeleteRedirectsForNode(ctx context.Context, nodeKey string) error {
	_, err := q.db.ExecContext(ctx, deleteRedirectsForNode, nodeKey)
	return err
}

const deleteRedirectsForContentTypes = `
DELETE FROM redirect_url
WHERE node_key IN (
  SELECT n.unique_id FROM node n JOIN content c ON c.node_id = n.id
  WHERE c.content_type_id IN (%s)
)
`

func (q *Queries) DeleteRedirectsForContentTypes(ctx context.Context, contentTypeIDs []int64) (int64, error) {
	if len(contentTypeIDs) == 0 {
		return 0, nil
	}
	res, err := q.db.ExecContext(ctx, expandIn(deleteRedirectsForContentTypes, len(contentTypeIDs)), int64Args(contentTypeIDs)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
