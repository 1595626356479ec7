// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const versionColumns = `id, node_id, current, published, version_date, name, user_id`

func scanVersion(row interface{ Scan(...any) error }) (ContentVersion, error) {
	var i ContentVersion
	err := row.Scan(&i.ID, &i.NodeID, &i.Current, &i.Published, &i.VersionDate, &i.Name, &i.UserID)
	return i, err
}

const createVersion = `
INSERT INTO content_version (node_id, current, published, version_date, name, user_id)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + versionColumns

type CreateVersionParams struct {
	NodeID      int64
	Current     bool
	Published   bool
	VersionDate time.Time
	Name        string
	UserID      int64
}

func (q *Queries) CreateVersion(ctx context.Context, arg CreateVersionParams) (ContentVersion, error) {
	row := q.db.QueryRowContext(ctx, createVersion, arg.NodeID, arg.Current, arg.Published,
		arg.VersionDate.UTC(), arg.Name, arg.UserID)
	return scanVersion(row)
}

const getVersion = `SELECT ` + versionColumns + ` FROM content_version WHERE id = ?`

func (q *Queries) GetVersion(ctx context.Context, id int64) (ContentVersion, error) {
	return scanVersion(q.db.QueryRowContext(ctx, getVersion, id))
}

const setVersionCurrent = `UPDATE content_version SET current = ? WHERE id = ?`

func (q *Queries) SetVersionCurrent(ctx context.Context, id int64, current bool) error {
	_, err := q.db.ExecContext(ctx, setVersionCurrent, current, id)
	return err
}

const setVersionPublished = `UPDATE content_version SET published = ? WHERE id = ?`

func (q *Queries) SetVersionPublished(ctx context.Context, id int64, published bool) error {
	_, err := q.db.ExecContext(ctx, setVersionPublished, published, id)
	return err
}

const clearPublishedVersion = `UPDATE content_version SET published = 0 WHERE node_id = ? AND published = 1`

// ClearPublishedVersion demotes the published snapshot of a node, if any.
// It returns the number of rows changed.
func (q *Queries) ClearPublishedVersion(ctx context.Context, nodeID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, clearPublishedVersion, nodeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateVersion = `UPDATE content_version SET name = ?, version_date = ?, user_id = ? WHERE id = ?`

type UpdateVersionParams struct {
	ID          int64
	Name        string
	VersionDate time.Time
	UserID      int64
}

func (q *Queries) UpdateVersion(ctx context.Context, arg UpdateVersionParams) error {
	_, err := q.db.ExecContext(ctx, updateVersion, arg.Name, arg.VersionDate.UTC(), arg.UserID, arg.ID)
	return err
}

const listVersions = `
SELECT ` + versionColumns + `
FROM content_version
WHERE node_id = ?
ORDER BY version_date DESC, id DESC
`

func (q *Queries) ListVersions(ctx context.Context, nodeID int64) ([]ContentVersion, error) {
	rows, err := q.db.QueryContext(ctx, listVersions, nodeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []ContentVersion
	for rows.Next() {
		i, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listVersionIDsBefore = `
SELECT id FROM content_version
WHERE node_id = ? AND version_date < ? AND current = 0 AND published = 0
ORDER BY id
`

// ListVersionIDsBefore returns historical versions older than cutoff. The
// current draft and the published snapshot are never included.
func (q *Queries) ListVersionIDsBefore(ctx context.Context, nodeID int64, cutoff time.Time) ([]int64, error) {
	return q.QueryInt64s(ctx, listVersionIDsBefore, nodeID, cutoff.UTC())
}

const listVersionIDsForNode = `SELECT id FROM content_version WHERE node_id = ? ORDER BY id`

func (q *Queries) ListVersionIDsForNode(ctx context.Context, nodeID int64) ([]int64, error) {
	return q.QueryInt64s(ctx, listVersionIDsForNode, nodeID)
}

const deleteVersion = `DELETE FROM content_version WHERE id = ?`

func (q *Queries) DeleteVersion(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteVersion, id)
	return err
}

const upsertDocument = `
INSERT INTO document (node_id, published, edited, publish_date, publisher_id, publish_name, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(node_id) DO UPDATE SET
    published = excluded.published,
    edited = excluded.edited,
    publish_date = excluded.publish_date,
    publisher_id = excluded.publisher_id,
    publish_name = excluded.publish_name,
    updated_at = excluded.updated_at
`

type UpsertDocumentParams = Document

func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	publishDate := arg.PublishDate
	if publishDate.Valid {
		publishDate.Time = publishDate.Time.UTC()
	}
	_, err := q.db.ExecContext(ctx, upsertDocument, arg.NodeID, arg.Published, arg.Edited,
		publishDate, arg.PublisherID, arg.PublishName, arg.UpdatedAt.UTC())
	return err
}

const getDocument = `
SELECT node_id, published, edited, publish_date, publisher_id, publish_name, updated_at
FROM document WHERE node_id = ?
`

func (q *Queries) GetDocument(ctx context.Context, nodeID int64) (Document, error) {
	var i Document
	err := q.db.QueryRowContext(ctx, getDocument, nodeID).Scan(&i.NodeID, &i.Published, &i.Edited,
		&i.PublishDate, &i.PublisherID, &i.PublishName, &i.UpdatedAt)
	return i, err
}

const deleteDocument = `DELETE FROM document WHERE node_id = ?`

func (q *Queries) DeleteDocument(ctx context.Context, nodeID int64) error {
	_, err := q.db.ExecContext(ctx, deleteDocument, nodeID)
	return err
}
