// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const nodeColumns = `id, unique_id, parent_id, path, level, sort_order, trashed, object_type, created_at, creator_id`

func scanNode(row interface{ Scan(...any) error }) (Node, error) {
	var i Node
	err := row.Scan(&i.ID, &i.UniqueID, &i.ParentID, &i.Path, &i.Level, &i.SortOrder,
		&i.Trashed, &i.ObjectType, &i.CreatedAt, &i.CreatorID)
	return i, err
}

const createNode = `
INSERT INTO node (unique_id, parent_id, path, level, sort_order, trashed, object_type, created_at, creator_id)
VALUES (?, ?, '', ?, ?, 0, ?, ?, ?)
RETURNING ` + nodeColumns

type CreateNodeParams struct {
	UniqueID   string
	ParentID   int64
	Level      int64
	SortOrder  int64
	ObjectType string
	CreatedAt  time.Time
	CreatorID  int64
}

// CreateNode inserts a node with an empty path; the path embeds the new id
// and is written with UpdateNodePath once the id is known.
func (q *Queries) CreateNode(ctx context.Context, arg CreateNodeParams) (Node, error) {
	row := q.db.QueryRowContext(ctx, createNode, arg.UniqueID, arg.ParentID, arg.Level, arg.SortOrder,
		arg.ObjectType, arg.CreatedAt.UTC(), arg.CreatorID)
	return scanNode(row)
}

const getNode = `SELECT ` + nodeColumns + ` FROM node WHERE id = ?`

func (q *Queries) GetNode(ctx context.Context, id int64) (Node, error) {
	return scanNode(q.db.QueryRowContext(ctx, getNode, id))
}

const getNodeByKey = `SELECT ` + nodeColumns + ` FROM node WHERE unique_id = ?`

func (q *Queries) GetNodeByKey(ctx context.Context, key string) (Node, error) {
	return scanNode(q.db.QueryRowContext(ctx, getNodeByKey, key))
}

const updateNodePath = `UPDATE node SET path = ?, level = ? WHERE id = ?`

func (q *Queries) UpdateNodePath(ctx context.Context, id int64, path string, level int64) error {
	_, err := q.db.ExecContext(ctx, updateNodePath, path, level, id)
	return err
}

const updateNodePosition = `UPDATE node SET parent_id = ?, path = ?, level = ?, sort_order = ? WHERE id = ?`

type UpdateNodePositionParams struct {
	ID        int64
	ParentID  int64
	Path      string
	Level     int64
	SortOrder int64
}

func (q *Queries) UpdateNodePosition(ctx context.Context, arg UpdateNodePositionParams) error {
	_, err := q.db.ExecContext(ctx, updateNodePosition, arg.ParentID, arg.Path, arg.Level, arg.SortOrder, arg.ID)
	return err
}

const setNodeTrashed = `UPDATE node SET trashed = ? WHERE id = ?`

func (q *Queries) SetNodeTrashed(ctx context.Context, id int64, trashed bool) error {
	_, err := q.db.ExecContext(ctx, setNodeTrashed, trashed, id)
	return err
}

const maxChildSortOrder = `SELECT COALESCE(MAX(sort_order), -1) FROM node WHERE parent_id = ?`

func (q *Queries) MaxChildSortOrder(ctx context.Context, parentID int64) (int64, error) {
	var max int64
	err := q.db.QueryRowContext(ctx, maxChildSortOrder, parentID).Scan(&max)
	return max, err
}

const listDescendants = `
SELECT ` + nodeColumns + `
FROM node
WHERE path LIKE ? || ',%'
ORDER BY level, sort_order, id
`

// ListDescendants returns every node below the node whose path is given,
// parents before children.
func (q *Queries) ListDescendants(ctx context.Context, path string) ([]Node, error) {
	rows, err := q.db.QueryContext(ctx, listDescendants, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Node
	for rows.Next() {
		i, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteNode = `DELETE FROM node WHERE id = ?`

func (q *Queries) DeleteNode(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteNode, id)
	return err
}

const createContent = `INSERT INTO content (node_id, content_type_id) VALUES (?, ?)`

func (q *Queries) CreateContent(ctx context.Context, nodeID, contentTypeID int64) error {
	_, err := q.db.ExecContext(ctx, createContent, nodeID, contentTypeID)
	return err
}

const deleteContent = `DELETE FROM content WHERE node_id = ?`

func (q *Queries) DeleteContent(ctx context.Context, nodeID int64) error {
	_, err := q.db.ExecContext(ctx, deleteContent, nodeID)
	return err
}

const listSiblingNames = `
SELECT cv.name
FROM node n
JOIN content_version cv ON cv.node_id = n.id AND cv.current = 1
WHERE n.parent_id = ? AND n.id <> ?
`

// ListSiblingNames returns the current invariant names of the nodes sharing
// parentID, excluding excludeID.
func (q *Queries) ListSiblingNames(ctx context.Context, parentID, excludeID int64) ([]string, error) {
	return q.queryStrings(ctx, listSiblingNames, parentID, excludeID)
}

const listSiblingCultureNames = `
SELECT ccv.name
FROM node n
JOIN content_version cv ON cv.node_id = n.id AND cv.current = 1
JOIN content_version_culture_variant ccv ON ccv.version_id = cv.id AND ccv.locale_id = ?
WHERE n.parent_id = ? AND n.id <> ?
`

// ListSiblingCultureNames is ListSiblingNames for one locale.
func (q *Queries) ListSiblingCultureNames(ctx context.Context, parentID, excludeID, localeID int64) ([]string, error) {
	return q.queryStrings(ctx, listSiblingCultureNames, localeID, parentID, excludeID)
}

const listPublishedNames = `
SELECT n.id, COALESCE(ccv.name, pcv.name)
FROM node n
JOIN content_version pcv ON pcv.node_id = n.id AND pcv.published = 1
LEFT JOIN content_version_culture_variant ccv ON ccv.version_id = pcv.id AND ccv.locale_id = ?
WHERE n.id IN (%s)
`

// ListPublishedNames maps node ids to their published name, preferring the
// culture name for localeID when one exists. Unpublished nodes are absent.
func (q *Queries) ListPublishedNames(ctx context.Context, ids []int64, localeID sql.NullInt64) (map[int64]string, error) {
	result := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query := expandIn(listPublishedNames, len(ids))
	args := append([]any{localeID}, int64Args(ids)...)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		result[id] = name
	}
	return result, rows.Err()
}

// ContentRow is a node joined with its content type, current and published
// version and document flags.
type ContentRow struct {
	Node
	ContentTypeID        int64
	VersionID            int64
	VersionName          string
	VersionDate          time.Time
	WriterID             int64
	PublishedVersionID   sql.NullInt64
	PublishedVersionName sql.NullString
	PublishedVersionDate sql.NullTime
	Published            sql.NullBool
	Edited               sql.NullBool
	PublishDate          sql.NullTime
	PublisherID          sql.NullInt64
	PublishName          sql.NullString
	UpdatedAt            sql.NullTime
}

const listContentRows = `
SELECT n.id, n.unique_id, n.parent_id, n.path, n.level, n.sort_order, n.trashed, n.object_type, n.created_at, n.creator_id,
       c.content_type_id,
       cv.id, cv.name, cv.version_date, cv.user_id,
       pcv.id, pcv.name, pcv.version_date,
       d.published, d.edited, d.publish_date, d.publisher_id, d.publish_name, d.updated_at
FROM node n
JOIN content c ON c.node_id = n.id
JOIN content_version cv ON cv.node_id = n.id AND cv.current = 1
LEFT JOIN content_version pcv ON pcv.node_id = n.id AND pcv.published = 1
LEFT JOIN document d ON d.node_id = n.id
WHERE n.id IN (%s)
`

// ListContentRows loads content rows for the given node ids. Rows come back in
// id order; missing ids are simply absent.
func (q *Queries) ListContentRows(ctx context.Context, ids []int64) ([]ContentRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.db.QueryContext(ctx, expandIn(listContentRows, len(ids))+" ORDER BY n.id", int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []ContentRow
	for rows.Next() {
		var i ContentRow
		if err := rows.Scan(&i.ID, &i.UniqueID, &i.ParentID, &i.Path, &i.Level, &i.SortOrder,
			&i.Trashed, &i.ObjectType, &i.CreatedAt, &i.CreatorID,
			&i.ContentTypeID,
			&i.VersionID, &i.VersionName, &i.VersionDate, &i.WriterID,
			&i.PublishedVersionID, &i.PublishedVersionName, &i.PublishedVersionDate,
			&i.Published, &i.Edited, &i.PublishDate, &i.PublisherID, &i.PublishName, &i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// QueryInt64s runs a single-column integer query. The paging resolver uses
// it to execute generated id queries.
func (q *Queries) QueryInt64s(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	return items, rows.Err()
}

// QueryScalarInt64 runs a query returning one integer, such as a count.
func (q *Queries) QueryScalarInt64(ctx context.Context, query string, args ...any) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&v)
	return v, err
}

func (q *Queries) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
