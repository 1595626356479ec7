// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"
)

const listCultureVariants = `
SELECT id, version_id, locale_id, name, updated_at
FROM content_version_culture_variant
WHERE version_id IN (%s)
ORDER BY version_id, locale_id
`

// ListCultureVariants returns the per-locale names of the given versions.
func (q *Queries) ListCultureVariants(ctx context.Context, versionIDs []int64) ([]CultureVariant, error) {
	if len(versionIDs) == 0 {
		return nil, nil
	}
	rows, err := q.db.QueryContext(ctx, expandIn(listCultureVariants, len(versionIDs)), int64Args(versionIDs)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []CultureVariant
	for rows.Next() {
		var i CultureVariant
		if err := rows.Scan(&i.ID, &i.VersionID, &i.LocaleID, &i.Name, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertCultureVariant = `
INSERT INTO content_version_culture_variant (version_id, locale_id, name, updated_at)
VALUES (?, ?, ?, ?)
`

type InsertCultureVariantParams struct {
	VersionID int64
	LocaleID  int64
	Name      string
	UpdatedAt time.Time
}

func (q *Queries) InsertCultureVariant(ctx context.Context, arg InsertCultureVariantParams) error {
	_, err := q.db.ExecContext(ctx, insertCultureVariant, arg.VersionID, arg.LocaleID, arg.Name, arg.UpdatedAt.UTC())
	return err
}

const deleteCultureVariants = `DELETE FROM content_version_culture_variant WHERE version_id = ?`

func (q *Queries) DeleteCultureVariants(ctx context.Context, versionID int64) error {
	_, err := q.db.ExecContext(ctx, deleteCultureVariants, versionID)
	return err
}

const listPublishStates = `
SELECT id, node_id, locale_id, name, available, published, edited
FROM document_culture_publish_state
WHERE node_id IN (%s)
ORDER BY node_id, locale_id
`

// ListPublishStates returns the node-level culture publish flags.
func (q *Queries) ListPublishStates(ctx context.Context, nodeIDs []int64) ([]CulturePublishState, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}
	rows, err := q.db.QueryContext(ctx, expandIn(listPublishStates, len(nodeIDs)), int64Args(nodeIDs)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []CulturePublishState
	for rows.Next() {
		var i CulturePublishState
		if err := rows.Scan(&i.ID, &i.NodeID, &i.LocaleID, &i.Name, &i.Available, &i.Published, &i.Edited); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertPublishState = `
INSERT INTO document_culture_publish_state (node_id, locale_id, name, available, published, edited)
VALUES (?, ?, ?, ?, ?, ?)
`

type InsertPublishStateParams struct {
	NodeID    int64
	LocaleID  int64
	Name      string
	Available bool
	Published bool
	Edited    bool
}

func (q *Queries) InsertPublishState(ctx context.Context, arg InsertPublishStateParams) error {
	_, err := q.db.ExecContext(ctx, insertPublishState, arg.NodeID, arg.LocaleID, arg.Name,
		arg.Available, arg.Published, arg.Edited)
	return err
}

const deletePublishStates = `DELETE FROM document_culture_publish_state WHERE node_id = ?`

func (q *Queries) DeletePublishStates(ctx context.Context, nodeID int64) error {
	_, err := q.db.ExecContext(ctx, deletePublishStates, nodeID)
	return err
}

const unpublishPublishStates = `UPDATE document_culture_publish_state SET published = 0 WHERE node_id = ?`

// UnpublishPublishStates clears the published flag of every culture of a node.
func (q *Queries) UnpublishPublishStates(ctx context.Context, nodeID int64) error {
	_, err := q.db.ExecContext(ctx, unpublishPublishStates, nodeID)
	return err
}

const migrateVersionNamesToCulture = `
INSERT INTO content_version_culture_variant (version_id, locale_id, name, updated_at)
SELECT cv.id, ?, cv.name, cv.version_date
FROM content_version cv
JOIN content c ON c.node_id = cv.node_id
WHERE c.content_type_id IN (%s)
  AND NOT EXISTS (
    SELECT 1 FROM content_version_culture_variant x
    WHERE x.version_id = cv.id AND x.locale_id = ?
  )
`

const migratePublishNamesToCulture = `
INSERT INTO document_culture_publish_state (node_id, locale_id, name, available, published, edited)
SELECT d.node_id, ?, COALESCE(NULLIF(cv.name, ''), pcv.name, ''), 1, d.published, d.edited
FROM document d
JOIN content c ON c.node_id = d.node_id
JOIN content_version cv ON cv.node_id = d.node_id AND cv.current = 1
LEFT JOIN content_version pcv ON pcv.node_id = d.node_id AND pcv.published = 1
WHERE c.content_type_id IN (%s)
  AND NOT EXISTS (
    SELECT 1 FROM document_culture_publish_state x
    WHERE x.node_id = d.node_id AND x.locale_id = ?
  )
`

// MigrateNamesToCulture copies invariant version names and document publish
// names of the given content types into the culture tables under localeID.
// Rows that already exist for that locale are kept.
func (q *Queries) MigrateNamesToCulture(ctx context.Context, contentTypeIDs []int64, localeID int64) (int64, error) {
	if len(contentTypeIDs) == 0 {
		return 0, nil
	}
	args := []any{localeID}
	args = append(args, int64Args(contentTypeIDs)...)
	args = append(args, localeID)

	res, err := q.db.ExecContext(ctx, expandIn(migrateVersionNamesToCulture, len(contentTypeIDs)), args...)
	if err != nil {
		return 0, fmt.Errorf("migrating version names: %w", err)
	}
	n, _ := res.RowsAffected()

	res, err = q.db.ExecContext(ctx, expandIn(migratePublishNamesToCulture, len(contentTypeIDs)), args...)
	if err != nil {
		return 0, fmt.Errorf("migrating publish names: %w", err)
	}
	m, _ := res.RowsAffected()
	return n + m, nil
}
