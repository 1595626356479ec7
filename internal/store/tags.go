// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
)

const insertTagIgnore = `INSERT OR IGNORE INTO tag (text, tag_group, locale_id) VALUES (?, ?, ?)`

const getTag = `
SELECT id, text, tag_group, locale_id FROM tag
WHERE tag_group = ? AND text = ? AND COALESCE(locale_id, 0) = COALESCE(?, 0)
`

// EnsureTag returns the catalog entry for (text, group, locale), creating it
// when it does not exist yet.
func (q *Queries) EnsureTag(ctx context.Context, text, group string, localeID sql.NullInt64) (Tag, error) {
	if _, err := q.db.ExecContext(ctx, insertTagIgnore, text, group, localeID); err != nil {
		return Tag{}, err
	}
	var t Tag
	err := q.db.QueryRowContext(ctx, getTag, group, text, localeID).Scan(&t.ID, &t.Text, &t.Group, &t.LocaleID)
	return t, err
}

const deleteTagRelationships = `DELETE FROM tag_relationship WHERE node_id = ? AND property_type_id = ?`

func (q *Queries) DeleteTagRelationships(ctx context.Context, nodeID, propertyTypeID int64) error {
	_, err := q.db.ExecContext(ctx, deleteTagRelationships, nodeID, propertyTypeID)
	return err
}

const deleteNodeTagRelationships = `DELETE FROM tag_relationship WHERE node_id = ?`

func (q *Queries) DeleteNodeTagRelationships(ctx context.Context, nodeID int64) error {
	_, err := q.db.ExecContext(ctx, deleteNodeTagRelationships, nodeID)
	return err
}

const insertTagRelationship = `
INSERT OR IGNORE INTO tag_relationship (node_id, property_type_id, tag_id) VALUES (?, ?, ?)
`

func (q *Queries) InsertTagRelationship(ctx context.Context, nodeID, propertyTypeID, tagID int64) error {
	_, err := q.db.ExecContext(ctx, insertTagRelationship, nodeID, propertyTypeID, tagID)
	return err
}

// TagAssignment is a relationship row joined with its tag.
type TagAssignment struct {
	NodeID         int64
	PropertyTypeID int64
	Tag            Tag
}

const listTagAssignments = `
SELECT r.node_id, r.property_type_id, t.id, t.text, t.tag_group, t.locale_id
FROM tag_relationship r
JOIN tag t ON t.id = r.tag_id
WHERE r.node_id = ?
ORDER BY r.property_type_id, t.tag_group, t.text
`

func (q *Queries) ListTagAssignments(ctx context.Context, nodeID int64) ([]TagAssignment, error) {
	rows, err := q.db.QueryContext(ctx, listTagAssignments, nodeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []TagAssignment
	for rows.Next() {
		var i TagAssignment
		if err := rows.Scan(&i.NodeID, &i.PropertyTypeID, &i.Tag.ID, &i.Tag.Text, &i.Tag.Group, &i.Tag.LocaleID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countTags = `SELECT COUNT(*) FROM tag`

func (q *Queries) CountTags(ctx context.Context) (int64, error) {
	return q.QueryScalarInt64(ctx, countTags)
}

// relationshipFilter limits tag relationships to the scope's property types
// and the nodes of its content types.
func (s BulkScope) relationshipFilter() (string, []any) {
	clause := fmt.Sprintf(`r.property_type_id IN (%s) AND r.node_id IN (SELECT node_id FROM content WHERE content_type_id IN (%s))`,
		placeholders(len(s.PropertyTypeIDs)), placeholders(len(s.ContentTypeIDs)))
	args := int64Args(s.PropertyTypeIDs)
	return clause, append(args, int64Args(s.ContentTypeIDs)...)
}

// CopyTags creates, for every tag referenced by a scoped relationship under
// the source locale, the same (text, group) under the target locale. Tags
// that already exist are skipped.
func (q *Queries) CopyTags(ctx context.Context, scope BulkScope, source, target LocaleSelector) (int64, error) {
	if err := scope.validate(); err != nil {
		return 0, err
	}
	srcPred, srcArgs := source.predicate("t.locale_id")
	rel, relArgs := scope.relationshipFilter()
	query := fmt.Sprintf(`
INSERT OR IGNORE INTO tag (text, tag_group, locale_id)
SELECT DISTINCT t.text, t.tag_group, ?
FROM tag t
JOIN tag_relationship r ON r.tag_id = t.id
WHERE %s AND %s`, srcPred, rel)

	args := []any{target.value()}
	args = append(args, srcArgs...)
	args = append(args, relArgs...)
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RepointTagRelationships adds, for every scoped relationship to a source
// locale tag, a relationship to the matching target locale tag.
func (q *Queries) RepointTagRelationships(ctx context.Context, scope BulkScope, source, target LocaleSelector) (int64, error) {
	if err := scope.validate(); err != nil {
		return 0, err
	}
	srcPred, srcArgs := source.predicate("t.locale_id")
	rel, relArgs := scope.relationshipFilter()
	query := fmt.Sprintf(`
INSERT OR IGNORE INTO tag_relationship (node_id, property_type_id, tag_id)
SELECT r.node_id, r.property_type_id, nt.id
FROM tag_relationship r
JOIN tag t ON t.id = r.tag_id
JOIN tag nt ON nt.text = t.text AND nt.tag_group = t.tag_group AND COALESCE(nt.locale_id, 0) = COALESCE(?, 0)
WHERE %s AND %s`, srcPred, rel)

	args := []any{target.value()}
	args = append(args, srcArgs...)
	args = append(args, relArgs...)
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteScopedTagRelationships removes scoped relationships whose tag is
// stored under the selected locale. Tag catalog rows are never deleted.
func (q *Queries) DeleteScopedTagRelationships(ctx context.Context, scope BulkScope, sel LocaleSelector) (int64, error) {
	if err := scope.validate(); err != nil {
		return 0, err
	}
	pred, predArgs := sel.predicate("t.locale_id")
	rel, relArgs := scope.relationshipFilter()
	query := fmt.Sprintf(`
DELETE FROM tag_relationship
WHERE rowid IN (
  SELECT r.rowid FROM tag_relationship r
  JOIN tag t ON t.id = r.tag_id
  WHERE %s AND %s
)`, pred, rel)

	args := append(predArgs, relArgs...)
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
