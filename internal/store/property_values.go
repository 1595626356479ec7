// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"fmt"
)

// PropertyValueRow is a stored value merged with the metadata of its
// property type.
type PropertyValueRow struct {
	PropertyValue
	PropertyTypeAlias string
	StorageType       string
	EditorAlias       string
	ContentTypeID     int64
}

const listPropertyValuesForVersions = `
SELECT pv.id, pv.version_id, pv.property_type_id, pv.locale_id, pv.segment,
       pv.int_value, pv.decimal_value, pv.date_value, pv.varchar_value, pv.text_value,
       pt.alias, pt.storage_type, pt.editor_alias, pt.content_type_id
FROM property_value pv
LEFT JOIN property_type pt ON pt.id = pv.property_type_id
WHERE pv.version_id IN (%s)
ORDER BY pv.version_id, pv.property_type_id, pv.locale_id, pv.segment
`

// ListPropertyValuesForVersions loads every value stored for the given
// versions, ordered by version id. Callers are responsible for chunking.
func (q *Queries) ListPropertyValuesForVersions(ctx context.Context, versionIDs []int64) ([]PropertyValueRow, error) {
	if len(versionIDs) == 0 {
		return nil, nil
	}
	rows, err := q.db.QueryContext(ctx, expandIn(listPropertyValuesForVersions, len(versionIDs)), int64Args(versionIDs)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []PropertyValueRow
	for rows.Next() {
		var i PropertyValueRow
		var alias, storage, editor *string
		var typeID *int64
		if err := rows.Scan(&i.ID, &i.VersionID, &i.PropertyTypeID, &i.LocaleID, &i.Segment,
			&i.IntValue, &i.DecimalValue, &i.DateValue, &i.VarcharValue, &i.TextValue,
			&alias, &storage, &editor, &typeID); err != nil {
			return nil, err
		}
		if alias != nil {
			i.PropertyTypeAlias = *alias
			i.StorageType = *storage
			i.EditorAlias = *editor
			i.ContentTypeID = *typeID
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertPropertyValue = `
INSERT INTO property_value (version_id, property_type_id, locale_id, segment,
    int_value, decimal_value, date_value, varchar_value, text_value)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertPropertyValue(ctx context.Context, arg PropertyValue) error {
	date := arg.DateValue
	if date.Valid {
		date.Time = date.Time.UTC()
	}
	_, err := q.db.ExecContext(ctx, insertPropertyValue, arg.VersionID, arg.PropertyTypeID, arg.LocaleID, arg.Segment,
		arg.IntValue, arg.DecimalValue, date, arg.VarcharValue, arg.TextValue)
	return err
}

const deletePropertyValuesForVersion = `DELETE FROM property_value WHERE version_id = ?`

func (q *Queries) DeletePropertyValuesForVersion(ctx context.Context, versionID int64) error {
	_, err := q.db.ExecContext(ctx, deletePropertyValuesForVersion, versionID)
	return err
}

const deletePropertyValuesForType = `DELETE FROM property_value WHERE property_type_id = ?`

func (q *Queries) DeletePropertyValuesForType(ctx context.Context, propertyTypeID int64) error {
	_, err := q.db.ExecContext(ctx, deletePropertyValuesForType, propertyTypeID)
	return err
}

// BulkScope restricts a bulk migration statement to a set of property types
// on the nodes of a set of content types.
type BulkScope struct {
	PropertyTypeIDs []int64
	ContentTypeIDs  []int64
}

func (s BulkScope) validate() error {
	if len(s.PropertyTypeIDs) == 0 || len(s.ContentTypeIDs) == 0 {
		return errors.New("bulk scope requires property types and content types")
	}
	return nil
}

// versionFilter renders "version_id IN (versions of nodes of the content types)".
func (s BulkScope) versionFilter(column string) (string, []any) {
	clause := fmt.Sprintf(`%s IN (SELECT cv.id FROM content_version cv JOIN content c ON c.node_id = cv.node_id WHERE c.content_type_id IN (%s))`,
		column, placeholders(len(s.ContentTypeIDs)))
	return clause, int64Args(s.ContentTypeIDs)
}

// CopyPropertyValues copies the values of the scoped property types from the
// source locale to the target locale. Target rows that a source row is about
// to replace are deleted first so the copy cannot collide with the unique
// value key; target rows without a source counterpart are kept.
func (q *Queries) CopyPropertyValues(ctx context.Context, scope BulkScope, source, target LocaleSelector) (int64, error) {
	if err := scope.validate(); err != nil {
		return 0, err
	}
	if target.kind == localeAnyCulture {
		return 0, errors.New("copy target must be a single locale or invariant")
	}

	srcPred, srcArgs := source.predicate("s.locale_id")
	tgtPred, tgtArgs := target.predicate("locale_id")
	versions, versionArgs := scope.versionFilter("version_id")

	clearQuery := fmt.Sprintf(`
DELETE FROM property_value
WHERE property_type_id IN (%s) AND %s AND %s
  AND EXISTS (
    SELECT 1 FROM property_value s
    WHERE s.version_id = property_value.version_id
      AND s.property_type_id = property_value.property_type_id
      AND COALESCE(s.segment, '') = COALESCE(property_value.segment, '')
      AND %s
  )`, placeholders(len(scope.PropertyTypeIDs)), tgtPred, versions, srcPred)

	args := int64Args(scope.PropertyTypeIDs)
	args = append(args, tgtArgs...)
	args = append(args, versionArgs...)
	args = append(args, srcArgs...)
	if _, err := q.db.ExecContext(ctx, clearQuery, args...); err != nil {
		return 0, fmt.Errorf("clearing target values: %w", err)
	}

	srcPred, srcArgs = source.predicate("locale_id")
	insert := fmt.Sprintf(`
INSERT INTO property_value (version_id, property_type_id, locale_id, segment,
    int_value, decimal_value, date_value, varchar_value, text_value)
SELECT version_id, property_type_id, ?, segment,
    int_value, decimal_value, date_value, varchar_value, text_value
FROM property_value
WHERE property_type_id IN (%s) AND %s AND %s`,
		placeholders(len(scope.PropertyTypeIDs)), srcPred, versions)

	args = []any{target.value()}
	args = append(args, int64Args(scope.PropertyTypeIDs)...)
	args = append(args, srcArgs...)
	args = append(args, versionArgs...)

	res, err := q.db.ExecContext(ctx, insert, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeletePropertyValues removes the scoped values stored under the selected locale.
func (q *Queries) DeletePropertyValues(ctx context.Context, scope BulkScope, sel LocaleSelector) (int64, error) {
	if err := scope.validate(); err != nil {
		return 0, err
	}
	pred, predArgs := sel.predicate("locale_id")
	versions, versionArgs := scope.versionFilter("version_id")
	query := fmt.Sprintf(`DELETE FROM property_value WHERE property_type_id IN (%s) AND %s AND %s`,
		placeholders(len(scope.PropertyTypeIDs)), pred, versions)

	args := int64Args(scope.PropertyTypeIDs)
	args = append(args, predArgs...)
	args = append(args, versionArgs...)

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countPropertyValues = `
SELECT COUNT(*) FROM property_value
WHERE property_type_id = ? AND COALESCE(locale_id, 0) = COALESCE(?, 0)
`

// CountPropertyValues counts the rows of a property type under one locale
// (a NULL localeID counts invariant rows).
func (q *Queries) CountPropertyValues(ctx context.Context, propertyTypeID int64, localeID *int64) (int64, error) {
	return q.QueryScalarInt64(ctx, countPropertyValues, propertyTypeID, localeID)
}
