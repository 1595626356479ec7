// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import "context"

const contentTypeColumns = `id, alias, name, object_type, variations`

func scanContentType(row interface{ Scan(...any) error }) (ContentType, error) {
	var i ContentType
	err := row.Scan(&i.ID, &i.Alias, &i.Name, &i.ObjectType, &i.Variations)
	return i, err
}

const createContentType = `
INSERT INTO content_type (alias, name, object_type, variations)
VALUES (?, ?, ?, ?)
RETURNING ` + contentTypeColumns

type CreateContentTypeParams struct {
	Alias      string
	Name       string
	ObjectType string
	Variations int64
}

func (q *Queries) CreateContentType(ctx context.Context, arg CreateContentTypeParams) (ContentType, error) {
	row := q.db.QueryRowContext(ctx, createContentType, arg.Alias, arg.Name, arg.ObjectType, arg.Variations)
	return scanContentType(row)
}

const updateContentType = `UPDATE content_type SET alias = ?, name = ?, variations = ? WHERE id = ?`

type UpdateContentTypeParams struct {
	ID         int64
	Alias      string
	Name       string
	Variations int64
}

func (q *Queries) UpdateContentType(ctx context.Context, arg UpdateContentTypeParams) error {
	_, err := q.db.ExecContext(ctx, updateContentType, arg.Alias, arg.Name, arg.Variations, arg.ID)
	return err
}

const getContentTypeByAlias = `SELECT ` + contentTypeColumns + ` FROM content_type WHERE alias = ? COLLATE NOCASE`

func (q *Queries) GetContentTypeByAlias(ctx context.Context, alias string) (ContentType, error) {
	return scanContentType(q.db.QueryRowContext(ctx, getContentTypeByAlias, alias))
}

const listContentTypes = `SELECT ` + contentTypeColumns + ` FROM content_type ORDER BY id`

func (q *Queries) ListContentTypes(ctx context.Context) ([]ContentType, error) {
	rows, err := q.db.QueryContext(ctx, listContentTypes)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []ContentType
	for rows.Next() {
		i, err := scanContentType(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listCompositions = `SELECT parent_type_id, child_type_id FROM content_type_composition ORDER BY parent_type_id, child_type_id`

// ListCompositions returns every composition edge. ParentTypeID composes
// (includes) ChildTypeID.
func (q *Queries) ListCompositions(ctx context.Context) ([]Composition, error) {
	rows, err := q.db.QueryContext(ctx, listCompositions)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Composition
	for rows.Next() {
		var i Composition
		if err := rows.Scan(&i.ParentTypeID, &i.ChildTypeID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteCompositions = `DELETE FROM content_type_composition WHERE parent_type_id = ?`

func (q *Queries) DeleteCompositions(ctx context.Context, parentTypeID int64) error {
	_, err := q.db.ExecContext(ctx, deleteCompositions, parentTypeID)
	return err
}

const insertComposition = `INSERT INTO content_type_composition (parent_type_id, child_type_id) VALUES (?, ?)`

func (q *Queries) InsertComposition(ctx context.Context, parentTypeID, childTypeID int64) error {
	_, err := q.db.ExecContext(ctx, insertComposition, parentTypeID, childTypeID)
	return err
}

const propertyTypeColumns = `id, content_type_id, alias, name, variations, storage_type, editor_alias, sort_order`

func scanPropertyType(row interface{ Scan(...any) error }) (PropertyType, error) {
	var i PropertyType
	err := row.Scan(&i.ID, &i.ContentTypeID, &i.Alias, &i.Name, &i.Variations, &i.StorageType, &i.EditorAlias, &i.SortOrder)
	return i, err
}

const createPropertyType = `
INSERT INTO property_type (content_type_id, alias, name, variations, storage_type, editor_alias, sort_order)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + propertyTypeColumns

type CreatePropertyTypeParams struct {
	ContentTypeID int64
	Alias         string
	Name          string
	Variations    int64
	StorageType   string
	EditorAlias   string
	SortOrder     int64
}

func (q *Queries) CreatePropertyType(ctx context.Context, arg CreatePropertyTypeParams) (PropertyType, error) {
	row := q.db.QueryRowContext(ctx, createPropertyType, arg.ContentTypeID, arg.Alias, arg.Name,
		arg.Variations, arg.StorageType, arg.EditorAlias, arg.SortOrder)
	return scanPropertyType(row)
}

const updatePropertyType = `
UPDATE property_type
SET alias = ?, name = ?, variations = ?, storage_type = ?, editor_alias = ?, sort_order = ?
WHERE id = ?
`

type UpdatePropertyTypeParams struct {
	ID          int64
	Alias       string
	Name        string
	Variations  int64
	StorageType string
	EditorAlias string
	SortOrder   int64
}

func (q *Queries) UpdatePropertyType(ctx context.Context, arg UpdatePropertyTypeParams) error {
	_, err := q.db.ExecContext(ctx, updatePropertyType, arg.Alias, arg.Name, arg.Variations,
		arg.StorageType, arg.EditorAlias, arg.SortOrder, arg.ID)
	return err
}

const deletePropertyType = `DELETE FROM property_type WHERE id = ?`

func (q *Queries) DeletePropertyType(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deletePropertyType, id)
	return err
}

const listPropertyTypes = `SELECT ` + propertyTypeColumns + ` FROM property_type ORDER BY content_type_id, sort_order, id`

// ListPropertyTypes returns the property types of every content type.
func (q *Queries) ListPropertyTypes(ctx context.Context) ([]PropertyType, error) {
	rows, err := q.db.QueryContext(ctx, listPropertyTypes)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []PropertyType
	for rows.Next() {
		i, err := scanPropertyType(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteTagRelationshipsForType = `DELETE FROM tag_relationship WHERE property_type_id = ?`

// DeleteTagRelationshipsForPropertyType drops every assignment of a removed
// property type.
func (q *Queries) DeleteTagRelationshipsForPropertyType(ctx context.Context, propertyTypeID int64) error {
	_, err := q.db.ExecContext(ctx, deleteTagRelationshipsForType, propertyTypeID)
	return err
}
