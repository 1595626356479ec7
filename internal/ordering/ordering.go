// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ordering resolves sort requests into SQL fragments and pages
// content listings deterministically.
package ordering

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/store"
)

// Direction is the sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) keyword() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// FieldKind identifies what an ordering sorts by.
type FieldKind int

const (
	FieldID FieldKind = iota
	FieldSortOrder
	FieldPath
	FieldOwner
	FieldCreateDate
	FieldUpdateDate
	FieldName
	FieldCustom
)

var systemFields = map[string]FieldKind{
	"id":         FieldID,
	"sortorder":  FieldSortOrder,
	"path":       FieldPath,
	"owner":      FieldOwner,
	"creator":    FieldOwner,
	"createdate": FieldCreateDate,
	"updatedate": FieldUpdateDate,
	"name":       FieldName,
}

// Ordering is a sort request. Field names a system field unless Custom is
// set, in which case it is a property type alias. Culture selects the locale
// of culture names and culture-varying property values.
type Ordering struct {
	Field     string
	Direction Direction
	Culture   string
	Custom    bool
}

// culturePlaceholder marks the argument slots that receive the requested
// culture at execution time.
type culturePlaceholder struct{}

// CulturePlaceholder is the sentinel argument substituted by Bind.
var CulturePlaceholder any = culturePlaceholder{}

// Bind returns a copy of args with every CulturePlaceholder replaced by
// culture.
func Bind(args []any, culture string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if _, ok := a.(culturePlaceholder); ok {
			out[i] = culture
			continue
		}
		out[i] = a
	}
	return out
}

// Fragment is a resolved ordering: the joins it requires, the expression it
// sorts by and the arguments of the joins. Arguments may contain
// CulturePlaceholder.
type Fragment struct {
	Kind      FieldKind
	Joins     string
	Expr      string
	Args      []any
	direction Direction
}

// OrderBy renders the ORDER BY list. NULL values sort last when ascending and
// first when descending, and node id breaks ties in the same direction so
// pages never overlap.
func (f Fragment) OrderBy() string {
	dir := f.direction.keyword()
	if f.Kind == FieldID {
		return "n.id " + dir
	}
	return fmt.Sprintf("(%s IS NULL) %s, %s %s, n.id %s", f.Expr, dir, f.Expr, dir, dir)
}

const cultureNameJoin = `
LEFT JOIN (
  SELECT ccv.version_id, ccv.name
  FROM content_version_culture_variant ccv
  JOIN locale cl ON cl.id = ccv.locale_id
  WHERE cl.iso_code = ? COLLATE NOCASE
) cn ON cn.version_id = cv.id`

const ownerJoin = `
LEFT JOIN app_user ou ON ou.id = n.creator_id`

// customJoin selects one typed value per current version. The first non-null
// column wins in the order integer, decimal, date, string; a culture row is
// preferred over an invariant one.
const customJoin = `
LEFT JOIN (
  SELECT version_id, sort_value FROM (
    SELECT pv.version_id,
      CASE
        WHEN pv.int_value IS NOT NULL THEN pv.int_value
        WHEN pv.decimal_value IS NOT NULL THEN pv.decimal_value
        WHEN pv.date_value IS NOT NULL THEN pv.date_value
        ELSE COALESCE(pv.varchar_value, pv.text_value)
      END AS sort_value,
      ROW_NUMBER() OVER (PARTITION BY pv.version_id ORDER BY pv.locale_id IS NULL) AS rn
    FROM property_value pv
    JOIN property_type spt ON spt.id = pv.property_type_id
    JOIN content_version sv ON sv.id = pv.version_id AND sv.current = 1
    LEFT JOIN locale sl ON sl.id = pv.locale_id
    WHERE spt.alias = ? AND pv.segment IS NULL
      AND (pv.locale_id IS NULL OR sl.iso_code = ? COLLATE NOCASE)
  ) WHERE rn = 1
) sp ON sp.version_id = cv.id`

type cacheKey struct {
	kind      FieldKind
	alias     string
	direction Direction
	culture   bool
}

// Resolver turns orderings into fragments. Resolved fragments are cached
// without their culture, which is bound per execution.
type Resolver struct {
	mu    sync.RWMutex
	cache map[cacheKey]Fragment
}

// NewResolver creates a resolver.
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[cacheKey]Fragment)}
}

// Resolve maps o to a fragment.
func (r *Resolver) Resolve(o Ordering) (Fragment, error) {
	key := cacheKey{direction: o.Direction, culture: o.Culture != ""}
	if o.Custom {
		alias := strings.TrimSpace(o.Field)
		if alias == "" {
			return Fragment{}, model.Errorf(model.ErrInvalidOperation, "custom ordering requires a property alias")
		}
		key.kind, key.alias = FieldCustom, alias
	} else {
		field := strings.ToLower(strings.TrimSpace(o.Field))
		if field == "" {
			field = "sortorder"
		}
		kind, ok := systemFields[field]
		if !ok {
			return Fragment{}, model.Errorf(model.ErrInvalidOperation, "unknown sort field %q", o.Field)
		}
		key.kind = kind
	}
	if key.kind != FieldName && key.kind != FieldCustom {
		key.culture = false
	}

	r.mu.RLock()
	f, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return f, nil
	}

	f = build(key)
	r.mu.Lock()
	r.cache[key] = f
	r.mu.Unlock()
	return f, nil
}

func build(key cacheKey) Fragment {
	f := Fragment{Kind: key.kind, direction: key.direction}
	switch key.kind {
	case FieldID:
		f.Expr = "n.id"
	case FieldSortOrder:
		f.Expr = "n.sort_order"
	case FieldPath:
		f.Expr = "n.path"
	case FieldOwner:
		f.Joins = ownerJoin
		f.Expr = "ou.name"
	case FieldCreateDate:
		f.Expr = "n.created_at"
	case FieldUpdateDate:
		f.Expr = "cv.version_date"
	case FieldName:
		if key.culture {
			f.Joins = cultureNameJoin
			f.Args = []any{CulturePlaceholder}
			f.Expr = "COALESCE(cn.name, cv.name)"
		} else {
			f.Expr = "cv.name"
		}
	case FieldCustom:
		// Without a culture only invariant rows can match.
		f.Joins = customJoin
		f.Args = []any{key.alias, CulturePlaceholder}
		f.Expr = "sp.sort_value"
	}
	return f
}

// Filter restricts a listing.
type Filter struct {
	// ParentID lists direct children of a node; zero means any parent.
	ParentID int64
	// AncestorID lists every descendant of a node; zero means no restriction.
	AncestorID     int64
	ContentTypeIDs []int64
	IncludeTrashed bool
	PublishedOnly  bool
}

func (f Filter) where() (string, []any) {
	conds := []string{"1 = 1"}
	var args []any
	if f.ParentID != 0 {
		conds = append(conds, "n.parent_id = ?")
		args = append(args, f.ParentID)
	}
	if f.AncestorID != 0 {
		conds = append(conds, "n.path LIKE '%,' || ? || ',%'")
		args = append(args, f.AncestorID)
	}
	if len(f.ContentTypeIDs) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?, ", len(f.ContentTypeIDs)), ", ")
		conds = append(conds, "c.content_type_id IN ("+ph+")")
		for _, id := range f.ContentTypeIDs {
			args = append(args, id)
		}
	}
	if !f.IncludeTrashed {
		conds = append(conds, "n.trashed = 0")
	}
	if f.PublishedOnly {
		conds = append(conds, "d.published = 1")
	}
	return strings.Join(conds, " AND "), args
}

const baseFrom = `
FROM node n
JOIN content c ON c.node_id = n.id
JOIN content_version cv ON cv.node_id = n.id AND cv.current = 1
LEFT JOIN document d ON d.node_id = n.id`

// Page is one page of node ids with the total number of matching nodes.
type Page struct {
	IDs   []int64
	Total int64
}

// GetPage returns page pageIndex (zero-based) of pageSize node ids matching
// filter, ordered by o.
func (r *Resolver) GetPage(ctx context.Context, q *store.Queries, filter Filter, o Ordering, pageIndex, pageSize int) (Page, error) {
	if pageIndex < 0 || pageSize <= 0 {
		return Page{}, model.Errorf(model.ErrInvalidOperation, "invalid page %d of size %d", pageIndex, pageSize)
	}
	frag, err := r.Resolve(o)
	if err != nil {
		return Page{}, err
	}
	where, whereArgs := filter.where()

	total, err := q.QueryScalarInt64(ctx, "SELECT COUNT(*)"+baseFrom+"\nWHERE "+where, whereArgs...)
	if err != nil {
		return Page{}, fmt.Errorf("counting content: %w", err)
	}
	if total == 0 {
		return Page{IDs: []int64{}}, nil
	}

	query := "SELECT n.id" + baseFrom + frag.Joins +
		"\nWHERE " + where +
		"\nORDER BY " + frag.OrderBy() +
		"\nLIMIT ? OFFSET ?"
	args := Bind(frag.Args, o.Culture)
	args = append(args, whereArgs...)
	args = append(args, pageSize, pageIndex*pageSize)

	ids, err := q.QueryInt64s(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("listing content: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return Page{IDs: ids, Total: total}, nil
}
