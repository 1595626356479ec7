// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package property stores typed property values keyed by version, property
// type, locale and segment.
package property

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/store"
)

// DefaultBatchSize keeps batched reads below SQLite's bound-parameter limit.
const DefaultBatchSize = 2000

// Value is one stored property value.
type Value struct {
	PropertyTypeID int64
	Alias          string
	Storage        model.ValueStorage
	LocaleID       int64 // 0 for the invariant value
	Segment        string
	Value          any
}

// VersionRef names the draft and published versions of one content item.
// PublishedVersionID is 0 when the item has no published snapshot.
type VersionRef struct {
	NodeID             int64
	VersionID          int64
	PublishedVersionID int64
}

// Sets holds loaded values indexed by the view they serve.
type Sets struct {
	edited    map[int64][]Value
	published map[int64][]Value
}

// Edited returns the values of the draft version of ref.
func (s *Sets) Edited(ref VersionRef) []Value { return s.edited[ref.VersionID] }

// Published returns the values of the published version of ref.
func (s *Sets) Published(ref VersionRef) []Value {
	if ref.PublishedVersionID == 0 {
		return nil
	}
	return s.published[ref.PublishedVersionID]
}

// Store loads and replaces property values.
type Store struct {
	batchSize int
	strict    bool
	logger    *slog.Logger
}

// Options configure a Store.
type Options struct {
	// BatchSize is the maximum number of version ids per query.
	BatchSize int
	// Strict turns tolerated load anomalies into errors.
	Strict bool
}

// NewStore creates a property store.
func NewStore(opts Options, logger *slog.Logger) *Store {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{batchSize: opts.BatchSize, strict: opts.Strict, logger: logger}
}

// LoadForVersions reads the values of every referenced draft and published
// version in chunked round trips. A version that serves as both the draft and
// the published snapshot of an item is indexed under both views.
func (s *Store) LoadForVersions(ctx context.Context, q *store.Queries, refs []VersionRef) (*Sets, error) {
	sets := &Sets{
		edited:    make(map[int64][]Value),
		published: make(map[int64][]Value),
	}
	if len(refs) == 0 {
		return sets, nil
	}

	asDraft := make(map[int64]bool, len(refs))
	asPublished := make(map[int64]bool, len(refs))
	owner := make(map[int64]int64, len(refs))
	var ids []int64
	for _, ref := range refs {
		if prev, dup := owner[ref.VersionID]; dup {
			if err := s.duplicateSet(ref.NodeID, prev, ref.VersionID); err != nil {
				return nil, err
			}
			continue
		}
		owner[ref.VersionID] = ref.NodeID
		asDraft[ref.VersionID] = true
		ids = append(ids, ref.VersionID)

		if ref.PublishedVersionID == 0 {
			continue
		}
		asPublished[ref.PublishedVersionID] = true
		if ref.PublishedVersionID != ref.VersionID {
			if _, seen := owner[ref.PublishedVersionID]; !seen {
				owner[ref.PublishedVersionID] = ref.NodeID
				ids = append(ids, ref.PublishedVersionID)
			}
		}
	}

	for _, chunk := range store.Chunk(ids, s.batchSize) {
		rows, err := q.ListPropertyValuesForVersions(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("loading property values: %w", err)
		}
		for _, run := range groupByVersion(rows) {
			versionID := run[0].VersionID
			values, err := toValues(versionID, run)
			if err != nil {
				return nil, err
			}
			if asDraft[versionID] {
				sets.edited[versionID] = values
			}
			if asPublished[versionID] {
				sets.published[versionID] = values
			}
		}
	}
	return sets, nil
}

func (s *Store) duplicateSet(nodeID, prevNodeID, versionID int64) error {
	if s.strict {
		return model.Errorf(model.ErrInvalidOperation,
			"multiple property sets found for node %d version %d", nodeID, versionID)
	}
	s.logger.Warn("multiple property sets found during bulk load",
		"category", model.EventCategoryContent,
		"node_id", nodeID, "other_node_id", prevNodeID, "version_id", versionID)
	return nil
}

// groupByVersion splits rows sorted by version id into contiguous runs.
func groupByVersion(rows []store.PropertyValueRow) [][]store.PropertyValueRow {
	var runs [][]store.PropertyValueRow
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].VersionID != rows[start].VersionID {
			runs = append(runs, rows[start:i])
			start = i
		}
	}
	return runs
}

func toValues(versionID int64, rows []store.PropertyValueRow) ([]Value, error) {
	values := make([]Value, 0, len(rows))
	for _, r := range rows {
		if r.PropertyTypeAlias == "" {
			return nil, model.Errorf(model.ErrInvalidOperation,
				"no property data found for version %d (property type %d)", versionID, r.PropertyTypeID)
		}
		storage := model.ValueStorage(r.StorageType)
		v, err := readColumn(storage, r.PropertyValue)
		if err != nil {
			return nil, fmt.Errorf("version %d property %q: %w", versionID, r.PropertyTypeAlias, err)
		}
		values = append(values, Value{
			PropertyTypeID: r.PropertyTypeID,
			Alias:          r.PropertyTypeAlias,
			Storage:        storage,
			LocaleID:       r.LocaleID.Int64,
			Segment:        r.Segment.String,
			Value:          v,
		})
	}
	return values, nil
}

func readColumn(storage model.ValueStorage, pv store.PropertyValue) (any, error) {
	switch storage {
	case model.StorageInteger:
		if pv.IntValue.Valid {
			return pv.IntValue.Int64, nil
		}
	case model.StorageDecimal:
		if pv.DecimalValue.Valid {
			return pv.DecimalValue.Float64, nil
		}
	case model.StorageDate:
		if pv.DateValue.Valid {
			return pv.DateValue.Time.UTC(), nil
		}
	case model.StorageNvarchar:
		if pv.VarcharValue.Valid {
			return pv.VarcharValue.String, nil
		}
	case model.StorageNtext:
		if pv.TextValue.Valid {
			return pv.TextValue.String, nil
		}
	default:
		return nil, model.Errorf(model.ErrInvalidOperation, "unknown value storage %q", string(storage))
	}
	return nil, nil
}

// Replace deletes every value of the version and inserts values. Values that
// are nil are not stored: a missing row means no value.
func (s *Store) Replace(ctx context.Context, q *store.Queries, versionID int64, values []Value) error {
	if err := q.DeletePropertyValuesForVersion(ctx, versionID); err != nil {
		return fmt.Errorf("clearing values of version %d: %w", versionID, err)
	}
	for _, v := range values {
		if v.Value == nil {
			continue
		}
		row, err := writeColumn(v)
		if err != nil {
			return err
		}
		row.VersionID = versionID
		if err := q.InsertPropertyValue(ctx, row); err != nil {
			return fmt.Errorf("inserting value %q of version %d: %w", v.Alias, versionID, err)
		}
	}
	return nil
}

func writeColumn(v Value) (store.PropertyValue, error) {
	row := store.PropertyValue{PropertyTypeID: v.PropertyTypeID}
	if v.LocaleID != 0 {
		row.LocaleID = sql.NullInt64{Int64: v.LocaleID, Valid: true}
	}
	if v.Segment != "" {
		row.Segment = sql.NullString{String: v.Segment, Valid: true}
	}

	normalized, err := v.Storage.Normalize(v.Value)
	if err != nil {
		return row, fmt.Errorf("property %q: %w", v.Alias, err)
	}
	switch x := normalized.(type) {
	case int64:
		row.IntValue = sql.NullInt64{Int64: x, Valid: true}
	case float64:
		row.DecimalValue = sql.NullFloat64{Float64: x, Valid: true}
	case time.Time:
		row.DateValue = sql.NullTime{Time: x, Valid: true}
	case string:
		if v.Storage == model.StorageNtext {
			row.TextValue = sql.NullString{String: x, Valid: true}
		} else {
			row.VarcharValue = sql.NullString{String: x, Valid: true}
		}
	}
	return row, nil
}

// Migrate copies the scoped values from the source locale to the target
// locale, then deletes the scoped values matching remove. Both statements run
// in the caller's transaction.
func (s *Store) Migrate(ctx context.Context, q *store.Queries, scope store.BulkScope, source, target, remove store.LocaleSelector) error {
	copied, err := q.CopyPropertyValues(ctx, scope, source, target)
	if err != nil {
		return fmt.Errorf("copying property values: %w", err)
	}
	deleted, err := q.DeletePropertyValues(ctx, scope, remove)
	if err != nil {
		return fmt.Errorf("deleting migrated property values: %w", err)
	}
	s.logger.Debug("property values migrated",
		"property_types", scope.PropertyTypeIDs, "copied", copied, "deleted", deleted)
	return nil
}
