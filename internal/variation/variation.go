// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package variation rewrites stored content when the culture variation of a
// content type or of its property types changes.
package variation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/property"
	"github.com/olegiv/ocms-content/internal/store"
	"github.com/olegiv/ocms-content/internal/tags"
)

// Spec is the variation configuration of a content type and of the property
// types it declares itself, keyed by property type id.
type Spec struct {
	Variations model.Variation
	Properties map[int64]model.Variation
}

// SpecOf captures the variation configuration of ct. Property types inherited
// through compositions belong to their own type and are not included.
func SpecOf(ct *model.ContentType) Spec {
	s := Spec{Variations: ct.Variations, Properties: make(map[int64]model.Variation, len(ct.PropertyTypes))}
	for _, pt := range ct.PropertyTypes {
		if pt.ID != 0 {
			s.Properties[pt.ID] = pt.Variations
		}
	}
	return s
}

// PromoteToCulture makes the invariant property types of ct vary by culture
// when ct itself starts varying by culture. Property types that are new, or
// that already varied before the change, are left as declared. It returns
// the ids of the promoted property types.
func PromoteToCulture(oldSpec Spec, ct *model.ContentType) []int64 {
	if oldSpec.Variations.VariesByCulture() || !ct.Variations.VariesByCulture() {
		return nil
	}
	var promoted []int64
	for _, pt := range ct.PropertyTypes {
		was, ok := oldSpec.Properties[pt.ID]
		if pt.ID == 0 || !ok || was.VariesByCulture() || pt.Variations.VariesByCulture() {
			continue
		}
		pt.Variations |= model.VariationCulture
		promoted = append(promoted, pt.ID)
	}
	return promoted
}

func (s Spec) validate() error {
	if err := s.Variations.Validate(); err != nil {
		return err
	}
	for _, v := range s.Properties {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Locales provides the default locale used as the migration culture.
type Locales interface {
	DefaultID(ctx context.Context) (int64, error)
}

// Result summarizes a migration.
type Result struct {
	TypeChanged      bool
	ImpactedTypes    []int64
	Properties       int
	NamesMigrated    int64
	RedirectsDeleted int64
	SchedulesDeleted int64
}

// Engine migrates property values, tag assignments and names between their
// invariant and per-culture representations.
type Engine struct {
	props   *property.Store
	tags    *tags.Synchronizer
	locales Locales
	logger  *slog.Logger
}

// NewEngine creates a migration engine.
func NewEngine(props *property.Store, tagSync *tags.Synchronizer, locales Locales, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{props: props, tags: tagSync, locales: locales, logger: logger}
}

type direction int

const (
	toCulture direction = iota
	toNothing
)

// move is one property type migrated in one direction for a set of content
// types.
type move struct {
	propertyTypeID int64
	dir            direction
	contentTypeIDs []int64
}

// MigrateVariation migrates the stored data of content type typeID from the
// old to the new variation configuration. The old configuration must be read
// from the store before the new one is persisted. Every statement runs on q,
// which must be bound to the caller's transaction so that a failure leaves
// nothing half-migrated.
func (e *Engine) MigrateVariation(ctx context.Context, q *store.Queries, typeID int64, oldSpec, newSpec Spec) (Result, error) {
	var res Result
	if err := newSpec.validate(); err != nil {
		return res, err
	}

	impacted, err := e.impactedTypes(ctx, q, typeID, newSpec.Variations)
	if err != nil {
		return res, err
	}
	for _, it := range impacted {
		res.ImpactedTypes = append(res.ImpactedTypes, it.id)
	}
	res.TypeChanged = oldSpec.Variations.VariesByCulture() != newSpec.Variations.VariesByCulture()

	moves := planMoves(typeID, oldSpec, newSpec, impacted)
	if len(moves) == 0 && !res.TypeChanged {
		return res, nil
	}

	defaultID, err := e.locales.DefaultID(ctx)
	if err != nil {
		return res, fmt.Errorf("resolving default locale: %w", err)
	}

	for _, m := range moves {
		if err := e.apply(ctx, q, m, defaultID); err != nil {
			return res, err
		}
	}
	res.Properties = len(moves)

	if res.TypeChanged {
		affected := []int64{typeID}
		if newSpec.Variations.VariesByCulture() {
			n, err := q.MigrateNamesToCulture(ctx, affected, defaultID)
			if err != nil {
				return res, err
			}
			res.NamesMigrated = n
		}
		if res.RedirectsDeleted, err = q.DeleteRedirectsForContentTypes(ctx, affected); err != nil {
			return res, fmt.Errorf("clearing redirects: %w", err)
		}
		if res.SchedulesDeleted, err = q.DeleteSchedulesForContentTypes(ctx, affected); err != nil {
			return res, fmt.Errorf("clearing schedules: %w", err)
		}
	}

	e.logger.Info("content variation migrated",
		"category", model.EventCategoryMigration,
		"content_type_id", typeID,
		"from", oldSpec.Variations.String(),
		"to", newSpec.Variations.String(),
		"impacted_types", res.ImpactedTypes,
		"properties", res.Properties,
		"names", res.NamesMigrated,
		"redirects_deleted", res.RedirectsDeleted,
		"schedules_deleted", res.SchedulesDeleted)
	return res, nil
}

func (e *Engine) apply(ctx context.Context, q *store.Queries, m move, defaultID int64) error {
	scope := store.BulkScope{PropertyTypeIDs: []int64{m.propertyTypeID}, ContentTypeIDs: m.contentTypeIDs}

	source, target, remove := store.InvariantLocale(), store.SpecificLocale(defaultID), store.InvariantLocale()
	if m.dir == toNothing {
		source, target, remove = store.SpecificLocale(defaultID), store.InvariantLocale(), store.AnyCulture()
	}

	if err := e.props.Migrate(ctx, q, scope, source, target, remove); err != nil {
		return fmt.Errorf("migrating property type %d: %w", m.propertyTypeID, err)
	}
	if err := e.tags.Migrate(ctx, q, scope, source, target, remove); err != nil {
		return fmt.Errorf("migrating tags of property type %d: %w", m.propertyTypeID, err)
	}
	return nil
}

// planMoves compares the effective variation of every declared property type
// on every impacted content type before and after the change, and groups the
// differences by target. New property types have nothing stored yet and
// removed ones are handled by their deletion.
func planMoves(typeID int64, oldSpec, newSpec Spec, impacted []impactedType) []move {
	ids := make([]int64, 0, len(newSpec.Properties))
	for id := range newSpec.Properties {
		if _, ok := oldSpec.Properties[id]; ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	var moves []move
	for _, id := range ids {
		oldV, newV := oldSpec.Properties[id], newSpec.Properties[id]
		var culture, nothing []int64
		for _, it := range impacted {
			oldOwner, newOwner := it.variations, it.variations
			if it.id == typeID {
				oldOwner, newOwner = oldSpec.Variations, newSpec.Variations
			}
			from := oldV.Mask(oldOwner).VariesByCulture()
			to := newV.Mask(newOwner).VariesByCulture()
			switch {
			case from == to:
			case to:
				culture = append(culture, it.id)
			default:
				nothing = append(nothing, it.id)
			}
		}
		if len(culture) > 0 {
			moves = append(moves, move{propertyTypeID: id, dir: toCulture, contentTypeIDs: culture})
		}
		if len(nothing) > 0 {
			moves = append(moves, move{propertyTypeID: id, dir: toNothing, contentTypeIDs: nothing})
		}
	}
	return moves
}

type impactedType struct {
	id         int64
	variations model.Variation
}

// impactedTypes returns the changed type followed by every content type that
// composes it, directly or transitively, and varies by culture. Types that do
// not vary by culture are traversed but not returned since their inherited
// properties stay invariant whatever the composed type does.
func (e *Engine) impactedTypes(ctx context.Context, q *store.Queries, typeID int64, variations model.Variation) ([]impactedType, error) {
	types, err := q.ListContentTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing content types: %w", err)
	}
	byID := make(map[int64]model.Variation, len(types))
	for _, t := range types {
		byID[t.ID] = model.Variation(t.Variations)
	}

	edges, err := q.ListCompositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing compositions: %w", err)
	}
	composers := make(map[int64][]int64)
	for _, c := range edges {
		composers[c.ChildTypeID] = append(composers[c.ChildTypeID], c.ParentTypeID)
	}

	out := []impactedType{{id: typeID, variations: variations}}
	visited := map[int64]bool{typeID: true}
	queue := []int64{typeID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, parent := range composers[id] {
			if visited[parent] {
				continue
			}
			visited[parent] = true
			queue = append(queue, parent)
			if v := byID[parent]; v.VariesByCulture() {
				out = append(out, impactedType{id: parent, variations: v})
			}
		}
	}
	return out, nil
}
