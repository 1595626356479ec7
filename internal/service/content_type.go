// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/olegiv/ocms-content/internal/cache"
	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/store"
	"github.com/olegiv/ocms-content/internal/variation"
)

// ContentTypeService persists content types and migrates stored content when
// their variation changes.
type ContentTypeService struct {
	db     *sql.DB
	engine *variation.Engine
	cache  *cache.ContentCache
	events *EventService
	lock   *sync.Mutex
	logger *slog.Logger

	mu    sync.Mutex
	types map[int64]*model.ContentType
	gen   uint64
}

// Get returns a copy of a content type with its compositions resolved.
func (s *ContentTypeService) Get(ctx context.Context, id int64) (*model.ContentType, error) {
	ct, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return ct.Clone(), nil
}

// lookup returns the shared cached type. Content loads use it; callers
// outside the package get clones.
func (s *ContentTypeService) lookup(ctx context.Context, id int64) (*model.ContentType, error) {
	types, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	ct, ok := types[id]
	if !ok {
		return nil, model.Errorf(model.ErrNotFound, "content type %d", id)
	}
	return ct, nil
}

// GetByAlias returns a content type by alias, case-insensitively.
func (s *ContentTypeService) GetByAlias(ctx context.Context, alias string) (*model.ContentType, error) {
	types, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	for _, ct := range types {
		if strings.EqualFold(ct.Alias, alias) {
			return ct.Clone(), nil
		}
	}
	return nil, model.Errorf(model.ErrNotFound, "content type %q", alias)
}

// List returns every content type ordered by id.
func (s *ContentTypeService) List(ctx context.Context) ([]*model.ContentType, error) {
	types, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.ContentType, 0, len(types))
	for _, ct := range types {
		out = append(out, ct.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save creates or updates a content type with its property types and
// compositions. When the variation of the type or of any of its property
// types changes, stored content is migrated in the same transaction. The
// returned result is empty for new types. When an invariant type starts
// varying by culture, its existing invariant property types are promoted to
// vary by culture with it.
func (s *ContentTypeService) Save(ctx context.Context, ct *model.ContentType) (variation.Result, error) {
	var res variation.Result
	if err := ct.Variations.Validate(); err != nil {
		return res, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	// Loaded content shares the cached types, so drop them on every exit.
	defer s.invalidate()

	var promoted []int64
	err := store.InTx(ctx, s.db, func(q *store.Queries) error {
		types, err := loadContentTypes(ctx, q)
		if err != nil {
			return err
		}
		if err := resolveCompositions(ct, types); err != nil {
			return err
		}
		if err := ct.Validate(); err != nil {
			return err
		}

		existing, err := q.GetContentTypeByAlias(ctx, ct.Alias)
		switch {
		case err == nil && existing.ID != ct.ID:
			return model.Errorf(model.ErrDuplicateName, "content type alias %q is already used", ct.Alias)
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("checking alias %q: %w", ct.Alias, err)
		}

		if ct.ID == 0 {
			return s.create(ctx, q, ct)
		}

		old, ok := types[ct.ID]
		if !ok {
			return model.Errorf(model.ErrNotFound, "content type %d", ct.ID)
		}
		oldSpec := variation.SpecOf(old)
		promoted = variation.PromoteToCulture(oldSpec, ct)
		if err := s.update(ctx, q, ct, old); err != nil {
			return err
		}
		res, err = s.engine.MigrateVariation(ctx, q, ct.ID, oldSpec, variation.SpecOf(ct))
		return err
	})
	if err != nil {
		return res, err
	}

	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
	if len(promoted) > 0 {
		s.logger.Info("property types promoted to culture", "category", model.EventCategoryContentType,
			"content_type_id", ct.ID, "property_types", promoted)
	}
	if res.TypeChanged || res.Properties > 0 {
		_ = s.events.LogInfo(ctx, model.EventCategoryMigration, "Content variation migrated", map[string]any{
			"content_type":   ct.Alias,
			"impacted_types": res.ImpactedTypes,
			"properties":     res.Properties,
			"names":          res.NamesMigrated,
		})
	}
	s.logger.Info("content type saved", "category", model.EventCategoryContentType,
		"content_type_id", ct.ID, "alias", ct.Alias, "variations", ct.Variations.String())
	return res, nil
}

func (s *ContentTypeService) create(ctx context.Context, q *store.Queries, ct *model.ContentType) error {
	if ct.ObjectType == "" {
		ct.ObjectType = model.ObjectTypeDocument
	}
	row, err := q.CreateContentType(ctx, store.CreateContentTypeParams{
		Alias: ct.Alias, Name: ct.Name, ObjectType: ct.ObjectType, Variations: int64(ct.Variations),
	})
	if err != nil {
		return fmt.Errorf("creating content type %q: %w", ct.Alias, err)
	}
	ct.ID = row.ID
	for i, pt := range ct.PropertyTypes {
		if err := createPropertyType(ctx, q, ct.ID, i, pt); err != nil {
			return err
		}
	}
	return writeCompositions(ctx, q, ct)
}

func (s *ContentTypeService) update(ctx context.Context, q *store.Queries, ct, old *model.ContentType) error {
	if err := q.UpdateContentType(ctx, store.UpdateContentTypeParams{
		ID: ct.ID, Alias: ct.Alias, Name: ct.Name, Variations: int64(ct.Variations),
	}); err != nil {
		return fmt.Errorf("updating content type %q: %w", ct.Alias, err)
	}

	kept := make(map[int64]bool, len(ct.PropertyTypes))
	for i, pt := range ct.PropertyTypes {
		if pt.ID == 0 {
			if err := createPropertyType(ctx, q, ct.ID, i, pt); err != nil {
				return err
			}
			continue
		}
		kept[pt.ID] = true
		pt.ContentTypeID = ct.ID
		if err := q.UpdatePropertyType(ctx, store.UpdatePropertyTypeParams{
			ID: pt.ID, Alias: pt.Alias, Name: pt.Name, Variations: int64(pt.Variations),
			StorageType: string(pt.Storage), EditorAlias: pt.EditorAlias, SortOrder: int64(i),
		}); err != nil {
			return fmt.Errorf("updating property type %q: %w", pt.Alias, err)
		}
	}

	for _, pt := range old.PropertyTypes {
		if kept[pt.ID] {
			continue
		}
		if err := q.DeletePropertyValuesForType(ctx, pt.ID); err != nil {
			return fmt.Errorf("deleting values of property type %q: %w", pt.Alias, err)
		}
		if err := q.DeleteTagRelationshipsForPropertyType(ctx, pt.ID); err != nil {
			return fmt.Errorf("deleting tags of property type %q: %w", pt.Alias, err)
		}
		if err := q.DeletePropertyType(ctx, pt.ID); err != nil {
			return fmt.Errorf("deleting property type %q: %w", pt.Alias, err)
		}
		s.logger.Info("property type removed", "category", model.EventCategoryContentType,
			"content_type_id", ct.ID, "alias", pt.Alias)
	}

	if err := q.DeleteCompositions(ctx, ct.ID); err != nil {
		return fmt.Errorf("clearing compositions of %q: %w", ct.Alias, err)
	}
	return writeCompositions(ctx, q, ct)
}

func createPropertyType(ctx context.Context, q *store.Queries, typeID int64, sortOrder int, pt *model.PropertyType) error {
	row, err := q.CreatePropertyType(ctx, store.CreatePropertyTypeParams{
		ContentTypeID: typeID, Alias: pt.Alias, Name: pt.Name, Variations: int64(pt.Variations),
		StorageType: string(pt.Storage), EditorAlias: pt.EditorAlias, SortOrder: int64(sortOrder),
	})
	if err != nil {
		return fmt.Errorf("creating property type %q: %w", pt.Alias, err)
	}
	pt.ID = row.ID
	pt.ContentTypeID = typeID
	pt.SortOrder = sortOrder
	return nil
}

func writeCompositions(ctx context.Context, q *store.Queries, ct *model.ContentType) error {
	for _, id := range ct.CompositionIDs() {
		if err := q.InsertComposition(ctx, ct.ID, id); err != nil {
			return fmt.Errorf("adding composition %d to %q: %w", id, ct.Alias, err)
		}
	}
	return nil
}

// resolveCompositions replaces the compositions of ct with the stored types
// so that inherited property types take part in validation. A composition
// that is ct itself, or that already composes ct, is rejected.
func resolveCompositions(ct *model.ContentType, types map[int64]*model.ContentType) error {
	resolved := make([]*model.ContentType, 0, len(ct.Compositions))
	for _, c := range ct.Compositions {
		stored, ok := types[c.ID]
		if !ok {
			return model.Errorf(model.ErrNotFound, "composition %d of %q", c.ID, ct.Alias)
		}
		if ct.ID != 0 && composes(stored, ct.ID) {
			return model.Errorf(model.ErrInvalidOperation, "composition %q of %q would be circular", stored.Alias, ct.Alias)
		}
		resolved = append(resolved, stored)
	}
	ct.Compositions = resolved
	return nil
}

func composes(t *model.ContentType, id int64) bool {
	if t.ID == id {
		return true
	}
	for _, c := range t.Compositions {
		if composes(c, id) {
			return true
		}
	}
	return false
}

// all returns the cached content types, loading them when needed. A load
// racing with Save is not cached.
func (s *ContentTypeService) all(ctx context.Context) (map[int64]*model.ContentType, error) {
	s.mu.Lock()
	types, gen := s.types, s.gen
	s.mu.Unlock()
	if types != nil {
		return types, nil
	}

	types, err := loadContentTypes(ctx, store.New(s.db))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.gen == gen {
		s.types = types
	}
	s.mu.Unlock()
	return types, nil
}

func (s *ContentTypeService) invalidate() {
	s.mu.Lock()
	s.types = nil
	s.gen++
	s.mu.Unlock()
}

// loadContentTypes reads every content type with its property types and
// links compositions between the returned values.
func loadContentTypes(ctx context.Context, q *store.Queries) (map[int64]*model.ContentType, error) {
	rows, err := q.ListContentTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing content types: %w", err)
	}
	types := make(map[int64]*model.ContentType, len(rows))
	for _, r := range rows {
		types[r.ID] = &model.ContentType{
			ID: r.ID, Alias: r.Alias, Name: r.Name, ObjectType: r.ObjectType,
			Variations: model.Variation(r.Variations),
		}
	}

	props, err := q.ListPropertyTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing property types: %w", err)
	}
	for _, p := range props {
		ct, ok := types[p.ContentTypeID]
		if !ok {
			continue
		}
		ct.PropertyTypes = append(ct.PropertyTypes, &model.PropertyType{
			ID: p.ID, ContentTypeID: p.ContentTypeID, Alias: p.Alias, Name: p.Name,
			Variations: model.Variation(p.Variations), Storage: model.ValueStorage(p.StorageType),
			EditorAlias: p.EditorAlias, SortOrder: int(p.SortOrder),
		})
	}

	edges, err := q.ListCompositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing compositions: %w", err)
	}
	for _, e := range edges {
		parent, child := types[e.ParentTypeID], types[e.ChildTypeID]
		if parent != nil && child != nil {
			parent.Compositions = append(parent.Compositions, child)
		}
	}
	return types, nil
}
