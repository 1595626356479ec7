// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tags keeps tag assignments in step with tag-editor property values.
package tags

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/olegiv/ocms-content/internal/editor"
	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/store"
)

// Locales maps cultures to locale ids.
type Locales interface {
	IDByIso(ctx context.Context, iso string) (int64, error)
	IsoByID(ctx context.Context, id int64) (string, error)
}

// Synchronizer recomputes tag assignments of saved content.
type Synchronizer struct {
	editors editor.Provider
	locales Locales
	logger  *slog.Logger
}

// NewSynchronizer creates a tag synchronizer.
func NewSynchronizer(editors editor.Provider, locales Locales, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{editors: editors, locales: locales, logger: logger}
}

// Sync replaces the assignments of every tag property of c with the tags
// parsed from its edited values. Culture-varying properties produce tags of
// their culture; the others produce invariant tags.
func (s *Synchronizer) Sync(ctx context.Context, q *store.Queries, c *model.Content) error {
	for _, p := range c.Properties() {
		cfg, ok := s.editors.TagConfiguration(p.Type.EditorAlias)
		if !ok {
			continue
		}
		if err := q.DeleteTagRelationships(ctx, c.ID, p.Type.ID); err != nil {
			return fmt.Errorf("clearing tags of %q on node %d: %w", p.Alias(), c.ID, err)
		}
		variesByCulture := c.ContentType.PropertyVariation(p.Type).VariesByCulture()

		for _, pv := range p.Values() {
			text, ok := pv.Edited.(string)
			if !ok || text == "" {
				continue
			}
			var localeID sql.NullInt64
			if variesByCulture && pv.Culture != "" {
				id, err := s.locales.IDByIso(ctx, pv.Culture)
				if err != nil {
					return err
				}
				localeID = sql.NullInt64{Int64: id, Valid: true}
			}
			for _, t := range cfg.Parse(text) {
				tag, err := q.EnsureTag(ctx, t, cfg.Group, localeID)
				if err != nil {
					return fmt.Errorf("ensuring tag %q: %w", t, err)
				}
				if err := q.InsertTagRelationship(ctx, c.ID, p.Type.ID, tag.ID); err != nil {
					return fmt.Errorf("assigning tag %q to node %d: %w", t, c.ID, err)
				}
			}
		}
	}
	return nil
}

// Clear removes every assignment of a node. Catalog entries are kept.
func (s *Synchronizer) Clear(ctx context.Context, q *store.Queries, nodeID int64) error {
	if err := q.DeleteNodeTagRelationships(ctx, nodeID); err != nil {
		return fmt.Errorf("clearing tags of node %d: %w", nodeID, err)
	}
	return nil
}

// Assignments lists the tags assigned to a node.
func (s *Synchronizer) Assignments(ctx context.Context, q *store.Queries, c *model.Content) ([]model.TagAssignment, error) {
	rows, err := q.ListTagAssignments(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("listing tags of node %d: %w", c.ID, err)
	}
	aliases := make(map[int64]string)
	for _, pt := range c.ContentType.AllPropertyTypes() {
		aliases[pt.ID] = pt.Alias
	}
	out := make([]model.TagAssignment, 0, len(rows))
	for _, r := range rows {
		culture := ""
		if r.Tag.LocaleID.Valid {
			iso, err := s.locales.IsoByID(ctx, r.Tag.LocaleID.Int64)
			if err != nil {
				return nil, err
			}
			culture = iso
		}
		out = append(out, model.TagAssignment{
			NodeID:        r.NodeID,
			PropertyAlias: aliases[r.PropertyTypeID],
			Tag:           model.Tag{ID: r.Tag.ID, Text: r.Tag.Text, Group: r.Tag.Group, Culture: culture},
		})
	}
	return out, nil
}

// Migrate moves the scoped assignments from source-locale tags to the same
// tags under the target locale. Missing target tags are created, the
// relationships are re-pointed, then relationships to tags matching remove
// are deleted. Tag catalog rows are never deleted since other types may
// reference them.
func (s *Synchronizer) Migrate(ctx context.Context, q *store.Queries, scope store.BulkScope, source, target, remove store.LocaleSelector) error {
	created, err := q.CopyTags(ctx, scope, source, target)
	if err != nil {
		return fmt.Errorf("copying tags: %w", err)
	}
	repointed, err := q.RepointTagRelationships(ctx, scope, source, target)
	if err != nil {
		return fmt.Errorf("re-pointing tag relationships: %w", err)
	}
	removed, err := q.DeleteScopedTagRelationships(ctx, scope, remove)
	if err != nil {
		return fmt.Errorf("removing migrated tag relationships: %w", err)
	}
	s.logger.Debug("tags migrated", "created", created, "repointed", repointed, "removed", removed)
	return nil
}
