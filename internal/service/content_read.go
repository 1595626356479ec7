// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/ordering"
	"github.com/olegiv/ocms-content/internal/property"
	"github.com/olegiv/ocms-content/internal/store"
	"github.com/olegiv/ocms-content/internal/util"
)

// ContentPage is one page of a content listing.
type ContentPage struct {
	Items     []*model.Content
	Total     int64
	PageIndex int
	PageSize  int
}

// Get returns the content of a node with its draft and published values.
func (s *ContentService) Get(ctx context.Context, id int64) (*model.Content, error) {
	items, err := s.GetMany(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, model.Errorf(model.ErrNotFound, "content %d", id)
	}
	return items[0], nil
}

// GetMany returns the content of the given nodes in the order requested.
// Missing nodes are skipped. Cached snapshots are used when available and
// the rest is loaded in batched reads. Loaded snapshots are cached only if
// no write invalidated the cache while they were read.
func (s *ContentService) GetMany(ctx context.Context, ids []int64) ([]*model.Content, error) {
	found := make(map[int64]*model.Content, len(ids))
	var misses []int64
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		if c := s.cached(ctx, id); c != nil {
			found[id] = c
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		var gen uint64
		if s.cache != nil {
			gen = s.cache.Generation()
		}
		loaded, err := s.load(ctx, store.New(s.db), misses)
		if err != nil {
			return nil, err
		}
		snaps := make([]*model.Snapshot, 0, len(loaded))
		for _, c := range loaded {
			found[c.ID] = c
			snap := c.Snapshot()
			snaps = append(snaps, &snap)
		}
		if s.cache != nil && len(snaps) > 0 {
			s.cache.Fill(ctx, gen, snaps...)
		}
	}

	out := make([]*model.Content, 0, len(ids))
	for _, id := range ids {
		if c, ok := found[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetPage returns page pageIndex (zero-based) of content matching filter,
// ordered by o with the node id as the final tie-break.
func (s *ContentService) GetPage(ctx context.Context, filter ordering.Filter, o ordering.Ordering, pageIndex, pageSize int) (ContentPage, error) {
	page, err := s.resolver.GetPage(ctx, store.New(s.db), filter, o, pageIndex, pageSize)
	if err != nil {
		return ContentPage{}, err
	}
	items, err := s.GetMany(ctx, page.IDs)
	if err != nil {
		return ContentPage{}, err
	}
	return ContentPage{Items: items, Total: page.Total, PageIndex: pageIndex, PageSize: pageSize}, nil
}

func (s *ContentService) cached(ctx context.Context, id int64) *model.Content {
	if s.cache == nil {
		return nil
	}
	snap, ok := s.cache.Get(ctx, id)
	if !ok {
		return nil
	}
	ct, err := s.types.lookup(ctx, snap.ContentTypeID)
	if err != nil {
		return nil
	}
	c, err := model.Restore(*snap, ct)
	if err != nil {
		s.logger.Warn("discarding cached content", "category", model.EventCategoryCache, "node_id", id, "error", err)
		s.cache.Invalidate(ctx, id)
		return nil
	}
	return c
}

// loadOne loads a node inside the caller's transaction, bypassing the cache.
func (s *ContentService) loadOne(ctx context.Context, q *store.Queries, id int64) (*model.Content, error) {
	items, err := s.load(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, model.Errorf(model.ErrNotFound, "content %d", id)
	}
	return items[0], nil
}

// load reads content rows, property values and culture data of ids in
// batched round trips.
func (s *ContentService) load(ctx context.Context, q *store.Queries, ids []int64) ([]*model.Content, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	types, err := s.types.all(ctx)
	if err != nil {
		return nil, err
	}

	var rows []store.ContentRow
	for _, chunk := range store.Chunk(ids, s.batchSize) {
		r, err := q.ListContentRows(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("loading content: %w", err)
		}
		rows = append(rows, r...)
	}

	items := make([]*model.Content, 0, len(rows))
	refs := make([]property.VersionRef, 0, len(rows))
	for _, r := range rows {
		ct, ok := types[r.ContentTypeID]
		if !ok {
			return nil, model.Errorf(model.ErrInvalidOperation, "content %d has unknown content type %d", r.ID, r.ContentTypeID)
		}
		c, err := contentFromRow(r, ct)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
		refs = append(refs, property.VersionRef{NodeID: c.ID, VersionID: c.VersionID, PublishedVersionID: c.PublishedVersionID})
	}

	sets, err := s.props.LoadForVersions(ctx, q, refs)
	if err != nil {
		return nil, err
	}
	for i, c := range items {
		if err := property.ApplyTo(ctx, c, sets.Edited(refs[i]), false, s.locales); err != nil {
			return nil, err
		}
		if c.PublishedVersionID != 0 {
			if err := property.ApplyTo(ctx, c, sets.Published(refs[i]), true, s.locales); err != nil {
				return nil, err
			}
		}
	}
	if err := s.tracker.Load(ctx, q, items); err != nil {
		return nil, err
	}
	return items, nil
}

func contentFromRow(r store.ContentRow, ct *model.ContentType) (*model.Content, error) {
	key, err := uuid.Parse(r.UniqueID)
	if err != nil {
		return nil, fmt.Errorf("node %d has an invalid key %q: %w", r.ID, r.UniqueID, err)
	}
	c := model.NewContent(r.VersionName, r.ParentID, ct)
	c.ID = r.ID
	c.Key = key
	c.Path = r.Path
	c.Level = int(r.Level)
	c.SortOrder = int(r.SortOrder)
	c.Trashed = r.Trashed
	c.CreatorID = r.CreatorID
	c.CreatedAt = r.CreatedAt
	c.WriterID = r.WriterID
	c.UpdatedAt = util.TimeFromNull(r.UpdatedAt)
	c.VersionID = r.VersionID

	c.Published = r.Published.Bool
	if c.Published && r.PublishedVersionID.Valid {
		c.PublishedVersionID = r.PublishedVersionID.Int64
		c.PublishName = r.PublishName.String
		c.PublishDate = util.TimeFromNull(r.PublishDate)
		c.PublisherID = util.IDFromNull(r.PublisherID)
	}
	return c, nil
}

// Tags returns the tags assigned to a node.
func (s *ContentService) Tags(ctx context.Context, nodeID int64) ([]model.TagAssignment, error) {
	c, err := s.Get(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return s.tags.Assignments(ctx, store.New(s.db), c)
}
