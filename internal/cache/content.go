// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/olegiv/ocms-content/internal/model"
)

const contentKeyPrefix = "content:"

// ContentCache caches content snapshots by node id. Entries must be
// invalidated synchronously after every committed write to the node.
//
// Every invalidation advances a generation. A reader takes the generation
// before loading from the database and hands it to Fill, which drops the
// snapshots if any invalidation happened in between. Fill and the
// invalidations are serialized, so a snapshot loaded before a write can
// never land in the cache after that write's invalidation.
type ContentCache struct {
	backend Cacher
	typed   *TypedCache[model.Snapshot]
	logger  *slog.Logger

	mu  sync.Mutex
	gen uint64
}

// NewContentCache creates a content cache on backend.
func NewContentCache(backend Cacher, ttl time.Duration, logger *slog.Logger) *ContentCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentCache{
		backend: backend,
		typed:   NewTypedCache[model.Snapshot](backend, ttl),
		logger:  logger,
	}
}

func contentKey(id int64) string {
	return contentKeyPrefix + strconv.FormatInt(id, 10)
}

// Get returns the cached snapshot of a node.
func (c *ContentCache) Get(ctx context.Context, id int64) (*model.Snapshot, bool) {
	return c.typed.Get(ctx, contentKey(id))
}

// Generation returns the current invalidation generation.
func (c *ContentCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Fill caches snapshots loaded after Generation returned gen. Nothing is
// stored if the cache was invalidated since; Fill then reports false.
// Backend failures are logged and otherwise ignored.
func (c *ContentCache) Fill(ctx context.Context, gen uint64, snaps ...*model.Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	for _, s := range snaps {
		if err := c.typed.Set(ctx, contentKey(s.ID), s); err != nil {
			c.logger.Warn("caching content failed", "category", model.EventCategoryCache, "node_id", s.ID, "error", err)
		}
	}
	return true
}

// Invalidate removes the snapshots of the given nodes.
func (c *ContentCache) Invalidate(ctx context.Context, ids ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for _, id := range ids {
		if err := c.typed.Delete(ctx, contentKey(id)); err != nil {
			c.logger.Warn("invalidating content failed", "category", model.EventCategoryCache, "node_id", id, "error", err)
		}
	}
}

// prefixDeleter is implemented by backends that can drop a key range.
type prefixDeleter interface {
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// InvalidateAll removes every cached snapshot.
func (c *ContentCache) InvalidateAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	var err error
	if pd, ok := c.backend.(prefixDeleter); ok {
		err = pd.DeleteByPrefix(ctx, contentKeyPrefix)
	} else {
		err = c.backend.Clear(ctx)
	}
	if err != nil {
		c.logger.Warn("clearing content cache failed", "category", model.EventCategoryCache, "error", err)
	}
}
