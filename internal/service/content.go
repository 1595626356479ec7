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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/ocms-content/internal/cache"
	"github.com/olegiv/ocms-content/internal/culture"
	"github.com/olegiv/ocms-content/internal/ledger"
	"github.com/olegiv/ocms-content/internal/locale"
	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/ordering"
	"github.com/olegiv/ocms-content/internal/property"
	"github.com/olegiv/ocms-content/internal/store"
	"github.com/olegiv/ocms-content/internal/tags"
	"github.com/olegiv/ocms-content/internal/util"
)

// RootID is the parent id of top-level nodes.
const RootID = -1

// ContentService saves, publishes, moves, deletes and loads content. Every
// write runs in one transaction under the shared write lock.
type ContentService struct {
	db        *sql.DB
	locales   locale.Resolver
	types     *ContentTypeService
	ledger    *ledger.Ledger
	tracker   *culture.Tracker
	props     *property.Store
	tags      *tags.Synchronizer
	resolver  *ordering.Resolver
	cache     *cache.ContentCache
	events    *EventService
	observers []Observer
	lock      *sync.Mutex
	batchSize int
	logger    *slog.Logger
}

// Save persists the draft of c. New content gets its node and first version;
// existing content overwrites its current draft, which must still be the
// node's current version.
func (s *ContentService) Save(ctx context.Context, c *model.Content, userID int64) error {
	return s.write(ctx, func(q *store.Queries) ([]notice, error) {
		if err := s.saveDraft(ctx, q, c, userID); err != nil {
			return nil, err
		}
		return []notice{{kind: noticeSaved, content: c}}, nil
	})
}

// SaveAndPublish persists c and publishes culture. An empty culture or "*"
// publishes every available culture; invariant content ignores culture.
func (s *ContentService) SaveAndPublish(ctx context.Context, c *model.Content, culture string, userID int64) error {
	culture, err := s.canonicalCulture(ctx, culture)
	if err != nil {
		return err
	}
	return s.write(ctx, func(q *store.Queries) ([]notice, error) {
		cultures, err := s.publish(ctx, q, c, culture, userID)
		if err != nil {
			return nil, err
		}
		return []notice{{kind: noticePublished, content: c, cultures: cultures}}, nil
	})
}

// Publish publishes culture of the stored node as it is.
func (s *ContentService) Publish(ctx context.Context, nodeID int64, culture string, userID int64) (*model.Content, error) {
	culture, err := s.canonicalCulture(ctx, culture)
	if err != nil {
		return nil, err
	}
	var c *model.Content
	err = s.write(ctx, func(q *store.Queries) ([]notice, error) {
		var err error
		if c, err = s.loadOne(ctx, q, nodeID); err != nil {
			return nil, err
		}
		cultures, err := s.publish(ctx, q, c, culture, userID)
		if err != nil {
			return nil, err
		}
		return []notice{{kind: noticePublished, content: c, cultures: cultures}}, nil
	})
	return c, err
}

// Unpublish withdraws culture of a node. When other cultures stay published
// the snapshot is rewritten without it; otherwise the node is unpublished.
// Unpublishing content that is not published is a no-op.
func (s *ContentService) Unpublish(ctx context.Context, nodeID int64, culture string, userID int64) (*model.Content, error) {
	culture, err := s.canonicalCulture(ctx, culture)
	if err != nil {
		return nil, err
	}
	var c *model.Content
	err = s.write(ctx, func(q *store.Queries) ([]notice, error) {
		var err error
		if c, err = s.loadOne(ctx, q, nodeID); err != nil {
			return nil, err
		}
		cultures, changed, err := s.unpublish(ctx, q, c, culture, userID)
		if err != nil || !changed {
			return nil, err
		}
		return []notice{{kind: noticeUnpublished, content: c, cultures: cultures}}, nil
	})
	return c, err
}

// Delete removes a node and all of its descendants with every dependent row.
func (s *ContentService) Delete(ctx context.Context, nodeID int64) error {
	return s.write(ctx, func(q *store.Queries) ([]notice, error) {
		node, err := s.getNode(ctx, q, nodeID)
		if err != nil {
			return nil, err
		}
		descendants, err := q.ListDescendants(ctx, node.Path)
		if err != nil {
			return nil, fmt.Errorf("listing descendants of node %d: %w", nodeID, err)
		}

		ids := make([]int64, 0, len(descendants)+1)
		for i := len(descendants) - 1; i >= 0; i-- {
			if err := s.deleteNode(ctx, q, descendants[i]); err != nil {
				return nil, err
			}
			ids = append(ids, descendants[i].ID)
		}
		if err := s.deleteNode(ctx, q, node); err != nil {
			return nil, err
		}
		ids = append(ids, node.ID)

		s.logger.Info("content deleted", "category", model.EventCategoryContent, "node_id", nodeID, "nodes", len(ids))
		return []notice{{kind: noticeDeleted, ids: ids}}, nil
	})
}

// Move places a node, with its subtree, last under parentID.
func (s *ContentService) Move(ctx context.Context, nodeID, parentID int64) error {
	return s.write(ctx, func(q *store.Queries) ([]notice, error) {
		node, err := s.getNode(ctx, q, nodeID)
		if err != nil {
			return nil, err
		}
		parentPath, parentLevel, err := s.parentPosition(ctx, q, parentID)
		if err != nil {
			return nil, err
		}
		if parentID == nodeID || pathContains(parentPath, nodeID) {
			return nil, model.Errorf(model.ErrInvalidOperation, "cannot move node %d below itself", nodeID)
		}

		maxSort, err := q.MaxChildSortOrder(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("reading sort order under %d: %w", parentID, err)
		}
		descendants, err := q.ListDescendants(ctx, node.Path)
		if err != nil {
			return nil, fmt.Errorf("listing descendants of node %d: %w", nodeID, err)
		}

		newPath := parentPath + "," + strconv.FormatInt(nodeID, 10)
		if err := q.UpdateNodePosition(ctx, store.UpdateNodePositionParams{
			ID: nodeID, ParentID: parentID, Path: newPath, Level: parentLevel + 1, SortOrder: maxSort + 1,
		}); err != nil {
			return nil, fmt.Errorf("moving node %d: %w", nodeID, err)
		}
		delta := parentLevel + 1 - node.Level
		ids := make([]int64, 0, len(descendants))
		for _, d := range descendants {
			path := newPath + strings.TrimPrefix(d.Path, node.Path)
			if err := q.UpdateNodePath(ctx, d.ID, path, d.Level+delta); err != nil {
				return nil, fmt.Errorf("moving node %d: %w", d.ID, err)
			}
			ids = append(ids, d.ID)
		}

		c, err := s.loadOne(ctx, q, nodeID)
		if err != nil {
			return nil, err
		}
		return []notice{{kind: noticeSaved, content: c, ids: ids}}, nil
	})
}

// SetTrashed flags a node and its descendants as trashed, or restores them.
// Trashed content keeps its versions and is excluded from paged queries.
func (s *ContentService) SetTrashed(ctx context.Context, nodeID int64, trashed bool) error {
	return s.write(ctx, func(q *store.Queries) ([]notice, error) {
		node, err := s.getNode(ctx, q, nodeID)
		if err != nil {
			return nil, err
		}
		descendants, err := q.ListDescendants(ctx, node.Path)
		if err != nil {
			return nil, fmt.Errorf("listing descendants of node %d: %w", nodeID, err)
		}
		ids := make([]int64, 0, len(descendants))
		for _, d := range descendants {
			ids = append(ids, d.ID)
		}
		for _, id := range append([]int64{nodeID}, ids...) {
			if err := q.SetNodeTrashed(ctx, id, trashed); err != nil {
				return nil, fmt.Errorf("flagging node %d: %w", id, err)
			}
		}

		c, err := s.loadOne(ctx, q, nodeID)
		if err != nil {
			return nil, err
		}
		return []notice{{kind: noticeSaved, content: c, ids: ids}}, nil
	})
}

// DeleteVersion removes a historical version of a node. The current and the
// published version cannot be deleted; an unknown version is ignored.
func (s *ContentService) DeleteVersion(ctx context.Context, nodeID, versionID int64) error {
	return s.write(ctx, func(q *store.Queries) ([]notice, error) {
		return nil, s.ledger.DeleteVersion(ctx, q, nodeID, versionID)
	})
}

// DeleteVersionsBefore removes the historical versions of a node dated before
// cutoff and returns how many were removed.
func (s *ContentService) DeleteVersionsBefore(ctx context.Context, nodeID int64, cutoff time.Time) (int, error) {
	var n int
	err := s.write(ctx, func(q *store.Queries) ([]notice, error) {
		var err error
		n, err = s.ledger.DeleteVersionsBefore(ctx, q, nodeID, cutoff)
		return nil, err
	})
	return n, err
}

// GetVersions returns the version history of a node, newest first.
func (s *ContentService) GetVersions(ctx context.Context, nodeID int64) ([]model.ContentVersion, error) {
	return s.ledger.Versions(ctx, store.New(s.db), nodeID)
}

// Redirects returns the recorded previous routes of a node, newest first.
func (s *ContentService) Redirects(ctx context.Context, nodeID int64) ([]model.Redirect, error) {
	q := store.New(s.db)
	node, err := s.getNode(ctx, q, nodeID)
	if err != nil {
		return nil, err
	}
	rows, err := q.ListRedirects(ctx, node.UniqueID)
	if err != nil {
		return nil, fmt.Errorf("listing redirects of node %d: %w", nodeID, err)
	}
	out := make([]model.Redirect, 0, len(rows))
	for _, r := range rows {
		rd := model.Redirect{ID: r.ID, NodeKey: r.NodeKey, URL: r.URL, CreatedAt: r.CreatedAt}
		if r.LocaleID.Valid {
			if rd.Culture, err = s.locales.IsoByID(ctx, r.LocaleID.Int64); err != nil {
				return nil, err
			}
		}
		out = append(out, rd)
	}
	return out, nil
}

// write runs fn in a transaction under the write lock. Cache entries of the
// affected nodes are dropped before the lock is released; observers run
// after it.
func (s *ContentService) write(ctx context.Context, fn func(q *store.Queries) ([]notice, error)) error {
	var notices []notice
	s.lock.Lock()
	err := store.InTx(ctx, s.db, func(q *store.Queries) error {
		var err error
		notices, err = fn(q)
		return err
	})
	if err == nil && s.cache != nil {
		for _, n := range notices {
			s.cache.Invalidate(ctx, n.nodeIDs()...)
		}
	}
	s.lock.Unlock()
	if err != nil {
		return err
	}

	for _, n := range notices {
		for _, o := range s.observers {
			switch n.kind {
			case noticeSaved:
				o.ContentSaved(ctx, n.content)
			case noticePublished:
				o.ContentPublished(ctx, n.content, n.cultures)
			case noticeUnpublished:
				o.ContentUnpublished(ctx, n.content, n.cultures)
			case noticeDeleted:
				o.ContentDeleted(ctx, n.ids)
			}
		}
	}
	return nil
}

func (s *ContentService) saveDraft(ctx context.Context, q *store.Queries, c *model.Content, userID int64) error {
	if err := s.prepare(ctx, q, c, false); err != nil {
		return err
	}
	c.WriterID = userID
	draft, err := s.snapshot(ctx, c, false)
	if err != nil {
		return err
	}
	doc := documentOf(c)

	if !c.HasIdentity() {
		if err := s.createNode(ctx, q, c, userID); err != nil {
			return err
		}
		vs, err := s.ledger.CreateFirstVersion(ctx, q, c.ID, userID, draft, nil, doc)
		if err != nil {
			return err
		}
		c.VersionID = vs.VersionID
	} else if err := s.ledger.SaveDraft(ctx, q, c.ID, c.VersionID, userID, draft, doc); err != nil {
		return err
	}
	return s.finish(ctx, q, c)
}

// publish publishes culture of c and saves its draft in the same step. It
// returns the cultures that were published.
func (s *ContentService) publish(ctx context.Context, q *store.Queries, c *model.Content, culture string, userID int64) ([]string, error) {
	wasPublished := c.Published
	oldName, oldCultures := c.PublishName, c.PublishInfos()

	if err := s.tracker.EnsureInvariantName(ctx, c); err != nil {
		return nil, err
	}
	if err := c.PublishCulture(culture); err != nil {
		return nil, err
	}
	now := s.ledger.Now()
	c.Published = true
	c.PublishDate = now
	c.PublisherID = userID
	c.WriterID = userID
	if err := s.prepare(ctx, q, c, true); err != nil {
		return nil, err
	}

	draft, err := s.snapshot(ctx, c, false)
	if err != nil {
		return nil, err
	}
	published, err := s.snapshot(ctx, c, true)
	if err != nil {
		return nil, err
	}
	doc := documentOf(c)

	var vs ledger.Versions
	if !c.HasIdentity() {
		if err := s.createNode(ctx, q, c, userID); err != nil {
			return nil, err
		}
		vs, err = s.ledger.CreateFirstVersion(ctx, q, c.ID, userID, draft, &published, doc)
	} else {
		vs, err = s.ledger.Publish(ctx, q, c.ID, c.VersionID, userID, draft, published, doc)
	}
	if err != nil {
		return nil, err
	}
	c.VersionID, c.PublishedVersionID = vs.VersionID, vs.PublishedVersionID

	if err := s.finish(ctx, q, c); err != nil {
		return nil, err
	}
	if wasPublished {
		if err := s.recordRedirects(ctx, q, c, oldName, oldCultures); err != nil {
			return nil, err
		}
	}

	var cultures []string
	if c.VariesByCulture() {
		cultures = []string{culture}
		if culture == "" || culture == model.AllCultures {
			cultures = c.PublishedCultures()
		}
	}
	s.logger.Info("content published", "category", model.EventCategoryContent,
		"node_id", c.ID, "version_id", c.VersionID, "published_version_id", c.PublishedVersionID, "cultures", cultures)
	return cultures, nil
}

// unpublish withdraws culture from the published snapshot of c. It reports
// the cultures that were unpublished, none for invariant content, and
// whether anything changed.
func (s *ContentService) unpublish(ctx context.Context, q *store.Queries, c *model.Content,
	culture string, userID int64) ([]string, bool, error) {
	if !c.Published {
		return nil, false, nil
	}
	var cultures []string
	if c.VariesByCulture() {
		if culture == "" || culture == model.AllCultures {
			cultures = c.PublishedCultures()
		} else if c.IsCulturePublished(culture) {
			cultures = []string{culture}
		} else {
			return nil, false, nil
		}
	}

	if c.UnpublishCulture(culture) {
		published, err := s.snapshot(ctx, c, true)
		if err != nil {
			return nil, false, err
		}
		if err := s.ledger.RepublishSnapshot(ctx, q, c.ID, c.PublishedVersionID, userID, published, documentOf(c)); err != nil {
			return nil, false, err
		}
	} else {
		if err := s.ledger.Unpublish(ctx, q, c.ID, true); err != nil {
			return nil, false, err
		}
		c.Published = false
		c.PublishedVersionID = 0
		c.PublishName = ""
		c.PublishDate = time.Time{}
		c.PublisherID = 0
	}
	if err := s.tracker.WritePublishStates(ctx, q, c); err != nil {
		return nil, false, err
	}
	s.logger.Info("content unpublished", "category", model.EventCategoryContent,
		"node_id", c.ID, "cultures", cultures, "published", c.Published)
	return cultures, true, nil
}

// prepare validates c and resolves its names before anything is written.
func (s *ContentService) prepare(ctx context.Context, q *store.Queries, c *model.Content, publishing bool) error {
	if c.ContentType == nil || c.ContentType.ID == 0 {
		return model.Errorf(model.ErrInvalidOperation, "content requires a saved content type")
	}
	if err := s.tracker.EnsureInvariantName(ctx, c); err != nil {
		return err
	}
	return s.tracker.EnsureUniqueNames(ctx, q, c, publishing)
}

// finish writes the node-level rows that follow every version write.
func (s *ContentService) finish(ctx context.Context, q *store.Queries, c *model.Content) error {
	if err := s.tags.Sync(ctx, q, c); err != nil {
		return err
	}
	if err := s.tracker.WritePublishStates(ctx, q, c); err != nil {
		return err
	}
	c.UpdatedAt = s.ledger.Now()
	return nil
}

func (s *ContentService) snapshot(ctx context.Context, c *model.Content, published bool) (ledger.Snapshot, error) {
	values, err := property.FromContent(ctx, c, published, s.locales)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	if published {
		return ledger.Snapshot{Name: c.PublishName, Values: values, Cultures: c.PublishInfos()}, nil
	}
	return ledger.Snapshot{Name: c.Name, Values: values, Cultures: c.CultureInfos()}, nil
}

func documentOf(c *model.Content) ledger.Document {
	return ledger.Document{
		Published:   c.Published,
		Edited:      c.Edited(),
		PublishDate: c.PublishDate,
		PublisherID: c.PublisherID,
		PublishName: c.PublishName,
	}
}

// createNode inserts the node and content rows of new content, last among
// its siblings.
func (s *ContentService) createNode(ctx context.Context, q *store.Queries, c *model.Content, userID int64) error {
	parentPath, parentLevel, err := s.parentPosition(ctx, q, c.ParentID)
	if err != nil {
		return err
	}
	maxSort, err := q.MaxChildSortOrder(ctx, c.ParentID)
	if err != nil {
		return fmt.Errorf("reading sort order under %d: %w", c.ParentID, err)
	}

	objectType := c.ContentType.ObjectType
	if objectType == "" {
		objectType = model.ObjectTypeDocument
	}
	now := s.ledger.Now()
	n, err := q.CreateNode(ctx, store.CreateNodeParams{
		UniqueID:   c.Key.String(),
		ParentID:   c.ParentID,
		Level:      parentLevel + 1,
		SortOrder:  maxSort + 1,
		ObjectType: objectType,
		CreatedAt:  now,
		CreatorID:  userID,
	})
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}
	path := parentPath + "," + strconv.FormatInt(n.ID, 10)
	if err := q.UpdateNodePath(ctx, n.ID, path, n.Level); err != nil {
		return fmt.Errorf("writing path of node %d: %w", n.ID, err)
	}
	if err := q.CreateContent(ctx, n.ID, c.ContentType.ID); err != nil {
		return fmt.Errorf("creating content %d: %w", n.ID, err)
	}

	c.ID = n.ID
	c.Path = path
	c.Level = int(n.Level)
	c.SortOrder = int(n.SortOrder)
	c.CreatorID = userID
	c.CreatedAt = now
	s.logger.Debug("node created", "node_id", n.ID, "parent_id", c.ParentID, "path", path)
	return nil
}

func (s *ContentService) parentPosition(ctx context.Context, q *store.Queries, parentID int64) (string, int64, error) {
	if parentID == RootID {
		return strconv.Itoa(RootID), 0, nil
	}
	parent, err := s.getNode(ctx, q, parentID)
	if err != nil {
		return "", 0, err
	}
	return parent.Path, parent.Level, nil
}

func (s *ContentService) getNode(ctx context.Context, q *store.Queries, id int64) (store.Node, error) {
	n, err := q.GetNode(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return n, model.Errorf(model.ErrNotFound, "node %d", id)
	}
	if err != nil {
		return n, fmt.Errorf("reading node %d: %w", id, err)
	}
	return n, nil
}

func (s *ContentService) deleteNode(ctx context.Context, q *store.Queries, n store.Node) error {
	if err := s.tags.Clear(ctx, q, n.ID); err != nil {
		return err
	}
	if err := q.DeleteSchedulesForNode(ctx, n.ID); err != nil {
		return fmt.Errorf("deleting schedules of node %d: %w", n.ID, err)
	}
	if err := q.DeleteRedirectsForNode(ctx, n.UniqueID); err != nil {
		return fmt.Errorf("deleting redirects of node %d: %w", n.ID, err)
	}
	if err := q.DeletePublishStates(ctx, n.ID); err != nil {
		return fmt.Errorf("deleting publish states of node %d: %w", n.ID, err)
	}
	if err := s.ledger.DeleteAll(ctx, q, n.ID); err != nil {
		return err
	}
	if err := q.DeleteContent(ctx, n.ID); err != nil {
		return fmt.Errorf("deleting content %d: %w", n.ID, err)
	}
	if err := q.DeleteNode(ctx, n.ID); err != nil {
		return fmt.Errorf("deleting node %d: %w", n.ID, err)
	}
	return nil
}

// recordRedirects stores the previous route of c for every published name
// that the publish changed.
func (s *ContentService) recordRedirects(ctx context.Context, q *store.Queries, c *model.Content,
	oldName string, oldCultures map[string]model.CultureInfo) error {
	ancestors := ancestorIDs(c.Path, c.ID)
	if !c.VariesByCulture() {
		if oldName == "" || oldName == c.PublishName {
			return nil
		}
		return s.addRedirect(ctx, q, c, ancestors, 0, oldName)
	}

	current := c.PublishInfos()
	cultures := make([]string, 0, len(oldCultures))
	for culture := range oldCultures {
		cultures = append(cultures, culture)
	}
	sort.Strings(cultures)
	for _, culture := range cultures {
		old := oldCultures[culture]
		info, ok := current[culture]
		if !ok || info.Name == old.Name {
			continue
		}
		localeID, err := s.locales.IDByIso(ctx, culture)
		if err != nil {
			return err
		}
		if err := s.addRedirect(ctx, q, c, ancestors, localeID, old.Name); err != nil {
			return err
		}
	}
	return nil
}

func (s *ContentService) addRedirect(ctx context.Context, q *store.Queries, c *model.Content,
	ancestors []int64, localeID int64, name string) error {
	loc := util.NullInt64FromID(localeID)
	names, err := q.ListPublishedNames(ctx, ancestors, loc)
	if err != nil {
		return fmt.Errorf("reading ancestor names of node %d: %w", c.ID, err)
	}
	segments := make([]string, 0, len(ancestors)+1)
	for _, id := range ancestors {
		if n, ok := names[id]; ok {
			segments = append(segments, n)
		}
	}
	url := util.Route(append(segments, name)...)

	key := c.Key.String()
	if err := q.DeleteRedirectURL(ctx, key, url, loc); err != nil {
		return fmt.Errorf("replacing redirect %s: %w", url, err)
	}
	if _, err := q.CreateRedirect(ctx, store.CreateRedirectParams{
		NodeKey: key, LocaleID: loc, URL: url, CreatedAt: s.ledger.Now(),
	}); err != nil {
		return fmt.Errorf("recording redirect %s: %w", url, err)
	}
	s.logger.Debug("redirect recorded", "node_id", c.ID, "url", url, "locale_id", localeID)
	return nil
}

// canonicalCulture validates a culture argument. Empty and "*" pass through.
func (s *ContentService) canonicalCulture(ctx context.Context, culture string) (string, error) {
	if culture == "" || culture == model.AllCultures {
		return culture, nil
	}
	iso, err := locale.Canonicalize(culture)
	if err != nil {
		return "", err
	}
	if _, err := s.locales.IDByIso(ctx, iso); err != nil {
		return "", err
	}
	return iso, nil
}

// ancestorIDs returns the ids on a materialized path between the root and
// self, outermost first.
func ancestorIDs(path string, self int64) []int64 {
	var ids []int64
	for _, part := range strings.Split(path, ",") {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id == RootID || id == self {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func pathContains(path string, id int64) bool {
	want := strconv.FormatInt(id, 10)
	for _, part := range strings.Split(path, ",") {
		if part == want {
			return true
		}
	}
	return false
}
