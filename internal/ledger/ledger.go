// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ledger maintains content versions: one current draft per node and
// at most one published snapshot, created copy-on-write on publish.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-content/internal/culture"
	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/property"
	"github.com/olegiv/ocms-content/internal/store"
)

// Snapshot is the content written into one version row.
type Snapshot struct {
	Name     string
	Values   []property.Value
	Cultures map[string]model.CultureInfo
}

// Document is the node-level publish metadata kept next to the versions.
type Document struct {
	Published   bool
	Edited      bool
	PublishDate time.Time
	PublisherID int64
	PublishName string
}

// Versions are the ids produced by a ledger write.
type Versions struct {
	VersionID          int64
	PublishedVersionID int64
}

// Ledger writes version rows and their contents. Callers must hold the
// content write lock and run every call inside one transaction.
type Ledger struct {
	props   *property.Store
	culture *culture.Tracker
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for version dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a ledger.
func New(props *property.Store, tracker *culture.Tracker, logger *slog.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{props: props, culture: tracker, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the ledger's current time in UTC.
func (l *Ledger) Now() time.Time { return l.now().UTC() }

// CreateFirstVersion inserts the versions of a new node. Without a published
// snapshot a single current draft is created. When publishing immediately,
// the published row is inserted first, followed by the current draft.
func (l *Ledger) CreateFirstVersion(ctx context.Context, q *store.Queries, nodeID, userID int64,
	draft Snapshot, published *Snapshot, doc Document) (Versions, error) {
	var out Versions
	now := l.Now()

	if published != nil {
		pv, err := l.insertVersion(ctx, q, nodeID, userID, now, false, true, *published)
		if err != nil {
			return out, err
		}
		out.PublishedVersionID = pv
	}
	dv, err := l.insertVersion(ctx, q, nodeID, userID, now, true, false, draft)
	if err != nil {
		return out, err
	}
	out.VersionID = dv

	if err := l.writeDocument(ctx, q, nodeID, doc, now); err != nil {
		return out, err
	}
	return out, nil
}

// SaveDraft overwrites the current draft. The version must still be the
// node's current version; anything else is a lost update.
func (l *Ledger) SaveDraft(ctx context.Context, q *store.Queries, nodeID, versionID, userID int64,
	draft Snapshot, doc Document) error {
	if err := l.checkCurrent(ctx, q, nodeID, versionID); err != nil {
		return err
	}
	now := l.Now()
	if err := l.writeVersion(ctx, q, versionID, userID, now, draft); err != nil {
		return err
	}
	return l.writeDocument(ctx, q, nodeID, doc, now)
}

// Publish turns the current draft into the published snapshot and inserts a
// fresh current draft. A previously published snapshot is demoted first and
// kept as history.
func (l *Ledger) Publish(ctx context.Context, q *store.Queries, nodeID, versionID, userID int64,
	draft, published Snapshot, doc Document) (Versions, error) {
	var out Versions
	if err := l.checkCurrent(ctx, q, nodeID, versionID); err != nil {
		return out, err
	}
	now := l.Now()

	demoted, err := q.ClearPublishedVersion(ctx, nodeID)
	if err != nil {
		return out, fmt.Errorf("demoting published version of node %d: %w", nodeID, err)
	}
	if err := q.SetVersionCurrent(ctx, versionID, false); err != nil {
		return out, fmt.Errorf("releasing current flag of version %d: %w", versionID, err)
	}
	if err := q.SetVersionPublished(ctx, versionID, true); err != nil {
		return out, fmt.Errorf("publishing version %d: %w", versionID, err)
	}
	if err := l.writeVersion(ctx, q, versionID, userID, now, published); err != nil {
		return out, err
	}

	next, err := l.insertVersion(ctx, q, nodeID, userID, now, true, false, draft)
	if err != nil {
		return out, err
	}
	if err := l.writeDocument(ctx, q, nodeID, doc, now); err != nil {
		return out, err
	}

	l.logger.Debug("version published", "node_id", nodeID, "published_version_id", versionID,
		"version_id", next, "demoted", demoted)
	return Versions{VersionID: next, PublishedVersionID: versionID}, nil
}

// RepublishSnapshot rewrites the existing published snapshot in place,
// keeping its version id. It is only used to narrow the snapshot when a
// culture is unpublished and other cultures stay published; content edits
// never reach a published row, and a publish always writes a new one.
func (l *Ledger) RepublishSnapshot(ctx context.Context, q *store.Queries, nodeID, publishedVersionID, userID int64,
	published Snapshot, doc Document) error {
	v, err := q.GetVersion(ctx, publishedVersionID)
	if err != nil || v.NodeID != nodeID || !v.Published {
		return model.Errorf(model.ErrInvalidOperation, "version %d is not the published version of node %d", publishedVersionID, nodeID)
	}
	now := l.Now()
	if err := l.writeVersion(ctx, q, publishedVersionID, userID, now, published); err != nil {
		return err
	}
	return l.writeDocument(ctx, q, nodeID, doc, now)
}

// Unpublish clears the published flag of the snapshot. The row is retained as
// history and the document's publish metadata is cleared.
func (l *Ledger) Unpublish(ctx context.Context, q *store.Queries, nodeID int64, edited bool) error {
	if _, err := q.ClearPublishedVersion(ctx, nodeID); err != nil {
		return fmt.Errorf("unpublishing node %d: %w", nodeID, err)
	}
	return l.writeDocument(ctx, q, nodeID, Document{Edited: edited}, l.Now())
}

// DeleteVersion removes a historical version with its values and culture
// names. Deleting the current or the published version is rejected; an
// unknown version is a no-op.
func (l *Ledger) DeleteVersion(ctx context.Context, q *store.Queries, nodeID, versionID int64) error {
	v, err := q.GetVersion(ctx, versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading version %d: %w", versionID, err)
	}
	if v.NodeID != nodeID {
		return nil
	}
	if v.Current {
		return model.Errorf(model.ErrInvalidOperation, "cannot delete the current version %d", versionID)
	}
	if v.Published {
		return model.Errorf(model.ErrInvalidOperation, "cannot delete the published version %d", versionID)
	}
	return l.deleteVersionRows(ctx, q, versionID)
}

// DeleteVersionsBefore removes historical versions older than cutoff. The
// current and published versions are kept. It returns the number removed.
func (l *Ledger) DeleteVersionsBefore(ctx context.Context, q *store.Queries, nodeID int64, cutoff time.Time) (int, error) {
	ids, err := q.ListVersionIDsBefore(ctx, nodeID, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("listing versions of node %d: %w", nodeID, err)
	}
	for _, id := range ids {
		if err := l.deleteVersionRows(ctx, q, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// DeleteAll removes every version of a node and the document row.
func (l *Ledger) DeleteAll(ctx context.Context, q *store.Queries, nodeID int64) error {
	ids, err := q.ListVersionIDsForNode(ctx, nodeID)
	if err != nil {
		return fmt.Errorf("listing versions of node %d: %w", nodeID, err)
	}
	for _, id := range ids {
		if err := l.deleteVersionRows(ctx, q, id); err != nil {
			return err
		}
	}
	if err := q.DeleteDocument(ctx, nodeID); err != nil {
		return fmt.Errorf("deleting document %d: %w", nodeID, err)
	}
	return nil
}

// Versions returns the version history of a node, newest first.
func (l *Ledger) Versions(ctx context.Context, q *store.Queries, nodeID int64) ([]model.ContentVersion, error) {
	rows, err := q.ListVersions(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("listing versions of node %d: %w", nodeID, err)
	}
	out := make([]model.ContentVersion, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.ContentVersion{
			ID: r.ID, NodeID: r.NodeID, Current: r.Current, Published: r.Published,
			VersionDate: r.VersionDate, Name: r.Name, UserID: r.UserID,
		})
	}
	return out, nil
}

func (l *Ledger) checkCurrent(ctx context.Context, q *store.Queries, nodeID, versionID int64) error {
	v, err := q.GetVersion(ctx, versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Errorf(model.ErrInvalidOperation, "version %d does not exist", versionID)
	}
	if err != nil {
		return fmt.Errorf("reading version %d: %w", versionID, err)
	}
	if v.NodeID != nodeID || !v.Current {
		return model.Errorf(model.ErrInvalidOperation, "version %d is not the current version of node %d", versionID, nodeID)
	}
	return nil
}

func (l *Ledger) insertVersion(ctx context.Context, q *store.Queries, nodeID, userID int64, now time.Time,
	current, published bool, snap Snapshot) (int64, error) {
	v, err := q.CreateVersion(ctx, store.CreateVersionParams{
		NodeID: nodeID, Current: current, Published: published,
		VersionDate: now, Name: snap.Name, UserID: userID,
	})
	if err != nil {
		return 0, fmt.Errorf("inserting version of node %d: %w", nodeID, err)
	}
	if err := l.writeContents(ctx, q, v.ID, snap); err != nil {
		return 0, err
	}
	return v.ID, nil
}

func (l *Ledger) writeVersion(ctx context.Context, q *store.Queries, versionID, userID int64, now time.Time, snap Snapshot) error {
	if err := q.UpdateVersion(ctx, store.UpdateVersionParams{
		ID: versionID, Name: snap.Name, VersionDate: now, UserID: userID,
	}); err != nil {
		return fmt.Errorf("updating version %d: %w", versionID, err)
	}
	return l.writeContents(ctx, q, versionID, snap)
}

func (l *Ledger) writeContents(ctx context.Context, q *store.Queries, versionID int64, snap Snapshot) error {
	if err := l.props.Replace(ctx, q, versionID, snap.Values); err != nil {
		return err
	}
	return l.culture.WriteVariants(ctx, q, versionID, snap.Cultures)
}

func (l *Ledger) deleteVersionRows(ctx context.Context, q *store.Queries, versionID int64) error {
	if err := q.DeletePropertyValuesForVersion(ctx, versionID); err != nil {
		return fmt.Errorf("deleting values of version %d: %w", versionID, err)
	}
	if err := q.DeleteCultureVariants(ctx, versionID); err != nil {
		return fmt.Errorf("deleting culture variants of version %d: %w", versionID, err)
	}
	if err := q.DeleteVersion(ctx, versionID); err != nil {
		return fmt.Errorf("deleting version %d: %w", versionID, err)
	}
	return nil
}

func (l *Ledger) writeDocument(ctx context.Context, q *store.Queries, nodeID int64, doc Document, now time.Time) error {
	row := store.UpsertDocumentParams{
		NodeID:    nodeID,
		Published: doc.Published,
		Edited:    doc.Edited,
		UpdatedAt: now,
	}
	if doc.Published {
		if !doc.PublishDate.IsZero() {
			row.PublishDate = sql.NullTime{Time: doc.PublishDate.UTC(), Valid: true}
		}
		if doc.PublisherID != 0 {
			row.PublisherID = sql.NullInt64{Int64: doc.PublisherID, Valid: true}
		}
		row.PublishName = sql.NullString{String: doc.PublishName, Valid: true}
	}
	if err := q.UpsertDocument(ctx, row); err != nil {
		return fmt.Errorf("writing document %d: %w", nodeID, err)
	}
	return nil
}
