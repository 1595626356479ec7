// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service exposes the operations of the content engine: saving,
// publishing and listing content, and editing content types.
package service

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/ocms-content/internal/cache"
	"github.com/olegiv/ocms-content/internal/culture"
	"github.com/olegiv/ocms-content/internal/editor"
	"github.com/olegiv/ocms-content/internal/ledger"
	"github.com/olegiv/ocms-content/internal/locale"
	"github.com/olegiv/ocms-content/internal/ordering"
	"github.com/olegiv/ocms-content/internal/property"
	"github.com/olegiv/ocms-content/internal/tags"
	"github.com/olegiv/ocms-content/internal/variation"
)

// Options configure the services built by New.
type Options struct {
	// BatchSize is the maximum number of ids per batched read.
	BatchSize int
	// StrictLoad turns duplicate property sets found while loading into errors.
	StrictLoad bool
	// Editors provides tag configuration; nil uses editor.NewRegistry.
	Editors editor.Provider
	// Cache is the optional read-through content cache.
	Cache *cache.ContentCache
	// Observers receive content notifications after commit.
	Observers []Observer
	// Clock overrides the time source of version dates.
	Clock func() time.Time
	Logger *slog.Logger
}

// Services groups the services sharing one database and one write lock.
type Services struct {
	Content      *ContentService
	ContentTypes *ContentTypeService
	Events       *EventService
}

// New wires the content engine's components. Content writes and content type
// edits share a single write lock, so a variation migration never interleaves
// with a save.
func New(db *sql.DB, locales locale.Resolver, opts Options) *Services {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	editors := opts.Editors
	if editors == nil {
		editors = editor.NewRegistry()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = property.DefaultBatchSize
	}

	props := property.NewStore(property.Options{BatchSize: batchSize, Strict: opts.StrictLoad}, logger)
	tracker := culture.NewTracker(locales, logger)
	var ledgerOpts []ledger.Option
	if opts.Clock != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithClock(opts.Clock))
	}
	versions := ledger.New(props, tracker, logger, ledgerOpts...)
	tagSync := tags.NewSynchronizer(editors, locales, logger)
	events := NewEventService(db, logger)
	lock := &sync.Mutex{}

	types := &ContentTypeService{
		db:     db,
		engine: variation.NewEngine(props, tagSync, locales, logger),
		cache:  opts.Cache,
		events: events,
		lock:   lock,
		logger: logger,
	}
	content := &ContentService{
		db:        db,
		locales:   locales,
		types:     types,
		ledger:    versions,
		tracker:   tracker,
		props:     props,
		tags:      tagSync,
		resolver:  ordering.NewResolver(),
		cache:     opts.Cache,
		events:    events,
		observers: opts.Observers,
		lock:      lock,
		batchSize: batchSize,
		logger:    logger,
	}
	return &Services{Content: content, ContentTypes: types, Events: events}
}
