// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package culture tracks per-locale names of content versions and the
// node-level publish state of every locale.
package culture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/store"
)

// Locales is the subset of the locale resolver used by the tracker.
type Locales interface {
	IDByIso(ctx context.Context, iso string) (int64, error)
	IsoByID(ctx context.Context, id int64) (string, error)
	DefaultIso(ctx context.Context) (string, error)
}

// Tracker writes and reads culture variants and publish states.
type Tracker struct {
	locales Locales
	logger  *slog.Logger
}

// NewTracker creates a culture tracker.
func NewTracker(locales Locales, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{locales: locales, logger: logger}
}

// EnsureInvariantName derives the invariant name of culture-varying content
// from its default culture, or the first culture when the default has no
// name. Invariant content must carry an explicit name.
func (t *Tracker) EnsureInvariantName(ctx context.Context, c *model.Content) error {
	if !c.VariesByCulture() {
		if strings.TrimSpace(c.Name) == "" {
			return model.Errorf(model.ErrInvalidOperation, "content requires a name")
		}
		return nil
	}

	cultures := c.AvailableCultures()
	if len(cultures) == 0 {
		return model.Errorf(model.ErrInvalidOperation, "culture-varying content requires at least one culture name")
	}
	def, err := t.locales.DefaultIso(ctx)
	if err != nil {
		return err
	}
	if c.IsCultureAvailable(def) {
		c.Name = c.GetName(def)
	} else {
		c.Name = c.GetName(cultures[0])
	}
	return nil
}

// EnsureUniqueNames suffixes the invariant name, and each culture name, so
// that no sibling under the same parent shares it. When publishing, a publish
// name taken from a name that had to change follows the new name.
func (t *Tracker) EnsureUniqueNames(ctx context.Context, q *store.Queries, c *model.Content, publishing bool) error {
	siblings, err := q.ListSiblingNames(ctx, c.ParentID, c.ID)
	if err != nil {
		return fmt.Errorf("listing sibling names: %w", err)
	}
	old := c.Name
	c.Name = UniqueName(c.Name, siblings)
	if publishing && c.PublishName == old {
		c.SetPublishedName(c.Name, "")
	}

	if !c.VariesByCulture() {
		return nil
	}
	publishInfos := c.PublishInfos()
	for _, culture := range c.AvailableCultures() {
		localeID, err := t.locales.IDByIso(ctx, culture)
		if err != nil {
			return err
		}
		names, err := q.ListSiblingCultureNames(ctx, c.ParentID, c.ID, localeID)
		if err != nil {
			return fmt.Errorf("listing sibling names for %s: %w", culture, err)
		}
		name := c.GetName(culture)
		unique := UniqueName(name, names)
		if unique == name {
			continue
		}
		if err := c.SetName(unique, culture); err != nil {
			return err
		}
		if publishing {
			if info, ok := publishInfos[culture]; ok && info.Name == name {
				c.SetPublishedName(unique, culture)
			}
		}
		t.logger.Debug("culture name made unique", "node_id", c.ID, "culture", culture, "name", unique)
	}
	return nil
}

// WriteVariants replaces the culture names stored for a version.
func (t *Tracker) WriteVariants(ctx context.Context, q *store.Queries, versionID int64, infos map[string]model.CultureInfo) error {
	if err := q.DeleteCultureVariants(ctx, versionID); err != nil {
		return fmt.Errorf("clearing culture variants of version %d: %w", versionID, err)
	}
	for culture, info := range infos {
		localeID, err := t.locales.IDByIso(ctx, culture)
		if err != nil {
			return err
		}
		date := info.Date
		if date.IsZero() {
			date = time.Now().UTC()
		}
		if err := q.InsertCultureVariant(ctx, store.InsertCultureVariantParams{
			VersionID: versionID, LocaleID: localeID, Name: info.Name, UpdatedAt: date,
		}); err != nil {
			return fmt.Errorf("inserting culture variant %s of version %d: %w", culture, versionID, err)
		}
	}
	return nil
}

// WritePublishStates replaces the node-level state of every culture that is
// available or published.
func (t *Tracker) WritePublishStates(ctx context.Context, q *store.Queries, c *model.Content) error {
	if err := q.DeletePublishStates(ctx, c.ID); err != nil {
		return fmt.Errorf("clearing publish states of node %d: %w", c.ID, err)
	}
	if !c.VariesByCulture() {
		return nil
	}

	cultures := c.CultureInfos()
	published := c.PublishInfos()
	seen := make(map[string]bool)
	var all []string
	for _, list := range [][]string{c.AvailableCultures(), c.PublishedCultures()} {
		for _, culture := range list {
			if !seen[culture] {
				seen[culture] = true
				all = append(all, culture)
			}
		}
	}

	for _, culture := range all {
		localeID, err := t.locales.IDByIso(ctx, culture)
		if err != nil {
			return err
		}
		isPublished := c.IsCulturePublished(culture)
		name := cultures[culture].Name
		if name == "" {
			name = published[culture].Name
		}
		if err := q.InsertPublishState(ctx, store.InsertPublishStateParams{
			NodeID:    c.ID,
			LocaleID:  localeID,
			Name:      name,
			Available: c.IsCultureAvailable(culture),
			Published: isPublished,
			Edited:    c.IsCultureEdited(culture),
		}); err != nil {
			return fmt.Errorf("inserting publish state %s of node %d: %w", culture, c.ID, err)
		}
	}
	return nil
}

// Load restores culture names of the draft versions and the published culture
// names of the published versions. Only cultures whose node-level state is
// published are restored as published.
func (t *Tracker) Load(ctx context.Context, q *store.Queries, items []*model.Content) error {
	var versionIDs, nodeIDs []int64
	for _, c := range items {
		if !c.VariesByCulture() {
			continue
		}
		nodeIDs = append(nodeIDs, c.ID)
		versionIDs = append(versionIDs, c.VersionID)
		if c.PublishedVersionID != 0 && c.PublishedVersionID != c.VersionID {
			versionIDs = append(versionIDs, c.PublishedVersionID)
		}
	}
	if len(nodeIDs) == 0 {
		return nil
	}

	variants, err := q.ListCultureVariants(ctx, versionIDs)
	if err != nil {
		return fmt.Errorf("loading culture variants: %w", err)
	}
	states, err := q.ListPublishStates(ctx, nodeIDs)
	if err != nil {
		return fmt.Errorf("loading publish states: %w", err)
	}

	byVersion := make(map[int64][]store.CultureVariant)
	for _, v := range variants {
		byVersion[v.VersionID] = append(byVersion[v.VersionID], v)
	}
	publishedState := make(map[int64]map[int64]bool)
	for _, s := range states {
		if publishedState[s.NodeID] == nil {
			publishedState[s.NodeID] = make(map[int64]bool)
		}
		publishedState[s.NodeID][s.LocaleID] = s.Published
	}

	for _, c := range items {
		if !c.VariesByCulture() {
			continue
		}
		for _, v := range byVersion[c.VersionID] {
			iso, err := t.locales.IsoByID(ctx, v.LocaleID)
			if err != nil {
				return err
			}
			c.SetCultureInfo(iso, model.CultureInfo{Name: v.Name, Date: v.UpdatedAt})
		}
		if c.PublishedVersionID == 0 || !c.Published {
			continue
		}
		for _, v := range byVersion[c.PublishedVersionID] {
			if !publishedState[c.ID][v.LocaleID] {
				continue
			}
			iso, err := t.locales.IsoByID(ctx, v.LocaleID)
			if err != nil {
				return err
			}
			c.SetPublishInfo(iso, model.CultureInfo{Name: v.Name, Date: v.UpdatedAt})
		}
	}
	return nil
}
