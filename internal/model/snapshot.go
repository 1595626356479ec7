// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the serializable form of a Content, used by the content cache.
type Snapshot struct {
	ID                 int64                      `json:"id"`
	Key                uuid.UUID                  `json:"key"`
	ContentTypeID      int64                      `json:"content_type_id"`
	ParentID           int64                      `json:"parent_id"`
	Path               string                     `json:"path"`
	Level              int                        `json:"level"`
	SortOrder          int                        `json:"sort_order"`
	Trashed            bool                       `json:"trashed"`
	CreatorID          int64                      `json:"creator_id"`
	WriterID           int64                      `json:"writer_id"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
	Name               string                     `json:"name"`
	VersionID          int64                      `json:"version_id"`
	PublishedVersionID int64                      `json:"published_version_id"`
	Published          bool                       `json:"published"`
	PublishName        string                     `json:"publish_name"`
	PublishDate        time.Time                  `json:"publish_date"`
	PublisherID        int64                      `json:"publisher_id"`
	Cultures           map[string]CultureInfo     `json:"cultures,omitempty"`
	PublishCultures    map[string]CultureInfo     `json:"publish_cultures,omitempty"`
	Values             map[string][]PropertyValue `json:"values,omitempty"`
}

// Snapshot captures the content's state.
func (c *Content) Snapshot() Snapshot {
	s := Snapshot{
		ID:                 c.ID,
		Key:                c.Key,
		ContentTypeID:      c.ContentType.ID,
		ParentID:           c.ParentID,
		Path:               c.Path,
		Level:              c.Level,
		SortOrder:          c.SortOrder,
		Trashed:            c.Trashed,
		CreatorID:          c.CreatorID,
		WriterID:           c.WriterID,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		Name:               c.Name,
		VersionID:          c.VersionID,
		PublishedVersionID: c.PublishedVersionID,
		Published:          c.Published,
		PublishName:        c.PublishName,
		PublishDate:        c.PublishDate,
		PublisherID:        c.PublisherID,
		Cultures:           c.CultureInfos(),
		PublishCultures:    c.PublishInfos(),
		Values:             make(map[string][]PropertyValue),
	}
	for _, p := range c.Properties() {
		if vals := p.Values(); len(vals) > 0 {
			s.Values[p.Alias()] = vals
		}
	}
	return s
}

// Restore rebuilds a Content from a snapshot. Values are normalized again
// because a JSON round trip loses their Go types.
func Restore(s Snapshot, ct *ContentType) (*Content, error) {
	c := &Content{
		ID:                 s.ID,
		Key:                s.Key,
		ParentID:           s.ParentID,
		Path:               s.Path,
		Level:              s.Level,
		SortOrder:          s.SortOrder,
		Trashed:            s.Trashed,
		CreatorID:          s.CreatorID,
		WriterID:           s.WriterID,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		ContentType:        ct,
		Name:               s.Name,
		VersionID:          s.VersionID,
		PublishedVersionID: s.PublishedVersionID,
		Published:          s.Published,
		PublishName:        s.PublishName,
		PublishDate:        s.PublishDate,
		PublisherID:        s.PublisherID,
	}
	c.ensureProperties()
	for k, v := range s.Cultures {
		c.cultures[k] = v
	}
	for k, v := range s.PublishCultures {
		c.publishCultures[k] = v
	}
	for alias, vals := range s.Values {
		p, ok := c.properties[strings.ToLower(alias)]
		if !ok {
			continue
		}
		for _, pv := range vals {
			edited, err := p.Type.Storage.Normalize(pv.Edited)
			if err != nil {
				return nil, err
			}
			published, err := p.Type.Storage.Normalize(pv.Published)
			if err != nil {
				return nil, err
			}
			p.SetLoadedValue(pv.Culture, pv.Segment, edited, false)
			p.SetLoadedValue(pv.Culture, pv.Segment, published, true)
		}
	}
	return c, nil
}
