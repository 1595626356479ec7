// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"sort"
	"strings"
)

// Object types stored on nodes and content types.
const (
	ObjectTypeDocument = "document"
	ObjectTypeMedia    = "media"
)

// PropertyType describes one property of a content type.
type PropertyType struct {
	ID            int64        `json:"id"`
	ContentTypeID int64        `json:"content_type_id"`
	Alias         string       `json:"alias"`
	Name          string       `json:"name"`
	Variations    Variation    `json:"variations"`
	Storage       ValueStorage `json:"storage"`
	EditorAlias   string       `json:"editor_alias"`
	SortOrder     int          `json:"sort_order"`
}

// ContentType is a document or media type. Compositions are the types whose
// property types this type includes.
type ContentType struct {
	ID            int64           `json:"id"`
	Alias         string          `json:"alias"`
	Name          string          `json:"name"`
	ObjectType    string          `json:"object_type"`
	Variations    Variation       `json:"variations"`
	PropertyTypes []*PropertyType `json:"property_types"`
	Compositions  []*ContentType  `json:"-"`
}

// VariesByCulture reports whether content of this type has per-culture names.
func (ct *ContentType) VariesByCulture() bool {
	return ct.Variations.VariesByCulture()
}

// AllPropertyTypes returns the own property types followed by those of every
// composition, each type visited once.
func (ct *ContentType) AllPropertyTypes() []*PropertyType {
	var all []*PropertyType
	seen := make(map[int64]bool)
	var walk func(t *ContentType)
	walk = func(t *ContentType) {
		if seen[t.ID] && t.ID != 0 {
			return
		}
		seen[t.ID] = true
		all = append(all, t.PropertyTypes...)
		for _, c := range t.Compositions {
			walk(c)
		}
	}
	walk(ct)
	return all
}

// Clone returns a deep copy of the type, its property types and its
// compositions. Shared compositions stay shared within the copy.
func (ct *ContentType) Clone() *ContentType {
	return ct.clone(make(map[*ContentType]*ContentType))
}

func (ct *ContentType) clone(seen map[*ContentType]*ContentType) *ContentType {
	if ct == nil {
		return nil
	}
	if c, ok := seen[ct]; ok {
		return c
	}
	c := *ct
	seen[ct] = &c
	c.PropertyTypes = make([]*PropertyType, len(ct.PropertyTypes))
	for i, pt := range ct.PropertyTypes {
		cp := *pt
		c.PropertyTypes[i] = &cp
	}
	if ct.Compositions != nil {
		c.Compositions = make([]*ContentType, len(ct.Compositions))
		for i, comp := range ct.Compositions {
			c.Compositions[i] = comp.clone(seen)
		}
	}
	return &c
}

// PropertyType finds a property type by alias, case-insensitively, including
// those inherited from compositions.
func (ct *ContentType) PropertyType(alias string) (*PropertyType, bool) {
	for _, pt := range ct.AllPropertyTypes() {
		if strings.EqualFold(pt.Alias, alias) {
			return pt, true
		}
	}
	return nil, false
}

// PropertyVariation is the effective variation of pt on content of this type.
func (ct *ContentType) PropertyVariation(pt *PropertyType) Variation {
	return pt.Variations.Mask(ct.Variations)
}

// CompositionIDs returns the ids of the direct compositions, sorted.
func (ct *ContentType) CompositionIDs() []int64 {
	ids := make([]int64, 0, len(ct.Compositions))
	for _, c := range ct.Compositions {
		ids = append(ids, c.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate checks the type before it is persisted.
func (ct *ContentType) Validate() error {
	if strings.TrimSpace(ct.Alias) == "" {
		return Errorf(ErrInvalidOperation, "content type alias cannot be empty")
	}
	if strings.TrimSpace(ct.Name) == "" {
		return Errorf(ErrInvalidOperation, "content type %q requires a name", ct.Alias)
	}
	if err := ct.Variations.Validate(); err != nil {
		return err
	}
	aliases := make(map[string]bool)
	for _, pt := range ct.AllPropertyTypes() {
		if strings.TrimSpace(pt.Alias) == "" {
			return Errorf(ErrInvalidOperation, "property type alias cannot be empty on %q", ct.Alias)
		}
		key := strings.ToLower(pt.Alias)
		if aliases[key] {
			return Errorf(ErrDuplicateName, "property alias %q is defined twice on %q", pt.Alias, ct.Alias)
		}
		aliases[key] = true
		if err := pt.Variations.Validate(); err != nil {
			return err
		}
		if !pt.Storage.Valid() {
			return Errorf(ErrInvalidOperation, "property %q has unknown storage %q", pt.Alias, pt.Storage)
		}
	}
	return nil
}
