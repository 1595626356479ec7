// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package editor exposes property-editor metadata: which editors store tags
// and how their values are encoded.
package editor

import (
	"encoding/json"
	"strings"
	"sync"
)

// Tag storage formats.
const (
	StorageCSV  = "csv"
	StorageJSON = "json"
)

// Default editor aliases registered by NewRegistry.
const (
	AliasTags     = "tags"
	AliasTagsJSON = "tags.json"
)

// TagConfiguration describes how an editor stores tags.
type TagConfiguration struct {
	Group     string
	Delimiter string
	Storage   string
}

// Parse splits a stored value into distinct, trimmed tag texts.
func (c TagConfiguration) Parse(value string) []string {
	var raw []string
	switch c.Storage {
	case StorageJSON:
		if err := json.Unmarshal([]byte(value), &raw); err != nil {
			return nil
		}
	default:
		delim := c.Delimiter
		if delim == "" {
			delim = ","
		}
		raw = strings.Split(value, delim)
	}

	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, t)
	}
	return tags
}

// Provider answers tag-configuration lookups by editor alias.
type Provider interface {
	TagConfiguration(editorAlias string) (TagConfiguration, bool)
}

// Registry is a concurrency-safe Provider.
type Registry struct {
	mu   sync.RWMutex
	tags map[string]TagConfiguration
}

// NewRegistry creates a registry with the default tag editors.
func NewRegistry() *Registry {
	r := &Registry{tags: make(map[string]TagConfiguration)}
	r.Register(AliasTags, TagConfiguration{Group: "default", Delimiter: ",", Storage: StorageCSV})
	r.Register(AliasTagsJSON, TagConfiguration{Group: "default", Storage: StorageJSON})
	return r
}

// Register sets the tag configuration of an editor alias.
func (r *Registry) Register(editorAlias string, cfg TagConfiguration) {
	if cfg.Group == "" {
		cfg.Group = "default"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[strings.ToLower(editorAlias)] = cfg
}

// TagConfiguration implements Provider.
func (r *Registry) TagConfiguration(editorAlias string) (TagConfiguration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.tags[strings.ToLower(editorAlias)]
	return cfg, ok
}
