// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package locale resolves culture iso codes to locale ids and exposes the
// default locale.
package locale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/store"
)

// Resolver maps iso codes to locale ids.
type Resolver interface {
	IDByIso(ctx context.Context, iso string) (int64, error)
	IsoByID(ctx context.Context, id int64) (string, error)
	DefaultID(ctx context.Context) (int64, error)
	DefaultIso(ctx context.Context) (string, error)
	All(ctx context.Context) ([]model.Locale, error)
}

// Canonicalize parses an iso code and returns its canonical BCP 47 form,
// so "en-us" and "en_US" both resolve to "en-US".
func Canonicalize(iso string) (string, error) {
	iso = strings.ReplaceAll(strings.TrimSpace(iso), "_", "-")
	if iso == "" {
		return "", model.Errorf(model.ErrInvalidOperation, "empty iso code")
	}
	tag, err := language.Parse(iso)
	if err != nil {
		return "", model.Errorf(model.ErrInvalidOperation, "invalid iso code %q", iso)
	}
	return tag.String(), nil
}

// Service is a Resolver over the locale table. Locales are loaded once and
// kept in memory until Invalidate is called.
type Service struct {
	db      *sql.DB
	queries *store.Queries

	mu       sync.RWMutex
	loaded   bool
	all      []model.Locale
	byIso    map[string]model.Locale
	byID     map[int64]model.Locale
	defaultL *model.Locale
}

// NewService creates a locale service.
func NewService(db *sql.DB) *Service {
	return &Service{
		db:      db,
		queries: store.New(db),
	}
}

// Create adds a locale. Making it the default clears the previous default.
func (s *Service) Create(ctx context.Context, iso, name string, isDefault bool) (model.Locale, error) {
	code, err := Canonicalize(iso)
	if err != nil {
		return model.Locale{}, err
	}
	if name == "" {
		name = display.English.Tags().Name(language.MustParse(code))
	}

	var created store.Locale
	err = store.InTx(ctx, s.db, func(q *store.Queries) error {
		existing, err := q.ListLocales(ctx)
		if err != nil {
			return err
		}
		for _, l := range existing {
			if strings.EqualFold(l.IsoCode, code) {
				return model.Errorf(model.ErrDuplicateName, "locale %q already exists", code)
			}
		}
		// The first locale is always the default.
		isDefault = isDefault || len(existing) == 0
		if isDefault {
			if err := q.ClearDefaultLocale(ctx); err != nil {
				return err
			}
		}
		created, err = q.CreateLocale(ctx, store.CreateLocaleParams{IsoCode: code, Name: name, IsDefault: isDefault})
		return err
	})
	if err != nil {
		return model.Locale{}, fmt.Errorf("creating locale %q: %w", code, err)
	}
	s.Invalidate()
	return toModel(created), nil
}

// SetDefault makes the locale with the given iso code the default.
func (s *Service) SetDefault(ctx context.Context, iso string) error {
	id, err := s.IDByIso(ctx, iso)
	if err != nil {
		return err
	}
	err = store.InTx(ctx, s.db, func(q *store.Queries) error {
		if err := q.ClearDefaultLocale(ctx); err != nil {
			return err
		}
		return q.SetDefaultLocale(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("setting default locale: %w", err)
	}
	s.Invalidate()
	return nil
}

// EnsureDefault creates iso as the default locale when no locale exists.
func (s *Service) EnsureDefault(ctx context.Context, iso string) error {
	all, err := s.All(ctx)
	if err != nil {
		return err
	}
	if len(all) > 0 {
		return nil
	}
	_, err = s.Create(ctx, iso, "", true)
	return err
}

// Invalidate drops the in-memory index.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

// IDByIso returns the id of the locale with the given iso code.
func (s *Service) IDByIso(ctx context.Context, iso string) (int64, error) {
	code, err := Canonicalize(iso)
	if err != nil {
		return 0, err
	}
	if err := s.load(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.byIso[strings.ToLower(code)]
	if !ok {
		return 0, model.Errorf(model.ErrNotFound, "locale %q", code)
	}
	return l.ID, nil
}

// IsoByID returns the iso code of a locale id.
func (s *Service) IsoByID(ctx context.Context, id int64) (string, error) {
	if err := s.load(ctx); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.byID[id]
	if !ok {
		return "", model.Errorf(model.ErrNotFound, "locale id %d", id)
	}
	return l.IsoCode, nil
}

// DefaultID returns the default locale id.
func (s *Service) DefaultID(ctx context.Context) (int64, error) {
	l, err := s.defaultLocale(ctx)
	if err != nil {
		return 0, err
	}
	return l.ID, nil
}

// DefaultIso returns the default locale iso code.
func (s *Service) DefaultIso(ctx context.Context) (string, error) {
	l, err := s.defaultLocale(ctx)
	if err != nil {
		return "", err
	}
	return l.IsoCode, nil
}

// All returns every locale ordered by id.
func (s *Service) All(ctx context.Context) ([]model.Locale, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.Locale, len(s.all))
	copy(result, s.all)
	return result, nil
}

func (s *Service) defaultLocale(ctx context.Context) (model.Locale, error) {
	if err := s.load(ctx); err != nil {
		return model.Locale{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.defaultL == nil {
		return model.Locale{}, model.Errorf(model.ErrNotFound, "no default locale")
	}
	return *s.defaultL, nil
}

func (s *Service) load(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if s.loaded {
		return nil
	}

	rows, err := s.queries.ListLocales(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("loading locales: %w", err)
	}

	s.all = make([]model.Locale, 0, len(rows))
	s.byIso = make(map[string]model.Locale, len(rows))
	s.byID = make(map[int64]model.Locale, len(rows))
	s.defaultL = nil
	for _, row := range rows {
		l := toModel(row)
		s.all = append(s.all, l)
		s.byIso[strings.ToLower(l.IsoCode)] = l
		s.byID[l.ID] = l
		if l.IsDefault {
			def := l
			s.defaultL = &def
		}
	}
	s.loaded = true
	return nil
}

func toModel(l store.Locale) model.Locale {
	return model.Locale{
		ID:         l.ID,
		IsoCode:    l.IsoCode,
		Name:       l.Name,
		IsDefault:  l.IsDefault,
		FallbackID: l.FallbackID.Int64,
	}
}
