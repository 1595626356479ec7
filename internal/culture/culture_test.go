// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package culture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-content/internal/locale"
	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/store"
	"github.com/olegiv/ocms-content/internal/testutil"
)

func TestUniqueName(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		siblings []string
		want     string
	}{
		{"free", "Home", []string{"About"}, "Home"},
		{"taken", "Home", []string{"Home"}, "Home (1)"},
		{"case insensitive", "home", []string{"HOME"}, "home (1)"},
		{"lowest free suffix", "Home", []string{"Home", "Home (2)"}, "Home (1)"},
		{"skip used suffixes", "Home", []string{"Home", "Home (1)", "Home (2)"}, "Home (3)"},
		{"renumber suffixed input", "Home (1)", []string{"Home", "Home (1)"}, "Home (2)"},
		{"normalized forms collide", "Cafe\u0301", []string{"Caf\u00e9"}, "Cafe\u0301 (1)"},
		{"no siblings", "Home", nil, "Home"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UniqueName(tt.in, tt.siblings); got != tt.want {
				t.Errorf("UniqueName(%q, %v) = %q, want %q", tt.in, tt.siblings, got, tt.want)
			}
		})
	}
}

type env struct {
	q       *store.Queries
	locales *locale.Service
	tracker *Tracker
	ct      *model.ContentType
}

func newEnv(t *testing.T) env {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	locales := locale.NewService(db)
	for _, iso := range []string{"en-US", "da-DK"} {
		if _, err := locales.Create(ctx, iso, "", iso == "en-US"); err != nil {
			t.Fatalf("Create locale: %v", err)
		}
	}
	q := store.New(db)
	row, err := q.CreateContentType(ctx, store.CreateContentTypeParams{
		Alias: "page", Name: "Page", ObjectType: model.ObjectTypeDocument, Variations: int64(model.VariationCulture),
	})
	if err != nil {
		t.Fatalf("CreateContentType: %v", err)
	}
	ct := &model.ContentType{ID: row.ID, Alias: row.Alias, Name: row.Name, Variations: model.VariationCulture}
	return env{q: q, locales: locales, tracker: NewTracker(locales, testutil.TestLogger()), ct: ct}
}

// persist writes the node and current version rows of c, the way the
// content repository does, and the culture rows through the tracker.
func (e env) persist(t *testing.T, c *model.Content) {
	t.Helper()
	ctx := context.Background()
	n, err := e.q.CreateNode(ctx, store.CreateNodeParams{
		UniqueID: uuid.NewString(), ParentID: c.ParentID, Level: 1,
		ObjectType: model.ObjectTypeDocument, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	c.ID = n.ID
	if err := e.q.CreateContent(ctx, n.ID, e.ct.ID); err != nil {
		t.Fatalf("CreateContent: %v", err)
	}
	v, err := e.q.CreateVersion(ctx, store.CreateVersionParams{NodeID: n.ID, Current: true, VersionDate: time.Now(), Name: c.Name})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	c.VersionID = v.ID
	if err := e.tracker.WriteVariants(ctx, e.q, v.ID, c.CultureInfos()); err != nil {
		t.Fatalf("WriteVariants: %v", err)
	}
	if err := e.tracker.WritePublishStates(ctx, e.q, c); err != nil {
		t.Fatalf("WritePublishStates: %v", err)
	}
}

func TestEnsureInvariantName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	c := model.NewContent("", -1, e.ct)
	if err := e.tracker.EnsureInvariantName(ctx, c); !errors.Is(err, model.ErrInvalidOperation) {
		t.Errorf("EnsureInvariantName without cultures = %v, want ErrInvalidOperation", err)
	}

	if err := c.SetName("Hjem", "da-DK"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if err := e.tracker.EnsureInvariantName(ctx, c); err != nil {
		t.Fatalf("EnsureInvariantName: %v", err)
	}
	if c.Name != "Hjem" {
		t.Errorf("Name = %q, want first culture name %q", c.Name, "Hjem")
	}

	if err := c.SetName("Home", "en-US"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if err := e.tracker.EnsureInvariantName(ctx, c); err != nil {
		t.Fatalf("EnsureInvariantName: %v", err)
	}
	if c.Name != "Home" {
		t.Errorf("Name = %q, want default culture name %q", c.Name, "Home")
	}

	invariant := model.NewContent(" ", -1, &model.ContentType{Alias: "plain"})
	if err := e.tracker.EnsureInvariantName(ctx, invariant); !errors.Is(err, model.ErrInvalidOperation) {
		t.Errorf("EnsureInvariantName blank invariant = %v, want ErrInvalidOperation", err)
	}
}

func TestEnsureUniqueNamesPerCulture(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := model.NewContent("Home", -1, e.ct)
	_ = first.SetName("Home", "en-US")
	_ = first.SetName("Hjem", "da-DK")
	e.persist(t, first)

	second := model.NewContent("Home", -1, e.ct)
	_ = second.SetName("Home", "en-US")
	_ = second.SetName("Forside", "da-DK")
	if err := e.tracker.EnsureUniqueNames(ctx, e.q, second, false); err != nil {
		t.Fatalf("EnsureUniqueNames: %v", err)
	}
	if second.Name != "Home (1)" {
		t.Errorf("Name = %q, want %q", second.Name, "Home (1)")
	}
	if got := second.GetName("en-US"); got != "Home (1)" {
		t.Errorf("en-US name = %q, want %q", got, "Home (1)")
	}
	if got := second.GetName("da-DK"); got != "Forside" {
		t.Errorf("da-DK name = %q, want %q (no collision)", got, "Forside")
	}
}

func TestEnsureUniqueNamesResyncsPublishName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := model.NewContent("Home", -1, e.ct)
	_ = first.SetName("Home", "en-US")
	e.persist(t, first)

	second := model.NewContent("Home", -1, e.ct)
	_ = second.SetName("Home", "en-US")
	if err := second.PublishCulture("en-US"); err != nil {
		t.Fatalf("PublishCulture: %v", err)
	}
	if err := e.tracker.EnsureUniqueNames(ctx, e.q, second, true); err != nil {
		t.Fatalf("EnsureUniqueNames: %v", err)
	}
	if got := second.PublishInfos()["en-US"].Name; got != "Home (1)" {
		t.Errorf("published en-US name = %q, want %q", got, "Home (1)")
	}
	if second.PublishName != "Home (1)" {
		t.Errorf("PublishName = %q, want %q", second.PublishName, "Home (1)")
	}
}

func TestWriteAndLoad(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	c := model.NewContent("Home", -1, e.ct)
	_ = c.SetName("Home", "en-US")
	_ = c.SetName("Hjem", "da-DK")
	e.persist(t, c)

	loaded := &model.Content{ID: c.ID, VersionID: c.VersionID, ContentType: e.ct}
	if err := e.tracker.Load(ctx, e.q, []*model.Content{loaded}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.AvailableCultures(); len(got) != 2 {
		t.Fatalf("AvailableCultures = %v, want 2 cultures", got)
	}
	if got := loaded.GetName("da-DK"); got != "Hjem" {
		t.Errorf("da-DK name = %q, want %q", got, "Hjem")
	}

	states, err := e.q.ListPublishStates(ctx, []int64{c.ID})
	if err != nil {
		t.Fatalf("ListPublishStates: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("len(states) = %d, want 2", len(states))
	}
	for _, s := range states {
		if !s.Available || s.Published || !s.Edited {
			t.Errorf("state %+v, want available, unpublished, edited", s)
		}
	}
}
