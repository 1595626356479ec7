// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-content/internal/cache"
	"github.com/olegiv/ocms-content/internal/editor"
	"github.com/olegiv/ocms-content/internal/locale"
	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/ordering"
	"github.com/olegiv/ocms-content/internal/store"
	"github.com/olegiv/ocms-content/internal/testutil"
)

const (
	en = "en-US"
	da = "da-DK"
)

type env struct {
	ctx     context.Context
	db      *sql.DB
	svc     *Services
	locales *locale.Service
	user    int64
	page    *model.ContentType
	article *model.ContentType
}

// newEnv builds the services over a fresh database with en-US as the default
// locale and da-DK as a second one. page is invariant with a colour and a
// tags property; article varies by culture with a per-culture title and an
// invariant colour.
func newEnv(t *testing.T, opts ...func(*Options)) *env {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	locales := locale.NewService(db)
	_, err := locales.Create(ctx, en, "", true)
	require.NoError(t, err)
	_, err = locales.Create(ctx, da, "", false)
	require.NoError(t, err)

	o := Options{
		Clock:  testutil.Clock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		Logger: testutil.TestLoggerSilent(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	e := &env{
		ctx:     ctx,
		db:      db,
		svc:     New(db, locales, o),
		locales: locales,
		user:    testutil.SeedUser(t, db, "editor"),
	}

	e.page = &model.ContentType{
		Alias: "page", Name: "Page",
		PropertyTypes: []*model.PropertyType{
			{Alias: "colour", Name: "Colour", Storage: model.StorageNvarchar},
			{Alias: "keywords", Name: "Keywords", Storage: model.StorageNtext, EditorAlias: editor.AliasTags},
		},
	}
	_, err = e.svc.ContentTypes.Save(ctx, e.page)
	require.NoError(t, err)

	e.article = &model.ContentType{
		Alias: "article", Name: "Article", Variations: model.VariationCulture,
		PropertyTypes: []*model.PropertyType{
			{Alias: "title", Name: "Title", Storage: model.StorageNvarchar, Variations: model.VariationCulture},
			{Alias: "colour", Name: "Colour", Storage: model.StorageNvarchar},
		},
	}
	_, err = e.svc.ContentTypes.Save(ctx, e.article)
	require.NoError(t, err)
	return e
}

func (e *env) newPage(t *testing.T, name string, parentID int64, colour string) *model.Content {
	t.Helper()
	c := model.NewContent(name, parentID, e.page)
	if colour != "" {
		require.NoError(t, c.SetValue("colour", colour, ""))
	}
	require.NoError(t, e.svc.Content.Save(e.ctx, c, e.user))
	return c
}

func (e *env) newArticle(t *testing.T, enName, daName string) *model.Content {
	t.Helper()
	c := model.NewContent("", RootID, e.article)
	require.NoError(t, c.SetName(enName, en))
	require.NoError(t, c.SetName(daName, da))
	require.NoError(t, c.SetValue("title", enName+" title", en))
	require.NoError(t, c.SetValue("title", daName+" titel", da))
	require.NoError(t, c.SetValue("colour", "red", ""))
	return c
}

func (e *env) get(t *testing.T, id int64) *model.Content {
	t.Helper()
	c, err := e.svc.Content.Get(e.ctx, id)
	require.NoError(t, err)
	return c
}

func TestSaveCreatesNodeUnderParent(t *testing.T) {
	e := newEnv(t)

	parent := e.newPage(t, "Home", RootID, "")
	child := e.newPage(t, "About", parent.ID, "blue")

	assert.Equal(t, "-1,"+strconv.FormatInt(parent.ID, 10), parent.Path)
	assert.Equal(t, 1, parent.Level)
	assert.Equal(t, parent.Path+","+strconv.FormatInt(child.ID, 10), child.Path)
	assert.Equal(t, 2, child.Level)

	got := e.get(t, child.ID)
	assert.Equal(t, "About", got.Name)
	assert.Equal(t, child.Key, got.Key)
	assert.Equal(t, "blue", got.GetValue("colour", "", false))
	assert.False(t, got.Published)
	assert.True(t, got.Edited())

	versions, err := e.svc.Content.GetVersions(e.ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.True(t, versions[0].Current)
	assert.False(t, versions[0].Published)
}

func TestSaveRejectsUnsavedContentType(t *testing.T) {
	e := newEnv(t)

	c := model.NewContent("Loose", RootID, &model.ContentType{Alias: "loose", Name: "Loose"})
	err := e.svc.Content.Save(e.ctx, c, e.user)
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
	assert.False(t, c.HasIdentity())
}

func TestSaveAndPublishNewContent(t *testing.T) {
	e := newEnv(t)

	c := model.NewContent("Home", RootID, e.page)
	require.NoError(t, c.SetValue("colour", "red", ""))
	require.NoError(t, e.svc.Content.SaveAndPublish(e.ctx, c, "", e.user))

	versions, err := e.svc.Content.GetVersions(e.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	var current, published int
	for _, v := range versions {
		if v.Current {
			current++
			assert.Equal(t, c.VersionID, v.ID)
		}
		if v.Published {
			published++
			assert.Equal(t, c.PublishedVersionID, v.ID)
		}
		assert.False(t, v.Current && v.Published, "version %d is both current and published", v.ID)
	}
	assert.Equal(t, 1, current)
	assert.Equal(t, 1, published)

	got := e.get(t, c.ID)
	assert.True(t, got.Published)
	assert.Equal(t, "Home", got.PublishName)
	assert.Equal(t, e.user, got.PublisherID)
	assert.Equal(t, "red", got.GetValue("colour", "", true))
	assert.False(t, got.Edited())
}

func TestPublishThenEdit(t *testing.T) {
	e := newEnv(t)

	c := e.newPage(t, "Home", RootID, "red")
	_, err := e.svc.Content.Publish(e.ctx, c.ID, "", e.user)
	require.NoError(t, err)

	got := e.get(t, c.ID)
	require.NoError(t, got.SetValue("colour", "blue", ""))
	require.NoError(t, e.svc.Content.Save(e.ctx, got, e.user))

	got = e.get(t, c.ID)
	assert.Equal(t, "blue", got.GetValue("colour", "", false))
	assert.Equal(t, "red", got.GetValue("colour", "", true))
	assert.True(t, got.Published)
	assert.True(t, got.Edited())
}

func TestSaveStaleVersion(t *testing.T) {
	e := newEnv(t)

	c := e.newPage(t, "Home", RootID, "red")
	stale := e.get(t, c.ID)
	_, err := e.svc.Content.Publish(e.ctx, c.ID, "", e.user)
	require.NoError(t, err)

	require.NoError(t, stale.SetValue("colour", "green", ""))
	err = e.svc.Content.Save(e.ctx, stale, e.user)
	require.ErrorIs(t, err, model.ErrInvalidOperation)

	got := e.get(t, c.ID)
	assert.Equal(t, "red", got.GetValue("colour", "", false))
}

func TestDeleteVersion(t *testing.T) {
	e := newEnv(t)

	c := e.newPage(t, "Home", RootID, "red")
	first := c.VersionID
	_, err := e.svc.Content.Publish(e.ctx, c.ID, "", e.user)
	require.NoError(t, err)
	latest, err := e.svc.Content.Publish(e.ctx, c.ID, "", e.user)
	require.NoError(t, err)

	versions, err := e.svc.Content.GetVersions(e.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)

	err = e.svc.Content.DeleteVersion(e.ctx, c.ID, latest.VersionID)
	assert.ErrorIs(t, err, model.ErrInvalidOperation, "current version")
	err = e.svc.Content.DeleteVersion(e.ctx, c.ID, latest.PublishedVersionID)
	assert.ErrorIs(t, err, model.ErrInvalidOperation, "published version")

	require.NoError(t, e.svc.Content.DeleteVersion(e.ctx, c.ID, first))
	require.NoError(t, e.svc.Content.DeleteVersion(e.ctx, c.ID, 999999))

	versions, err = e.svc.Content.GetVersions(e.ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	got := e.get(t, c.ID)
	assert.Equal(t, "red", got.GetValue("colour", "", true))
}

func TestDeleteVersionsBefore(t *testing.T) {
	e := newEnv(t)

	c := e.newPage(t, "Home", RootID, "red")
	for range 3 {
		_, err := e.svc.Content.Publish(e.ctx, c.ID, "", e.user)
		require.NoError(t, err)
	}

	n, err := e.svc.Content.DeleteVersionsBefore(e.ctx, c.ID, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	versions, err := e.svc.Content.GetVersions(e.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	for _, v := range versions {
		assert.True(t, v.Current || v.Published)
	}
}

func TestSiblingNamesAreUnique(t *testing.T) {
	e := newEnv(t)

	first := e.newPage(t, "Home", RootID, "")
	second := e.newPage(t, "Home", RootID, "")
	third := e.newPage(t, "home", RootID, "")

	assert.Equal(t, "Home", first.Name)
	assert.Equal(t, "Home (1)", second.Name)
	assert.Equal(t, "home (2)", third.Name)

	// A node keeps its own name when saved again.
	got := e.get(t, second.ID)
	require.NoError(t, e.svc.Content.Save(e.ctx, got, e.user))
	assert.Equal(t, "Home (1)", e.get(t, second.ID).Name)
}

func TestCulturePublishing(t *testing.T) {
	e := newEnv(t)

	c := e.newArticle(t, "Hello", "Hej")
	require.NoError(t, e.svc.Content.SaveAndPublish(e.ctx, c, en, e.user))

	got := e.get(t, c.ID)
	assert.Equal(t, "Hello", got.Name)
	assert.Equal(t, []string{en}, got.PublishedCultures())
	assert.True(t, got.IsCulturePublished(en))
	assert.False(t, got.IsCulturePublished(da))
	assert.Equal(t, "Hello title", got.GetValue("title", en, true))
	assert.Nil(t, got.GetValue("title", da, true))
	assert.Equal(t, "red", got.GetValue("colour", "", true), "invariant values publish with any culture")
	assert.True(t, got.IsCultureEdited(da))
	assert.False(t, got.IsCultureEdited(en))

	_, err := e.svc.Content.Publish(e.ctx, c.ID, "da-dk", e.user)
	require.NoError(t, err)
	got = e.get(t, c.ID)
	assert.Equal(t, []string{da, en}, got.PublishedCultures())
	assert.Equal(t, "Hej titel", got.GetValue("title", da, true))
	versions, err := e.svc.Content.GetVersions(e.ctx, c.ID)
	require.NoError(t, err)

	// Withdrawing one culture rewrites the snapshot in place.
	_, err = e.svc.Content.Unpublish(e.ctx, c.ID, en, e.user)
	require.NoError(t, err)
	got = e.get(t, c.ID)
	assert.True(t, got.Published)
	assert.Equal(t, []string{da}, got.PublishedCultures())
	assert.Nil(t, got.GetValue("title", en, true))
	after, err := e.svc.Content.GetVersions(e.ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(versions))

	// Withdrawing the last culture unpublishes the node.
	_, err = e.svc.Content.Unpublish(e.ctx, c.ID, da, e.user)
	require.NoError(t, err)
	got = e.get(t, c.ID)
	assert.False(t, got.Published)
	assert.Empty(t, got.PublishedCultures())
	assert.Zero(t, got.PublishedVersionID)
}

func TestPublishUnknownCulture(t *testing.T) {
	e := newEnv(t)

	c := e.newArticle(t, "Hello", "Hej")
	require.NoError(t, e.svc.Content.Save(e.ctx, c, e.user))
	_, err := e.svc.Content.Publish(e.ctx, c.ID, "fr-FR", e.user)
	assert.Error(t, err)
	assert.False(t, e.get(t, c.ID).Published)
}

func TestMixedCaseCultureKeys(t *testing.T) {
	e := newEnv(t)

	c := model.NewContent("", RootID, e.article)
	require.NoError(t, c.SetName("Hello", "en-US"))
	require.NoError(t, c.SetName("Hello again", "en-us"))
	require.NoError(t, c.SetValue("title", "Greeting", "EN-us"))
	require.NoError(t, e.svc.Content.SaveAndPublish(e.ctx, c, "en-us", e.user))

	got := e.get(t, c.ID)
	assert.Equal(t, []string{en}, got.AvailableCultures())
	assert.Equal(t, []string{en}, got.PublishedCultures())
	assert.Equal(t, "Hello again", got.GetName(en))
	assert.Equal(t, "Greeting", got.GetValue("title", en, true))
}

func TestUnpublishInvariant(t *testing.T) {
	e := newEnv(t)

	c := e.newPage(t, "Home", RootID, "red")
	_, err := e.svc.Content.Publish(e.ctx, c.ID, "", e.user)
	require.NoError(t, err)

	got, err := e.svc.Content.Unpublish(e.ctx, c.ID, "", e.user)
	require.NoError(t, err)
	assert.False(t, got.Published)

	got = e.get(t, c.ID)
	assert.False(t, got.Published)
	assert.Equal(t, "red", got.GetValue("colour", "", false))

	// A second unpublish changes nothing.
	_, err = e.svc.Content.Unpublish(e.ctx, c.ID, "", e.user)
	require.NoError(t, err)
}

func TestMoveSubtree(t *testing.T) {
	e := newEnv(t)

	a := e.newPage(t, "A", RootID, "")
	b := e.newPage(t, "B", RootID, "")
	child := e.newPage(t, "Child", a.ID, "")
	grandchild := e.newPage(t, "Grandchild", child.ID, "")

	require.NoError(t, e.svc.Content.Move(e.ctx, child.ID, b.ID))

	movedChild := e.get(t, child.ID)
	assert.Equal(t, b.ID, movedChild.ParentID)
	assert.Equal(t, b.Path+","+strconv.FormatInt(child.ID, 10), movedChild.Path)
	assert.Equal(t, 2, movedChild.Level)

	movedGrandchild := e.get(t, grandchild.ID)
	assert.Equal(t, movedChild.Path+","+strconv.FormatInt(grandchild.ID, 10), movedGrandchild.Path)
	assert.Equal(t, 3, movedGrandchild.Level)

	err := e.svc.Content.Move(e.ctx, b.ID, grandchild.ID)
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
	err = e.svc.Content.Move(e.ctx, b.ID, b.ID)
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
	err = e.svc.Content.Move(e.ctx, b.ID, 999999)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, e.svc.Content.Move(e.ctx, child.ID, RootID))
	top := e.get(t, child.ID)
	assert.Equal(t, 1, top.Level)
	assert.Equal(t, "-1,"+strconv.FormatInt(child.ID, 10), top.Path)
	assert.Equal(t, 2, e.get(t, grandchild.ID).Level)
}

func TestDeleteSubtree(t *testing.T) {
	e := newEnv(t)
	q := store.New(e.db)

	parent := model.NewContent("News", RootID, e.page)
	require.NoError(t, parent.SetValue("keywords", "news, sport", ""))
	require.NoError(t, e.svc.Content.Save(e.ctx, parent, e.user))
	child := model.NewContent("Match", parent.ID, e.page)
	require.NoError(t, child.SetValue("keywords", "sport", ""))
	require.NoError(t, e.svc.Content.SaveAndPublish(e.ctx, child, "", e.user))
	_, err := e.svc.Content.Schedule(e.ctx, child.ID, model.ScheduleExpire, "", time.Now().Add(time.Hour))
	require.NoError(t, err)

	assigned, err := e.svc.Content.Tags(e.ctx, parent.ID)
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	require.NoError(t, e.svc.Content.Delete(e.ctx, parent.ID))

	_, err = e.svc.Content.Get(e.ctx, parent.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = e.svc.Content.Get(e.ctx, child.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	for _, id := range []int64{parent.ID, child.ID} {
		rows, err := q.ListTagAssignments(e.ctx, id)
		require.NoError(t, err)
		assert.Empty(t, rows)
		schedules, err := q.ListSchedulesForNode(e.ctx, id)
		require.NoError(t, err)
		assert.Empty(t, schedules)
	}
	tagCount, err := q.CountTags(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tagCount, "the tag catalog is kept")

	err = e.svc.Content.Delete(e.ctx, parent.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestObservers(t *testing.T) {
	var saved, published, unpublished int
	var deleted [][]int64
	var publishedCultures []string
	rec := ObserverFuncs{
		Saved:     func(context.Context, *model.Content) { saved++ },
		Published: func(_ context.Context, _ *model.Content, cultures []string) { published++; publishedCultures = cultures },
		Unpublished: func(context.Context, *model.Content, []string) {
			unpublished++
		},
		Deleted: func(_ context.Context, ids []int64) { deleted = append(deleted, ids) },
	}
	e := newEnv(t, func(o *Options) { o.Observers = []Observer{rec} })

	c := e.newPage(t, "Home", RootID, "red")
	child := e.newPage(t, "About", c.ID, "")
	assert.Equal(t, 2, saved)

	stale := e.get(t, c.ID)
	_, err := e.svc.Content.Publish(e.ctx, c.ID, "", e.user)
	require.NoError(t, err)
	assert.Equal(t, 1, published)
	assert.Nil(t, publishedCultures)

	require.Error(t, e.svc.Content.Save(e.ctx, stale, e.user))
	assert.Equal(t, 2, saved, "a failed save notifies nobody")

	_, err = e.svc.Content.Unpublish(e.ctx, c.ID, "", e.user)
	require.NoError(t, err)
	_, err = e.svc.Content.Unpublish(e.ctx, c.ID, "", e.user)
	require.NoError(t, err)
	assert.Equal(t, 1, unpublished)

	article := e.newArticle(t, "Hello", "Hej")
	require.NoError(t, e.svc.Content.SaveAndPublish(e.ctx, article, da, e.user))
	assert.Equal(t, []string{da}, publishedCultures)

	require.NoError(t, e.svc.Content.Delete(e.ctx, c.ID))
	require.Len(t, deleted, 1)
	assert.Equal(t, []int64{child.ID, c.ID}, deleted[0])
}

func TestRedirectOnRename(t *testing.T) {
	e := newEnv(t)

	home := model.NewContent("Home", RootID, e.page)
	require.NoError(t, e.svc.Content.SaveAndPublish(e.ctx, home, "", e.user))
	about := model.NewContent("About", home.ID, e.page)
	require.NoError(t, e.svc.Content.SaveAndPublish(e.ctx, about, "", e.user))

	redirects, err := e.svc.Content.Redirects(e.ctx, about.ID)
	require.NoError(t, err)
	assert.Empty(t, redirects)

	got := e.get(t, about.ID)
	require.NoError(t, got.SetName("About Us", ""))
	require.NoError(t, e.svc.Content.Save(e.ctx, got, e.user))
	redirects, err = e.svc.Content.Redirects(e.ctx, about.ID)
	require.NoError(t, err)
	assert.Empty(t, redirects, "saving a draft does not change the route")

	require.NoError(t, e.svc.Content.SaveAndPublish(e.ctx, got, "", e.user))
	redirects, err = e.svc.Content.Redirects(e.ctx, about.ID)
	require.NoError(t, err)
	require.Len(t, redirects, 1)
	assert.Equal(t, "/home/about/", redirects[0].URL)
	assert.Equal(t, about.Key.String(), redirects[0].NodeKey)
	assert.Empty(t, redirects[0].Culture)
}

func TestCultureRedirectOnRename(t *testing.T) {
	e := newEnv(t)

	c := e.newArticle(t, "Hello", "Hej")
	require.NoError(t, e.svc.Content.SaveAndPublish(e.ctx, c, "*", e.user))

	got := e.get(t, c.ID)
	require.NoError(t, got.SetName("Goddag", da))
	require.NoError(t, e.svc.Content.SaveAndPublish(e.ctx, got, da, e.user))

	redirects, err := e.svc.Content.Redirects(e.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, redirects, 1)
	assert.Equal(t, "/hej/", redirects[0].URL)
	assert.Equal(t, da, redirects[0].Culture)
}

func TestContentCache(t *testing.T) {
	backend := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	t.Cleanup(func() { _ = backend.Close() })
	cc := cache.NewContentCache(backend, time.Hour, testutil.TestLoggerSilent())
	e := newEnv(t, func(o *Options) { o.Cache = cc })

	c := e.newPage(t, "Home", RootID, "red")
	_, ok := cc.Get(e.ctx, c.ID)
	assert.False(t, ok, "saving does not populate the cache")

	first := e.get(t, c.ID)
	_, ok = cc.Get(e.ctx, c.ID)
	require.True(t, ok)

	cached := e.get(t, c.ID)
	assert.Equal(t, first.Name, cached.Name)
	assert.Equal(t, first.VersionID, cached.VersionID)
	assert.Equal(t, "red", cached.GetValue("colour", "", false))

	require.NoError(t, cached.SetValue("colour", "blue", ""))
	require.NoError(t, e.svc.Content.Save(e.ctx, cached, e.user))
	_, ok = cc.Get(e.ctx, c.ID)
	assert.False(t, ok, "a save invalidates the node")
	assert.Equal(t, "blue", e.get(t, c.ID).GetValue("colour", "", false))

	_, ok = cc.Get(e.ctx, c.ID)
	require.True(t, ok)
	e.page.Name = "Web page"
	_, err := e.svc.ContentTypes.Save(e.ctx, e.page)
	require.NoError(t, err)
	_, ok = cc.Get(e.ctx, c.ID)
	assert.False(t, ok, "a content type save invalidates everything")
}

// gatedBackend holds the first Set after arming until release is closed.
type gatedBackend struct {
	*cache.MemoryCache
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (b *gatedBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if b.armed.CompareAndSwap(true, false) {
		close(b.entered)
		<-b.release
	}
	return b.MemoryCache.Set(ctx, key, value, ttl)
}

func TestCacheFillRacingSave(t *testing.T) {
	backend := &gatedBackend{
		MemoryCache: cache.NewMemoryCache(cache.MemoryCacheOptions{}),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	t.Cleanup(func() { _ = backend.Close() })
	cc := cache.NewContentCache(backend, time.Hour, testutil.TestLoggerSilent())
	e := newEnv(t, func(o *Options) { o.Cache = cc })

	c := e.newPage(t, "Home", RootID, "red")
	backend.armed.Store(true)

	read := make(chan error, 1)
	go func() {
		_, err := e.svc.Content.Get(e.ctx, c.ID)
		read <- err
	}()
	<-backend.entered

	require.NoError(t, c.SetValue("colour", "blue", ""))
	saved := make(chan error, 1)
	go func() { saved <- e.svc.Content.Save(e.ctx, c, e.user) }()
	// Let the save commit while the read is still filling the cache.
	time.Sleep(50 * time.Millisecond)
	close(backend.release)

	require.NoError(t, <-read)
	require.NoError(t, <-saved)
	assert.Equal(t, "blue", e.get(t, c.ID).GetValue("colour", "", false))
}

func TestCacheFillSkippedAfterWrite(t *testing.T) {
	backend := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	t.Cleanup(func() { _ = backend.Close() })
	cc := cache.NewContentCache(backend, time.Hour, testutil.TestLoggerSilent())
	e := newEnv(t, func(o *Options) { o.Cache = cc })

	c := e.newPage(t, "Home", RootID, "red")
	gen := cc.Generation()
	stale, err := e.svc.Content.load(e.ctx, store.New(e.db), []int64{c.ID})
	require.NoError(t, err)
	require.Len(t, stale, 1)

	require.NoError(t, c.SetValue("colour", "blue", ""))
	require.NoError(t, e.svc.Content.Save(e.ctx, c, e.user))

	snap := stale[0].Snapshot()
	assert.False(t, cc.Fill(e.ctx, gen, &snap))
	assert.Equal(t, "blue", e.get(t, c.ID).GetValue("colour", "", false))
}

func TestGetPage(t *testing.T) {
	e := newEnv(t)

	parent := e.newPage(t, "Folder", RootID, "")
	for _, name := range []string{"Echo", "Delta", "Charlie", "Bravo", "Alpha"} {
		e.newPage(t, name, parent.ID, "")
	}
	e.newPage(t, "Elsewhere", RootID, "")

	filter := ordering.Filter{ParentID: parent.ID}
	byName := ordering.Ordering{Field: "name"}

	page, err := e.svc.Content.GetPage(e.ctx, filter, byName, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Alpha", page.Items[0].Name)
	assert.Equal(t, "Bravo", page.Items[1].Name)

	page, err = e.svc.Content.GetPage(e.ctx, filter, byName, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Echo", page.Items[0].Name)

	page, err = e.svc.Content.GetPage(e.ctx, filter, ordering.Ordering{Field: "sortOrder", Direction: ordering.Descending}, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 5)
	assert.Equal(t, "Alpha", page.Items[0].Name)
	assert.Equal(t, "Echo", page.Items[4].Name)
}

func TestSetTrashed(t *testing.T) {
	e := newEnv(t)

	parent := e.newPage(t, "Folder", RootID, "")
	child := e.newPage(t, "Child", parent.ID, "")
	e.newPage(t, "Kept", RootID, "")

	require.NoError(t, e.svc.Content.SetTrashed(e.ctx, parent.ID, true))
	assert.True(t, e.get(t, parent.ID).Trashed)
	assert.True(t, e.get(t, child.ID).Trashed)

	page, err := e.svc.Content.GetPage(e.ctx, ordering.Filter{ParentID: RootID}, ordering.Ordering{Field: "name"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Kept", page.Items[0].Name)

	page, err = e.svc.Content.GetPage(e.ctx, ordering.Filter{ParentID: RootID, IncludeTrashed: true}, ordering.Ordering{Field: "name"}, 0, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	require.NoError(t, e.svc.Content.SetTrashed(e.ctx, parent.ID, false))
	assert.False(t, e.get(t, child.ID).Trashed)

	assert.ErrorIs(t, e.svc.Content.SetTrashed(e.ctx, 999999, true), model.ErrNotFound)
}

func TestGetMany(t *testing.T) {
	e := newEnv(t)

	a := e.newPage(t, "A", RootID, "")
	b := e.newPage(t, "B", RootID, "")

	items, err := e.svc.Content.GetMany(e.ctx, []int64{b.ID, 999999, a.ID})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)

	_, err = e.svc.Content.Get(e.ctx, 999999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestScheduledReleaseAndExpiry(t *testing.T) {
	e := newEnv(t)
	now := time.Now().UTC()

	c := e.newPage(t, "Home", RootID, "red")
	_, err := e.svc.Content.Schedule(e.ctx, c.ID, model.ScheduleRelease, "", now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = e.svc.Content.Schedule(e.ctx, c.ID, model.ScheduleExpire, "", now.Add(time.Hour))
	require.NoError(t, err)

	applied, err := e.svc.Content.ProcessDueSchedules(e.ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.True(t, e.get(t, c.ID).Published)

	pending, err := e.svc.Content.Schedules(e.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.ScheduleExpire, pending[0].Action)

	applied, err = e.svc.Content.ProcessDueSchedules(e.ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.False(t, e.get(t, c.ID).Published)

	pending, err = e.svc.Content.Schedules(e.ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	events, err := e.svc.Events.Recent(e.ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, model.EventCategoryScheduler, events[0].Category)
}

func TestScheduledCultureRelease(t *testing.T) {
	e := newEnv(t)
	now := time.Now().UTC()

	c := e.newArticle(t, "Hello", "Hej")
	require.NoError(t, e.svc.Content.Save(e.ctx, c, e.user))
	sch, err := e.svc.Content.Schedule(e.ctx, c.ID, model.ScheduleRelease, "da-dk", now.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, da, sch.Culture)

	applied, err := e.svc.Content.ProcessDueSchedules(e.ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	got := e.get(t, c.ID)
	assert.Equal(t, []string{da}, got.PublishedCultures())
}

func TestScheduleValidation(t *testing.T) {
	e := newEnv(t)
	c := e.newPage(t, "Home", RootID, "")
	date := time.Now().Add(time.Hour)

	_, err := e.svc.Content.Schedule(e.ctx, c.ID, model.ScheduleRelease, da, date)
	assert.ErrorIs(t, err, model.ErrNotSupported)
	_, err = e.svc.Content.Schedule(e.ctx, c.ID, "archive", "", date)
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
	_, err = e.svc.Content.Schedule(e.ctx, 999999, model.ScheduleRelease, "", date)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = e.svc.Content.Schedule(e.ctx, c.ID, model.ScheduleRelease, "", date)
	require.NoError(t, err)
	require.NoError(t, e.svc.Content.ClearSchedule(e.ctx, c.ID))
	pending, err := e.svc.Content.Schedules(e.ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
