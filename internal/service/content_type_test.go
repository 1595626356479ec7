// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/store"
)

func TestContentTypeLookups(t *testing.T) {
	e := newEnv(t)

	got, err := e.svc.ContentTypes.GetByAlias(e.ctx, "ARTICLE")
	require.NoError(t, err)
	assert.Equal(t, e.article.ID, got.ID)
	assert.True(t, got.VariesByCulture())
	require.Len(t, got.PropertyTypes, 2)
	assert.Equal(t, "title", got.PropertyTypes[0].Alias)
	assert.Equal(t, model.VariationCulture, got.PropertyTypes[0].Variations)

	all, err := e.svc.ContentTypes.List(e.ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "page", all[0].Alias)
	assert.Equal(t, "article", all[1].Alias)

	_, err = e.svc.ContentTypes.Get(e.ctx, 999999)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = e.svc.ContentTypes.GetByAlias(e.ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSaveContentTypeValidation(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.ContentTypes.Save(e.ctx, &model.ContentType{Alias: "Page", Name: "Another page"})
	assert.ErrorIs(t, err, model.ErrDuplicateName)

	_, err = e.svc.ContentTypes.Save(e.ctx, &model.ContentType{
		Alias: "landing", Name: "Landing", Variations: model.VariationCultureAndSegment,
	})
	assert.ErrorIs(t, err, model.ErrNotSupported)

	_, err = e.svc.ContentTypes.Save(e.ctx, &model.ContentType{
		Alias: "teaser", Name: "Teaser",
		PropertyTypes: []*model.PropertyType{
			{Alias: "text", Name: "Text", Storage: model.StorageNtext},
			{Alias: "Text", Name: "Text again", Storage: model.StorageNtext},
		},
	})
	assert.ErrorIs(t, err, model.ErrDuplicateName)

	_, err = e.svc.ContentTypes.Save(e.ctx, &model.ContentType{Alias: "", Name: "Nameless"})
	assert.ErrorIs(t, err, model.ErrInvalidOperation)

	_, err = e.svc.ContentTypes.GetByAlias(e.ctx, "teaser")
	assert.ErrorIs(t, err, model.ErrNotFound, "a rejected type is not stored")
}

func TestCompositions(t *testing.T) {
	e := newEnv(t)

	seo := &model.ContentType{
		Alias: "seo", Name: "SEO",
		PropertyTypes: []*model.PropertyType{{Alias: "metaTitle", Name: "Meta title", Storage: model.StorageNvarchar}},
	}
	_, err := e.svc.ContentTypes.Save(e.ctx, seo)
	require.NoError(t, err)

	e.page.Compositions = []*model.ContentType{{ID: seo.ID}}
	_, err = e.svc.ContentTypes.Save(e.ctx, e.page)
	require.NoError(t, err)

	page, err := e.svc.ContentTypes.Get(e.ctx, e.page.ID)
	require.NoError(t, err)
	_, ok := page.PropertyType("metatitle")
	assert.True(t, ok, "composed property types are inherited")

	c := e.newPage(t, "Home", RootID, "")
	require.NoError(t, c.SetValue("metaTitle", "Welcome", ""))
	require.NoError(t, e.svc.Content.Save(e.ctx, c, e.user))
	assert.Equal(t, "Welcome", e.get(t, c.ID).GetValue("metaTitle", "", false))

	seo.Compositions = []*model.ContentType{{ID: e.page.ID}}
	_, err = e.svc.ContentTypes.Save(e.ctx, seo)
	assert.ErrorIs(t, err, model.ErrInvalidOperation)

	clash := &model.ContentType{
		Alias: "clash", Name: "Clash",
		PropertyTypes: []*model.PropertyType{{Alias: "METATITLE", Name: "Clash", Storage: model.StorageNvarchar}},
		Compositions:  []*model.ContentType{{ID: seo.ID}},
	}
	_, err = e.svc.ContentTypes.Save(e.ctx, clash)
	assert.ErrorIs(t, err, model.ErrDuplicateName)
}

func TestVaryTypeByCultureMigratesContent(t *testing.T) {
	e := newEnv(t)
	q := store.New(e.db)
	enID, err := e.locales.IDByIso(e.ctx, en)
	require.NoError(t, err)

	ids := make([]int64, 0, 10)
	for i := range 10 {
		c := e.newPage(t, fmt.Sprintf("Page %d", i), RootID, fmt.Sprintf("colour %d", i))
		ids = append(ids, c.ID)
	}
	colour, ok := e.page.PropertyType("colour")
	require.True(t, ok)

	e.page.Variations = model.VariationCulture
	colour.Variations = model.VariationCulture
	res, err := e.svc.ContentTypes.Save(e.ctx, e.page)
	require.NoError(t, err)
	assert.True(t, res.TypeChanged)
	assert.Contains(t, res.ImpactedTypes, e.page.ID)
	assert.Equal(t, 2, res.Properties, "colour and the promoted keywords")
	assert.Equal(t, int64(20), res.NamesMigrated, "a culture variant per version and a publish state per document")

	inCulture, err := q.CountPropertyValues(e.ctx, colour.ID, &enID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), inCulture)
	invariant, err := q.CountPropertyValues(e.ctx, colour.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, invariant)

	got := e.get(t, ids[3])
	assert.True(t, got.VariesByCulture())
	assert.Equal(t, "Page 3", got.GetName(en))
	assert.Equal(t, "colour 3", got.GetValue("colour", en, false))

	events, err := e.svc.Events.Recent(e.ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventCategoryMigration, events[0].Category)

	// And back again.
	e.page.Variations = model.VariationNothing
	colour.Variations = model.VariationNothing
	res, err = e.svc.ContentTypes.Save(e.ctx, e.page)
	require.NoError(t, err)
	assert.True(t, res.TypeChanged)

	invariant, err = q.CountPropertyValues(e.ctx, colour.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), invariant)
	inCulture, err = q.CountPropertyValues(e.ctx, colour.ID, &enID)
	require.NoError(t, err)
	assert.Zero(t, inCulture)

	got = e.get(t, ids[3])
	assert.False(t, got.VariesByCulture())
	assert.Equal(t, "Page 3", got.Name)
	assert.Equal(t, "colour 3", got.GetValue("colour", "", false))
}

func TestVaryPropertyByCulture(t *testing.T) {
	e := newEnv(t)
	q := store.New(e.db)
	enID, err := e.locales.IDByIso(e.ctx, en)
	require.NoError(t, err)

	c := e.newArticle(t, "Hello", "Hej")
	require.NoError(t, e.svc.Content.SaveAndPublish(e.ctx, c, "*", e.user))

	colour, ok := e.article.PropertyType("colour")
	require.True(t, ok)
	colour.Variations = model.VariationCulture
	res, err := e.svc.ContentTypes.Save(e.ctx, e.article)
	require.NoError(t, err)
	assert.False(t, res.TypeChanged)
	assert.Equal(t, 1, res.Properties)

	// One value for the draft and one for the published version.
	inCulture, err := q.CountPropertyValues(e.ctx, colour.ID, &enID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inCulture)

	got := e.get(t, c.ID)
	assert.Equal(t, "red", got.GetValue("colour", en, false))
	assert.Equal(t, "red", got.GetValue("colour", en, true))
	assert.Nil(t, got.GetValue("colour", da, false))
	assert.True(t, got.Published)
}

func TestRemovePropertyType(t *testing.T) {
	e := newEnv(t)
	q := store.New(e.db)

	c := model.NewContent("News", RootID, e.page)
	require.NoError(t, c.SetValue("colour", "red", ""))
	require.NoError(t, c.SetValue("keywords", "news, sport", ""))
	require.NoError(t, e.svc.Content.Save(e.ctx, c, e.user))

	keywords, ok := e.page.PropertyType("keywords")
	require.True(t, ok)
	e.page.PropertyTypes = e.page.PropertyTypes[:1]
	_, err := e.svc.ContentTypes.Save(e.ctx, e.page)
	require.NoError(t, err)

	n, err := q.CountPropertyValues(e.ctx, keywords.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assigned, err := q.ListTagAssignments(e.ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, assigned)

	got := e.get(t, c.ID)
	_, ok = got.Property("keywords")
	assert.False(t, ok)
	assert.Equal(t, "red", got.GetValue("colour", "", false))
	require.NoError(t, e.svc.Content.Save(e.ctx, got, e.user))
}

func TestVaryTypeByCulturePromotesInvariantProperties(t *testing.T) {
	e := newEnv(t)
	q := store.New(e.db)
	enID, err := e.locales.IDByIso(e.ctx, en)
	require.NoError(t, err)

	ids := make([]int64, 0, 10)
	for i := range 10 {
		ids = append(ids, e.newPage(t, fmt.Sprintf("Page %d", i), RootID, "red").ID)
	}
	colour, ok := e.page.PropertyType("colour")
	require.True(t, ok)
	require.Equal(t, model.VariationNothing, colour.Variations)

	// Only the type changes; colour is left at Nothing.
	e.page.Variations = model.VariationCulture
	res, err := e.svc.ContentTypes.Save(e.ctx, e.page)
	require.NoError(t, err)
	assert.True(t, res.TypeChanged)
	assert.Equal(t, model.VariationCulture, colour.Variations, "colour is promoted with the type")

	inCulture, err := q.CountPropertyValues(e.ctx, colour.ID, &enID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), inCulture)
	invariant, err := q.CountPropertyValues(e.ctx, colour.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, invariant)

	stored, err := e.svc.ContentTypes.Get(e.ctx, e.page.ID)
	require.NoError(t, err)
	pt, ok := stored.PropertyType("colour")
	require.True(t, ok)
	assert.Equal(t, model.VariationCulture, pt.Variations)

	got := e.get(t, ids[0])
	assert.Equal(t, "red", got.GetValue("colour", en, false))
	require.NoError(t, got.SetValue("colour", "rood", en))
	require.NoError(t, e.svc.Content.Save(e.ctx, got, e.user))
	assert.Equal(t, "rood", e.get(t, ids[0]).GetValue("colour", en, false))
}

func TestNewInvariantPropertyOnCultureTypeStaysInvariant(t *testing.T) {
	e := newEnv(t)

	e.article.PropertyTypes = append(e.article.PropertyTypes,
		&model.PropertyType{Alias: "code", Name: "Code", Storage: model.StorageNvarchar})
	res, err := e.svc.ContentTypes.Save(e.ctx, e.article)
	require.NoError(t, err)
	assert.False(t, res.TypeChanged)

	stored, err := e.svc.ContentTypes.GetByAlias(e.ctx, "article")
	require.NoError(t, err)
	for _, alias := range []string{"colour", "code"} {
		pt, ok := stored.PropertyType(alias)
		require.True(t, ok)
		assert.Equal(t, model.VariationNothing, pt.Variations, alias)
	}
}

func TestRejectedSaveLeavesCachedTypeIntact(t *testing.T) {
	e := newEnv(t)
	c := e.newPage(t, "Home", RootID, "red")

	page, err := e.svc.ContentTypes.Get(e.ctx, e.page.ID)
	require.NoError(t, err)
	page.Variations = model.VariationCulture
	page.PropertyTypes = append(page.PropertyTypes,
		&model.PropertyType{Alias: "COLOUR", Name: "Clash", Storage: model.StorageNvarchar})
	_, err = e.svc.ContentTypes.Save(e.ctx, page)
	require.ErrorIs(t, err, model.ErrDuplicateName)

	again, err := e.svc.ContentTypes.Get(e.ctx, e.page.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VariationNothing, again.Variations)
	assert.Len(t, again.PropertyTypes, 2)

	got := e.get(t, c.ID)
	assert.False(t, got.VariesByCulture())
	assert.Len(t, got.Properties(), 2)
	assert.Equal(t, "red", got.GetValue("colour", "", false))
	require.NoError(t, got.SetValue("colour", "blue", ""))
	require.NoError(t, e.svc.Content.Save(e.ctx, got, e.user))
}

func TestContentTypeGettersReturnCopies(t *testing.T) {
	e := newEnv(t)

	first, err := e.svc.ContentTypes.GetByAlias(e.ctx, "page")
	require.NoError(t, err)
	first.Name = "Changed"
	first.PropertyTypes[0].Alias = "changed"

	all, err := e.svc.ContentTypes.List(e.ctx)
	require.NoError(t, err)
	all[0].PropertyTypes = nil

	second, err := e.svc.ContentTypes.Get(e.ctx, e.page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Page", second.Name)
	require.Len(t, second.PropertyTypes, 2)
	assert.Equal(t, "colour", second.PropertyTypes[0].Alias)
}
