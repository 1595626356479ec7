// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func testContentType(variations Variation) *ContentType {
	base := &ContentType{
		ID:    2,
		Alias: "seo",
		Name:  "SEO",
		PropertyTypes: []*PropertyType{
			{ID: 20, ContentTypeID: 2, Alias: "metaTitle", Variations: VariationCulture, Storage: StorageNvarchar},
		},
	}
	return &ContentType{
		ID:         1,
		Alias:      "page",
		Name:       "Page",
		ObjectType: ObjectTypeDocument,
		Variations: variations,
		PropertyTypes: []*PropertyType{
			{ID: 10, ContentTypeID: 1, Alias: "colour", Storage: StorageNvarchar},
			{ID: 11, ContentTypeID: 1, Alias: "price", Variations: VariationCulture, Storage: StorageDecimal},
			{ID: 12, ContentTypeID: 1, Alias: "count", Storage: StorageInteger},
		},
		Compositions: []*ContentType{base},
	}
}

func TestAllPropertyTypesIncludesCompositions(t *testing.T) {
	ct := testContentType(VariationNothing)
	all := ct.AllPropertyTypes()
	if len(all) != 4 {
		t.Fatalf("len(AllPropertyTypes) = %d, want 4", len(all))
	}
	if _, ok := ct.PropertyType("METATITLE"); !ok {
		t.Error("PropertyType(METATITLE) not found, want case-insensitive match")
	}
}

func TestContentTypeValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(ct *ContentType)
		wantErr error
	}{
		{name: "valid", mutate: func(*ContentType) {}},
		{name: "empty alias", mutate: func(ct *ContentType) { ct.Alias = " " }, wantErr: ErrInvalidOperation},
		{name: "segment", mutate: func(ct *ContentType) { ct.Variations = VariationSegment }, wantErr: ErrNotSupported},
		{name: "culture and segment property", mutate: func(ct *ContentType) {
			ct.PropertyTypes[0].Variations = VariationCultureAndSegment
		}, wantErr: ErrNotSupported},
		{name: "duplicate alias across composition", mutate: func(ct *ContentType) {
			ct.PropertyTypes[0].Alias = "metaTitle"
		}, wantErr: ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := testContentType(VariationCulture)
			tt.mutate(ct)
			err := ct.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetValueVariationRules(t *testing.T) {
	invariant := NewContent("Home", -1, testContentType(VariationNothing))
	// A culture property on an invariant type is stored invariantly.
	if err := invariant.SetValue("price", 9.5, ""); err != nil {
		t.Fatalf("SetValue invariant price: %v", err)
	}
	if err := invariant.SetValue("price", 9.5, "en-US"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("SetValue culture on invariant type = %v, want ErrNotSupported", err)
	}

	variant := NewContent("Home", -1, testContentType(VariationCulture))
	if err := variant.SetValue("price", 9.5, ""); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("SetValue without culture = %v, want ErrInvalidOperation", err)
	}
	if err := variant.SetValue("price", "12.25", "en-US"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if got := variant.GetValue("price", "en-US", false); got != 12.25 {
		t.Errorf("GetValue = %v, want 12.25", got)
	}
	if err := variant.SetValue("missing", 1, ""); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("SetValue unknown alias = %v, want ErrInvalidOperation", err)
	}
	if err := variant.SetValue("count", "abc", ""); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("SetValue bad integer = %v, want ErrInvalidOperation", err)
	}
}

func TestPublishInvariantContent(t *testing.T) {
	c := NewContent("Home", -1, testContentType(VariationNothing))
	if err := c.SetValue("colour", "red", ""); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if err := c.PublishCulture(AllCultures); err != nil {
		t.Fatalf("PublishCulture: %v", err)
	}
	c.Published = true

	if got := c.GetValue("colour", "", true); got != "red" {
		t.Errorf("published colour = %v, want red", got)
	}
	if c.Edited() {
		t.Error("Edited() = true right after publishing, want false")
	}

	if err := c.SetValue("colour", "blue", ""); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if !c.Edited() {
		t.Error("Edited() = false after changing a value, want true")
	}
	if got := c.GetValue("colour", "", true); got != "red" {
		t.Errorf("published colour = %v, want red", got)
	}
}

func TestPublishCulture(t *testing.T) {
	c := NewContent("Home", -1, testContentType(VariationCulture))
	for culture, name := range map[string]string{"en-US": "Home", "da-DK": "Hjem"} {
		if err := c.SetName(name, culture); err != nil {
			t.Fatalf("SetName: %v", err)
		}
		if err := c.SetValue("price", 10, culture); err != nil {
			t.Fatalf("SetValue: %v", err)
		}
	}

	if err := c.PublishCulture("da-DK"); err != nil {
		t.Fatalf("PublishCulture: %v", err)
	}
	c.Published = true

	if !c.IsCulturePublished("da-DK") {
		t.Error("da-DK should be published")
	}
	if c.IsCulturePublished("en-US") {
		t.Error("en-US should not be published")
	}
	if c.IsCultureEdited("da-DK") {
		t.Error("da-DK should not be edited")
	}
	if !c.IsCultureEdited("en-US") {
		t.Error("en-US should be edited (never published)")
	}
	if got := c.GetValue("price", "en-US", true); got != nil {
		t.Errorf("published en-US price = %v, want nil", got)
	}

	if err := c.PublishCulture("fr-FR"); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("PublishCulture unnamed culture = %v, want ErrInvalidOperation", err)
	}

	if c.UnpublishCulture("da-DK") {
		t.Error("UnpublishCulture reported remaining cultures, want none")
	}
}

func TestCultureKeysAreCanonical(t *testing.T) {
	c := NewContent("Home", -1, testContentType(VariationCulture))
	if err := c.SetName("Home", "en-US"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if err := c.SetName("Home page", "en-us"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if err := c.SetValue("price", 10, "en_us"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}

	if got := c.AvailableCultures(); len(got) != 1 || got[0] != "en-US" {
		t.Fatalf("AvailableCultures() = %v, want [en-US]", got)
	}
	if got := c.GetName("EN-us"); got != "Home page" {
		t.Errorf("GetName(EN-us) = %q, want %q", got, "Home page")
	}
	if !c.IsCultureAvailable("en-us") {
		t.Error("IsCultureAvailable(en-us) = false, want true")
	}
	price, _ := c.Property("price")
	if vals := price.Values(); len(vals) != 1 || vals[0].Culture != "en-US" {
		t.Errorf("price values = %+v, want one en-US value", vals)
	}

	if err := c.PublishCulture("en-us"); err != nil {
		t.Fatalf("PublishCulture: %v", err)
	}
	c.Published = true
	if got := c.PublishedCultures(); len(got) != 1 || got[0] != "en-US" {
		t.Errorf("PublishedCultures() = %v, want [en-US]", got)
	}
	if !c.IsCulturePublished("EN-US") {
		t.Error("IsCulturePublished(EN-US) = false, want true")
	}
	if c.IsCultureEdited("en-us") {
		t.Error("IsCultureEdited(en-us) = true right after publishing")
	}
	if c.UnpublishCulture("en-us") {
		t.Error("UnpublishCulture(en-us) left cultures published")
	}
}

func TestCanonicalCulture(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"*":       "*",
		"en-us":   "en-US",
		" da_dk ": "da-DK",
		"EN":      "en",
		"??":      "??",
	}
	for in, want := range tests {
		if got := CanonicalCulture(in); got != want {
			t.Errorf("CanonicalCulture(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContentTypeCloneIsDeep(t *testing.T) {
	ct := testContentType(VariationNothing)
	c := ct.Clone()

	c.Alias = "other"
	c.Variations = VariationCulture
	c.PropertyTypes[0].Alias = "changed"
	c.PropertyTypes = append(c.PropertyTypes, &PropertyType{Alias: "extra"})
	c.Compositions[0].PropertyTypes[0].Variations = VariationNothing

	if ct.Alias != "page" || ct.Variations != VariationNothing {
		t.Errorf("original type changed: alias %q variations %v", ct.Alias, ct.Variations)
	}
	if ct.PropertyTypes[0].Alias != "colour" || len(ct.PropertyTypes) != 3 {
		t.Errorf("original property types changed: %q, %d", ct.PropertyTypes[0].Alias, len(ct.PropertyTypes))
	}
	if ct.Compositions[0].PropertyTypes[0].Variations != VariationCulture {
		t.Error("original composition property type changed")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ct := testContentType(VariationCulture)
	c := NewContent("Home", -1, ct)
	c.ID = 7
	if err := c.SetName("Home", "en-US"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if err := c.SetValue("count", 3, ""); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	when := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ct.PropertyTypes = append(ct.PropertyTypes, &PropertyType{ID: 13, Alias: "releaseDate", Storage: StorageDate})
	c2 := NewContent("Home", -1, ct)
	if err := c2.SetValue("releaseDate", when, ""); err != nil {
		t.Fatalf("SetValue: %v", err)
	}

	for _, src := range []*Content{c, c2} {
		data, err := json.Marshal(src.Snapshot())
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var s Snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		restored, err := Restore(s, ct)
		if err != nil {
			t.Fatalf("Restore: %v", err)
		}
		for _, p := range src.Properties() {
			for _, pv := range p.Values() {
				got := restored.GetValue(p.Alias(), pv.Culture, false)
				if !ValuesEqual(got, pv.Edited) {
					t.Errorf("%s[%s] = %v (%T), want %v (%T)", p.Alias(), pv.Culture, got, got, pv.Edited, pv.Edited)
				}
			}
		}
		if restored.GetName("en-US") != src.GetName("en-US") {
			t.Errorf("culture name = %q, want %q", restored.GetName("en-US"), src.GetName("en-US"))
		}
	}
}
