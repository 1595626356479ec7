// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package property

import (
	"context"

	"github.com/olegiv/ocms-content/internal/model"
)

// LocaleLookup is the subset of the locale resolver used to map cultures.
type LocaleLookup interface {
	IDByIso(ctx context.Context, iso string) (int64, error)
	IsoByID(ctx context.Context, id int64) (string, error)
}

// FromContent collects the edited or published values of c.
func FromContent(ctx context.Context, c *model.Content, published bool, locales LocaleLookup) ([]Value, error) {
	var values []Value
	for _, p := range c.Properties() {
		for _, pv := range p.Values() {
			v := pv.Edited
			if published {
				v = pv.Published
			}
			if v == nil {
				continue
			}
			var localeID int64
			if pv.Culture != "" {
				id, err := locales.IDByIso(ctx, pv.Culture)
				if err != nil {
					return nil, err
				}
				localeID = id
			}
			values = append(values, Value{
				PropertyTypeID: p.Type.ID,
				Alias:          p.Type.Alias,
				Storage:        p.Type.Storage,
				LocaleID:       localeID,
				Segment:        pv.Segment,
				Value:          v,
			})
		}
	}
	return values, nil
}

// ApplyTo places loaded values into the edited or published view of c.
// Values of property types that c's type does not declare are an error.
func ApplyTo(ctx context.Context, c *model.Content, values []Value, published bool, locales LocaleLookup) error {
	for _, v := range values {
		p, ok := c.Property(v.Alias)
		if !ok || p.Type.ID != v.PropertyTypeID {
			return model.Errorf(model.ErrInvalidOperation,
				"no property data found for version %d: property %q is not part of %q",
				versionOf(c, published), v.Alias, c.ContentType.Alias)
		}
		culture := ""
		if v.LocaleID != 0 {
			iso, err := locales.IsoByID(ctx, v.LocaleID)
			if err != nil {
				return err
			}
			culture = iso
		}
		p.SetLoadedValue(culture, v.Segment, v.Value, published)
	}
	return nil
}

func versionOf(c *model.Content, published bool) int64 {
	if published {
		return c.PublishedVersionID
	}
	return c.VersionID
}
