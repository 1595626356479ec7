// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AllCultures selects every available culture in publish operations.
const AllCultures = "*"

// CultureInfo is the name and date of a content item in one culture.
type CultureInfo struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// PropertyValue holds the edited (draft) and published value of one
// (culture, segment) combination. An empty culture is the invariant value.
type PropertyValue struct {
	Culture   string `json:"culture,omitempty"`
	Segment   string `json:"segment,omitempty"`
	Edited    any    `json:"edited"`
	Published any    `json:"published"`
}

type valueKey struct {
	culture string
	segment string
}

// Property is the set of values stored for one property type.
type Property struct {
	Type   *PropertyType
	values map[valueKey]*PropertyValue
}

func newProperty(pt *PropertyType) *Property {
	return &Property{Type: pt, values: make(map[valueKey]*PropertyValue)}
}

// Alias returns the property type alias.
func (p *Property) Alias() string { return p.Type.Alias }

func (p *Property) value(culture, segment string, create bool) *PropertyValue {
	culture = CanonicalCulture(culture)
	key := valueKey{culture: strings.ToLower(culture), segment: segment}
	pv, ok := p.values[key]
	if !ok && create {
		pv = &PropertyValue{Culture: culture, Segment: segment}
		p.values[key] = pv
	}
	return pv
}

// Value returns the edited or published value for a culture.
func (p *Property) Value(culture string, published bool) any {
	pv := p.value(culture, "", false)
	if pv == nil {
		return nil
	}
	if published {
		return pv.Published
	}
	return pv.Edited
}

// Values returns every stored combination ordered by culture then segment.
func (p *Property) Values() []PropertyValue {
	out := make([]PropertyValue, 0, len(p.values))
	for _, pv := range p.values {
		out = append(out, *pv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Culture != out[j].Culture {
			return out[i].Culture < out[j].Culture
		}
		return out[i].Segment < out[j].Segment
	})
	return out
}

// SetLoadedValue places a stored value without normalization or variation
// checks. Loaders use it to hydrate both views of a property.
func (p *Property) SetLoadedValue(culture, segment string, v any, published bool) {
	pv := p.value(culture, segment, true)
	if published {
		pv.Published = v
	} else {
		pv.Edited = v
	}
}

// publish copies edited values to published for the culture. The invariant
// culture is addressed with "".
func (p *Property) publish(culture string) {
	for _, pv := range p.values {
		if culture == AllCultures || strings.EqualFold(pv.Culture, culture) {
			pv.Published = pv.Edited
		}
	}
}

func (p *Property) unpublish(culture string) {
	for _, pv := range p.values {
		if culture == AllCultures || strings.EqualFold(pv.Culture, culture) {
			pv.Published = nil
		}
	}
}

// edited reports whether any value of the culture differs from its
// published value.
func (p *Property) edited(culture string) bool {
	for _, pv := range p.values {
		if culture != AllCultures && !strings.EqualFold(pv.Culture, culture) {
			continue
		}
		if !ValuesEqual(pv.Edited, pv.Published) {
			return true
		}
	}
	return false
}

// Content is a document with its current draft and published snapshot.
type Content struct {
	ID        int64     `json:"id"`
	Key       uuid.UUID `json:"key"`
	ParentID  int64     `json:"parent_id"`
	Path      string    `json:"path"`
	Level     int       `json:"level"`
	SortOrder int       `json:"sort_order"`
	Trashed   bool      `json:"trashed"`
	CreatorID int64     `json:"creator_id"`
	WriterID  int64     `json:"writer_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ContentType *ContentType `json:"-"`

	// Name is the invariant name. For culture-varying types it mirrors the
	// default culture's name.
	Name               string    `json:"name"`
	VersionID          int64     `json:"version_id"`
	PublishedVersionID int64     `json:"published_version_id"`
	Published          bool      `json:"published"`
	PublishName        string    `json:"publish_name"`
	PublishDate        time.Time `json:"publish_date"`
	PublisherID        int64     `json:"publisher_id"`

	cultures        map[string]CultureInfo
	publishCultures map[string]CultureInfo
	properties      map[string]*Property
	order           []string
}

// NewContent creates an unsaved content item of type ct under parentID.
func NewContent(name string, parentID int64, ct *ContentType) *Content {
	c := &Content{
		Key:         uuid.New(),
		ParentID:    parentID,
		ContentType: ct,
		Name:        name,
	}
	c.ensureProperties()
	return c
}

func (c *Content) ensureProperties() {
	if c.properties != nil {
		return
	}
	c.properties = make(map[string]*Property)
	c.cultures = make(map[string]CultureInfo)
	c.publishCultures = make(map[string]CultureInfo)
	for _, pt := range c.ContentType.AllPropertyTypes() {
		key := strings.ToLower(pt.Alias)
		c.properties[key] = newProperty(pt)
		c.order = append(c.order, key)
	}
}

// HasIdentity reports whether the content has been persisted.
func (c *Content) HasIdentity() bool { return c.ID != 0 }

// VariesByCulture reports whether the content type varies by culture.
func (c *Content) VariesByCulture() bool { return c.ContentType.VariesByCulture() }

// Property returns the property with the given alias.
func (c *Content) Property(alias string) (*Property, bool) {
	c.ensureProperties()
	p, ok := c.properties[strings.ToLower(alias)]
	return p, ok
}

// Properties returns the properties in content type order.
func (c *Content) Properties() []*Property {
	c.ensureProperties()
	out := make([]*Property, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.properties[key])
	}
	return out
}

// SetName sets the invariant name, or the name of a culture.
func (c *Content) SetName(name, culture string) error {
	c.ensureProperties()
	culture = CanonicalCulture(culture)
	if culture == "" {
		c.Name = name
		return nil
	}
	if !c.VariesByCulture() {
		return Errorf(ErrNotSupported, "content type %q does not vary by culture", c.ContentType.Alias)
	}
	if strings.TrimSpace(name) == "" {
		delete(c.cultures, culture)
		return nil
	}
	c.cultures[culture] = CultureInfo{Name: name, Date: time.Now().UTC()}
	return nil
}

// GetName returns the invariant name or a culture name.
func (c *Content) GetName(culture string) string {
	if culture == "" {
		return c.Name
	}
	return c.cultures[CanonicalCulture(culture)].Name
}

// SetCultureInfo restores a culture name with its date. Loaders use it.
func (c *Content) SetCultureInfo(culture string, info CultureInfo) {
	c.ensureProperties()
	c.cultures[CanonicalCulture(culture)] = info
}

// SetPublishInfo restores a published culture name. Loaders use it.
func (c *Content) SetPublishInfo(culture string, info CultureInfo) {
	c.ensureProperties()
	c.publishCultures[CanonicalCulture(culture)] = info
}

// CultureInfos returns the edited culture names.
func (c *Content) CultureInfos() map[string]CultureInfo {
	out := make(map[string]CultureInfo, len(c.cultures))
	for k, v := range c.cultures {
		out[k] = v
	}
	return out
}

// PublishInfos returns the published culture names.
func (c *Content) PublishInfos() map[string]CultureInfo {
	out := make(map[string]CultureInfo, len(c.publishCultures))
	for k, v := range c.publishCultures {
		out[k] = v
	}
	return out
}

// AvailableCultures returns the cultures that have a name, sorted.
func (c *Content) AvailableCultures() []string {
	return sortedKeys(c.cultures)
}

// PublishedCultures returns the cultures that are published, sorted.
func (c *Content) PublishedCultures() []string {
	return sortedKeys(c.publishCultures)
}

// IsCultureAvailable reports whether the culture has a name.
func (c *Content) IsCultureAvailable(culture string) bool {
	_, ok := c.cultures[CanonicalCulture(culture)]
	return ok
}

// IsCulturePublished reports whether the culture is published.
func (c *Content) IsCulturePublished(culture string) bool {
	_, ok := c.publishCultures[CanonicalCulture(culture)]
	return ok && c.Published
}

// IsCultureEdited reports whether an available culture has changes that are
// not published: it was never published, its name changed, or one of its
// values or an invariant value differs from the published snapshot.
func (c *Content) IsCultureEdited(culture string) bool {
	culture = CanonicalCulture(culture)
	info, ok := c.cultures[culture]
	if !ok {
		return false
	}
	pub, ok := c.publishCultures[culture]
	if !ok || !c.Published || pub.Name != info.Name {
		return true
	}
	for _, p := range c.Properties() {
		if c.ContentType.PropertyVariation(p.Type).VariesByCulture() {
			if p.edited(culture) {
				return true
			}
		} else if p.edited("") {
			return true
		}
	}
	return false
}

// Edited reports whether the draft differs from the published snapshot.
func (c *Content) Edited() bool {
	if !c.Published {
		return true
	}
	if c.VariesByCulture() {
		for culture := range c.cultures {
			if c.IsCultureEdited(culture) {
				return true
			}
		}
		return false
	}
	if c.Name != c.PublishName {
		return true
	}
	for _, p := range c.Properties() {
		if p.edited(AllCultures) {
			return true
		}
	}
	return false
}

// SetValue sets the edited value of a property for a culture. The value is
// normalized to the property's storage type.
func (c *Content) SetValue(alias string, value any, culture string) error {
	p, ok := c.Property(alias)
	if !ok {
		return Errorf(ErrInvalidOperation, "no property %q on content type %q", alias, c.ContentType.Alias)
	}
	variation := c.ContentType.PropertyVariation(p.Type)
	if culture != "" && !variation.VariesByCulture() {
		return Errorf(ErrNotSupported, "property %q does not vary by culture", alias)
	}
	if culture == "" && variation.VariesByCulture() {
		return Errorf(ErrInvalidOperation, "property %q requires a culture", alias)
	}
	v, err := p.Type.Storage.Normalize(value)
	if err != nil {
		return err
	}
	p.value(culture, "", true).Edited = v
	return nil
}

// GetValue returns the edited or published value of a property.
func (c *Content) GetValue(alias, culture string, published bool) any {
	p, ok := c.Property(alias)
	if !ok {
		return nil
	}
	return p.Value(culture, published)
}

// PublishCulture copies the edited name and values of a culture into the
// published snapshot. Invariant values are published along with any culture.
// For invariant content the culture is ignored and everything is published.
func (c *Content) PublishCulture(culture string) error {
	c.ensureProperties()
	culture = CanonicalCulture(culture)
	if !c.VariesByCulture() {
		c.PublishName = c.Name
		for _, p := range c.properties {
			p.publish(AllCultures)
		}
		return nil
	}

	cultures := []string{culture}
	if culture == AllCultures || culture == "" {
		cultures = c.AvailableCultures()
	}
	if len(cultures) == 0 {
		return Errorf(ErrInvalidOperation, "content %q has no culture to publish", c.Name)
	}
	now := time.Now().UTC()
	for _, cult := range cultures {
		info, ok := c.cultures[cult]
		if !ok {
			return Errorf(ErrInvalidOperation, "culture %q has no name", cult)
		}
		c.publishCultures[cult] = CultureInfo{Name: info.Name, Date: now}
		for _, p := range c.properties {
			if c.ContentType.PropertyVariation(p.Type).VariesByCulture() {
				p.publish(cult)
			} else {
				p.publish("")
			}
		}
	}
	c.PublishName = c.Name
	return nil
}

// UnpublishCulture removes a culture from the published snapshot. It reports
// whether any culture remains published.
func (c *Content) UnpublishCulture(culture string) bool {
	c.ensureProperties()
	culture = CanonicalCulture(culture)
	if !c.VariesByCulture() || culture == AllCultures || culture == "" {
		c.publishCultures = make(map[string]CultureInfo)
		return false
	}
	delete(c.publishCultures, culture)
	for _, p := range c.properties {
		if c.ContentType.PropertyVariation(p.Type).VariesByCulture() {
			p.unpublish(culture)
		}
	}
	return len(c.publishCultures) > 0
}

// SetPublishedName overrides the published name of a culture, or the
// invariant publish name when culture is empty.
func (c *Content) SetPublishedName(name, culture string) {
	culture = CanonicalCulture(culture)
	if culture == "" {
		c.PublishName = name
		return
	}
	if info, ok := c.publishCultures[culture]; ok {
		info.Name = name
		c.publishCultures[culture] = info
	}
}

func sortedKeys(m map[string]CultureInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
