// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type Locale struct {
	ID         int64
	IsoCode    string
	Name       string
	IsDefault  bool
	FallbackID sql.NullInt64
}

type User struct {
	ID   int64
	Name string
}

type Node struct {
	ID         int64
	UniqueID   string
	ParentID   int64
	Path       string
	Level      int64
	SortOrder  int64
	Trashed    bool
	ObjectType string
	CreatedAt  time.Time
	CreatorID  int64
}

type ContentType struct {
	ID         int64
	Alias      string
	Name       string
	ObjectType string
	Variations int64
}

type Composition struct {
	ParentTypeID int64
	ChildTypeID  int64
}

type PropertyType struct {
	ID            int64
	ContentTypeID int64
	Alias         string
	Name          string
	Variations    int64
	StorageType   string
	EditorAlias   string
	SortOrder     int64
}

type ContentVersion struct {
	ID          int64
	NodeID      int64
	Current     bool
	Published   bool
	VersionDate time.Time
	Name        string
	UserID      int64
}

type Document struct {
	NodeID      int64
	Published   bool
	Edited      bool
	PublishDate sql.NullTime
	PublisherID sql.NullInt64
	PublishName sql.NullString
	UpdatedAt   time.Time
}

type PropertyValue struct {
	ID             int64
	VersionID      int64
	PropertyTypeID int64
	LocaleID       sql.NullInt64
	Segment        sql.NullString
	IntValue       sql.NullInt64
	DecimalValue   sql.NullFloat64
	DateValue      sql.NullTime
	VarcharValue   sql.NullString
	TextValue      sql.NullString
}

type CultureVariant struct {
	ID        int64
	VersionID int64
	LocaleID  int64
	Name      string
	UpdatedAt time.Time
}

type CulturePublishState struct {
	ID        int64
	NodeID    int64
	LocaleID  int64
	Name      string
	Available bool
	Published bool
	Edited    bool
}

type Tag struct {
	ID       int64
	Text     string
	Group    string
	LocaleID sql.NullInt64
}

type RedirectURL struct {
	ID        int64
	NodeKey   string
	LocaleID  sql.NullInt64
	URL       string
	CreatedAt time.Time
}

type ContentSchedule struct {
	ID       int64
	NodeID   int64
	LocaleID sql.NullInt64
	Action   string
	Date     time.Time
}

type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}
