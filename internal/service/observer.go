// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"

	"github.com/olegiv/ocms-content/internal/model"
)

// Observer receives content notifications. Notifications are delivered after
// the transaction commits, in registration order, on the calling goroutine.
type Observer interface {
	ContentSaved(ctx context.Context, c *model.Content)
	ContentPublished(ctx context.Context, c *model.Content, cultures []string)
	ContentUnpublished(ctx context.Context, c *model.Content, cultures []string)
	ContentDeleted(ctx context.Context, ids []int64)
}

// ObserverFuncs adapts optional functions to the Observer interface. Nil
// fields are skipped.
type ObserverFuncs struct {
	Saved       func(ctx context.Context, c *model.Content)
	Published   func(ctx context.Context, c *model.Content, cultures []string)
	Unpublished func(ctx context.Context, c *model.Content, cultures []string)
	Deleted     func(ctx context.Context, ids []int64)
}

func (f ObserverFuncs) ContentSaved(ctx context.Context, c *model.Content) {
	if f.Saved != nil {
		f.Saved(ctx, c)
	}
}

func (f ObserverFuncs) ContentPublished(ctx context.Context, c *model.Content, cultures []string) {
	if f.Published != nil {
		f.Published(ctx, c, cultures)
	}
}

func (f ObserverFuncs) ContentUnpublished(ctx context.Context, c *model.Content, cultures []string) {
	if f.Unpublished != nil {
		f.Unpublished(ctx, c, cultures)
	}
}

func (f ObserverFuncs) ContentDeleted(ctx context.Context, ids []int64) {
	if f.Deleted != nil {
		f.Deleted(ctx, ids)
	}
}

type noticeKind int

const (
	noticeSaved noticeKind = iota
	noticePublished
	noticeUnpublished
	noticeDeleted
)

// notice is a notification collected inside a transaction and delivered once
// it has committed. ids lists the deleted nodes, or further nodes whose cache
// entries the change invalidates.
type notice struct {
	kind     noticeKind
	content  *model.Content
	cultures []string
	ids      []int64
}

func (n notice) nodeIDs() []int64 {
	if n.kind == noticeDeleted {
		return n.ids
	}
	return append([]int64{n.content.ID}, n.ids...)
}
