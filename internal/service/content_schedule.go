// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/store"
	"github.com/olegiv/ocms-content/internal/util"
)

// Schedule plans a release (publish) or expiry (unpublish) of a node at
// date. A culture may only be given for culture-varying content.
func (s *ContentService) Schedule(ctx context.Context, nodeID int64, action, culture string, date time.Time) (model.Schedule, error) {
	if !model.IsValidScheduleAction(action) {
		return model.Schedule{}, model.Errorf(model.ErrInvalidOperation, "unknown schedule action %q", action)
	}
	culture, err := s.canonicalCulture(ctx, culture)
	if err != nil {
		return model.Schedule{}, err
	}
	if culture == model.AllCultures {
		culture = ""
	}

	var out model.Schedule
	err = s.write(ctx, func(q *store.Queries) ([]notice, error) {
		c, err := s.loadOne(ctx, q, nodeID)
		if err != nil {
			return nil, err
		}
		var localeID int64
		if culture != "" {
			if !c.VariesByCulture() {
				return nil, model.Errorf(model.ErrNotSupported, "content %d does not vary by culture", nodeID)
			}
			if localeID, err = s.locales.IDByIso(ctx, culture); err != nil {
				return nil, err
			}
		}
		row, err := q.CreateSchedule(ctx, store.CreateScheduleParams{
			NodeID: nodeID, LocaleID: util.NullInt64FromID(localeID), Action: action, Date: date,
		})
		if err != nil {
			return nil, fmt.Errorf("scheduling %s of node %d: %w", action, nodeID, err)
		}
		out = model.Schedule{ID: row.ID, NodeID: nodeID, Culture: culture, Action: action, Date: row.Date}
		return nil, nil
	})
	return out, err
}

// Schedules returns the pending schedule entries of a node, earliest first.
func (s *ContentService) Schedules(ctx context.Context, nodeID int64) ([]model.Schedule, error) {
	rows, err := store.New(s.db).ListSchedulesForNode(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("listing schedules of node %d: %w", nodeID, err)
	}
	out := make([]model.Schedule, 0, len(rows))
	for _, r := range rows {
		sch, err := s.toSchedule(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, sch)
	}
	return out, nil
}

// ClearSchedule removes every pending schedule entry of a node.
func (s *ContentService) ClearSchedule(ctx context.Context, nodeID int64) error {
	return s.write(ctx, func(q *store.Queries) ([]notice, error) {
		if err := q.DeleteSchedulesForNode(ctx, nodeID); err != nil {
			return nil, fmt.Errorf("clearing schedules of node %d: %w", nodeID, err)
		}
		return nil, nil
	})
}

// ProcessDueSchedules publishes due releases and unpublishes due expiries.
// Each entry runs in its own transaction and is removed once applied. An
// entry that can never apply, because its node or culture is gone, is
// dropped with a warning. It returns the number of entries applied.
func (s *ContentService) ProcessDueSchedules(ctx context.Context, now time.Time) (int, error) {
	due, err := store.New(s.db).ListDueSchedules(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing due schedules: %w", err)
	}

	applied := 0
	for _, row := range due {
		sch, err := s.toSchedule(ctx, row)
		if err == nil {
			err = s.applySchedule(ctx, sch)
		}
		switch {
		case err == nil:
			applied++
		case errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrInvalidOperation):
			s.logger.Warn("dropping schedule entry", "category", model.EventCategoryScheduler,
				"schedule_id", row.ID, "node_id", row.NodeID, "action", row.Action, "error", err)
			if derr := s.write(ctx, func(q *store.Queries) ([]notice, error) {
				return nil, q.DeleteSchedule(ctx, row.ID)
			}); derr != nil {
				return applied, derr
			}
		default:
			s.logger.Error("schedule entry failed", "category", model.EventCategoryScheduler,
				"schedule_id", row.ID, "node_id", row.NodeID, "error", err)
		}
	}

	if applied > 0 {
		_ = s.events.LogInfo(ctx, model.EventCategoryScheduler, "Scheduled content processed", map[string]any{
			"applied": applied,
			"due":     len(due),
		})
	}
	return applied, nil
}

func (s *ContentService) applySchedule(ctx context.Context, sch model.Schedule) error {
	return s.write(ctx, func(q *store.Queries) ([]notice, error) {
		c, err := s.loadOne(ctx, q, sch.NodeID)
		if err != nil {
			return nil, err
		}
		var n []notice
		switch sch.Action {
		case model.ScheduleRelease:
			cultures, err := s.publish(ctx, q, c, sch.Culture, 0)
			if err != nil {
				return nil, err
			}
			n = append(n, notice{kind: noticePublished, content: c, cultures: cultures})
		case model.ScheduleExpire:
			cultures, changed, err := s.unpublish(ctx, q, c, sch.Culture, 0)
			if err != nil {
				return nil, err
			}
			if changed {
				n = append(n, notice{kind: noticeUnpublished, content: c, cultures: cultures})
			}
		}
		if err := q.DeleteSchedule(ctx, sch.ID); err != nil {
			return nil, fmt.Errorf("deleting schedule %d: %w", sch.ID, err)
		}
		return n, nil
	})
}

func (s *ContentService) toSchedule(ctx context.Context, r store.ContentSchedule) (model.Schedule, error) {
	sch := model.Schedule{ID: r.ID, NodeID: r.NodeID, Action: r.Action, Date: r.Date}
	if r.LocaleID.Valid {
		iso, err := s.locales.IsoByID(ctx, r.LocaleID.Int64)
		if err != nil {
			return sch, err
		}
		sch.Culture = iso
	}
	return sch, nil
}
