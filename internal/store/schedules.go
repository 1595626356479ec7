// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const scheduleColumns = `id, node_id, locale_id, action, date`

func scanSchedule(row interface{ Scan(...any) error }) (ContentSchedule, error) {
	var i ContentSchedule
	err := row.Scan(&i.ID, &i.NodeID, &i.LocaleID, &i.Action, &i.Date)
	return i, err
}

const createSchedule = `
INSERT INTO content_schedule (node_id, locale_id, action, date)
VALUES (?, ?, ?, ?)
RETURNING ` + scheduleColumns

type CreateScheduleParams struct {
	NodeID   int64
	LocaleID sql.NullInt64
	Action   string
	Date     time.Time
}

func (q *Queries) CreateSchedule(ctx context.Context, arg CreateScheduleParams) (ContentSchedule, error) {
	row := q.db.QueryRowContext(ctx, createSchedule, arg.NodeID, arg.LocaleID, arg.Action, arg.Date.UTC())
	return scanSchedule(row)
}

func (q *Queries) listSchedules(ctx context.Context, query string, args ...any) ([]ContentSchedule, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []ContentSchedule
	for rows.Next() {
		i, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listSchedulesForNode = `SELECT ` + scheduleColumns + ` FROM content_schedule WHERE node_id = ? ORDER BY date, id`

func (q *Queries) ListSchedulesForNode(ctx context.Context, nodeID int64) ([]ContentSchedule, error) {
	return q.listSchedules(ctx, listSchedulesForNode, nodeID)
}

const listDueSchedules = `SELECT ` + scheduleColumns + ` FROM content_schedule WHERE date <= ? ORDER BY date, id`

// ListDueSchedules returns the schedule entries whose date is not after now.
func (q *Queries) ListDueSchedules(ctx context.Context, now time.Time) ([]ContentSchedule, error) {
	return q.listSchedules(ctx, listDueSchedules, now.UTC())
}

const deleteSchedule = `DELETE FROM content_schedule WHERE id = ?`

func (q *Queries) DeleteSchedule(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteSchedule, id)
	return err
}

const deleteSchedulesForNode = `DELETE FROM content_schedule WHERE node_id = ?`

func (q *Queries) DeleteSchedulesForNode(ctx context.Context, nodeID int64) error {
	_, err := q.db.ExecContext(ctx, deleteSchedulesForNode, nodeID)
	return err
}

const deleteSchedulesForContentTypes = `
DELETE FROM content_schedule
WHERE node_id IN (SELECT node_id FROM content WHERE content_type_id IN (%s))
`

func (q *Queries) DeleteSchedulesForContentTypes(ctx context.Context, contentTypeIDs []int64) (int64, error) {
	if len(contentTypeIDs) == 0 {
		return 0, nil
	}
	res, err := q.db.ExecContext(ctx, expandIn(deleteSchedulesForContentTypes, len(contentTypeIDs)), int64Args(contentTypeIDs)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
