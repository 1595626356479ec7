// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Job names.
const (
	JobContentSchedules = "content-schedules"
	JobEventRetention   = "event-retention"
)

// ScheduleProcessor applies due content releases and expiries.
type ScheduleProcessor interface {
	ProcessDueSchedules(ctx context.Context, now time.Time) (int, error)
}

// EventPruner removes old event log entries.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// JobConfig holds the schedules of the content jobs.
type JobConfig struct {
	ScheduleInterval string
	RetentionCron    string
	EventRetention   time.Duration
}

// RegisterContentJobs registers the release/expiry job and, when a retention
// is configured, the event log cleanup.
func RegisterContentJobs(s *Scheduler, cfg JobConfig, content ScheduleProcessor, events EventPruner, logger *slog.Logger) error {
	err := s.Register(JobContentSchedules, "Publish and unpublish scheduled content", cfg.ScheduleInterval,
		func(ctx context.Context) error {
			n, err := content.ProcessDueSchedules(ctx, time.Now().UTC())
			if n > 0 {
				logger.Info("processed scheduled content", "applied", n)
			}
			return err
		})
	if err != nil {
		return err
	}

	if events == nil || cfg.EventRetention <= 0 {
		return nil
	}
	return s.Register(JobEventRetention, "Delete old event log entries", cfg.RetentionCron,
		func(ctx context.Context) error {
			n, err := events.DeleteOldEvents(ctx, cfg.EventRetention)
			if n > 0 {
				logger.Info("deleted old events", "count", n, "retention", cfg.EventRetention)
			}
			return err
		})
}
