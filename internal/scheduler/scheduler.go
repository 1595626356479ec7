// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic jobs of the content engine on cron
// schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"
)

// ErrJobNotFound is returned for an unknown job name.
var ErrJobNotFound = errors.New("job not found")

// ErrTriggerLimited is returned when a job is triggered manually too often.
var ErrTriggerLimited = errors.New("rate limit exceeded, try again in a few seconds")

// JobFunc is the work of a job. It runs with a context cancelled by Stop.
type JobFunc func(ctx context.Context) error

// registeredJob holds a job with its cron entry.
type registeredJob struct {
	name            string
	description     string
	defaultSchedule string
	schedule        string
	entryID         cron.EntryID
	run             JobFunc
	limiter         *rate.Limiter
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DefaultSchedule string    `json:"default_schedule"`
	Schedule        string    `json:"schedule"` // effective schedule
	IsOverridden    bool      `json:"is_overridden"`
	LastRun         time.Time `json:"last_run"`
	NextRun         time.Time `json:"next_run"`
}

// Scheduler owns a cron instance and the jobs registered on it. A run is
// skipped while the previous run of the same job is still going.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New creates a new scheduler instance.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*registeredJob),
	}
}

// Register adds a job under a unique name.
func (s *Scheduler) Register(name, description, schedule string, run JobFunc) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %s is already registered", name)
	}
	job := &registeredJob{
		name:            name,
		description:     description,
		defaultSchedule: schedule,
		schedule:        schedule,
		run:             run,
		limiter:         rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
	id, err := s.cron.AddFunc(schedule, s.wrap(job))
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	job.entryID = id
	s.jobs[name] = job

	s.logger.Debug("registered scheduled job", "name", name, "schedule", schedule)
	return nil
}

// wrap turns a job into a cron func that logs failures.
func (s *Scheduler) wrap(job *registeredJob) func() {
	return func() {
		start := time.Now()
		if err := job.run(s.ctx); err != nil {
			s.logger.Error("scheduled job failed", "category", "scheduler", "job", job.name, "error", err)
			return
		}
		s.logger.Debug("scheduled job finished", "job", job.name, "duration", time.Since(start))
	}
}

// List returns all registered jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		entry := s.cron.Entry(job.entryID)
		result = append(result, JobInfo{
			Name:            job.name,
			Description:     job.description,
			DefaultSchedule: job.defaultSchedule,
			Schedule:        job.schedule,
			IsOverridden:    job.schedule != job.defaultSchedule,
			LastRun:         entry.Prev,
			NextRun:         entry.Next,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// TriggerNow runs a job immediately on the calling goroutine. Manual triggers
// are limited to one per job every ten seconds.
func (s *Scheduler) TriggerNow(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !job.limiter.Allow() {
		return ErrTriggerLimited
	}

	s.logger.Info("manually triggering job", "name", name)
	return job.run(ctx)
}

// UpdateSchedule replaces the cron entry of a job with a new schedule.
func (s *Scheduler) UpdateSchedule(name, schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.cron.Remove(job.entryID)
	id, err := s.cron.AddFunc(schedule, s.wrap(job))
	if err != nil {
		// Re-add with old schedule on failure
		fallbackID, fallbackErr := s.cron.AddFunc(job.schedule, s.wrap(job))
		if fallbackErr != nil {
			return fmt.Errorf("critical: failed to restore schedule after update failure: %w (original: %w)", fallbackErr, err)
		}
		job.entryID = fallbackID
		return fmt.Errorf("failed to apply new schedule: %w", err)
	}
	job.entryID = id
	job.schedule = schedule

	s.logger.Info("updated job schedule", "name", name, "schedule", schedule)
	return nil
}

// ResetSchedule restores the schedule a job was registered with.
func (s *Scheduler) ResetSchedule(name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if job.schedule == job.defaultSchedule {
		return nil
	}
	return s.UpdateSchedule(name, job.defaultSchedule)
}

// Start begins running the registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "category", "scheduler", "error", err)...)
}
