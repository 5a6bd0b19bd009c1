// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance: the safety-net orphan
// sweep with projection rebuild, and audit log retention cleanup.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/evreg-go/internal/aggregate"
	"github.com/olegiv/evreg-go/internal/cache"
	"github.com/olegiv/evreg-go/internal/integrity"
	"github.com/olegiv/evreg-go/internal/service"
	"github.com/olegiv/evreg-go/internal/webhook"
)

// Scheduler owns the cron runner and the maintenance jobs.
type Scheduler struct {
	engine    *integrity.Engine
	rebuilder *aggregate.Rebuilder
	audit     *service.AuditService
	webhooks  *webhook.Dispatcher
	cron      *cron.Cron
	logger    *slog.Logger

	sweepSchedule  string
	auditRetention time.Duration
}

// Options configures the scheduler jobs.
type Options struct {
	// SweepSchedule is a cron spec for the orphan sweep ("@hourly" by default).
	SweepSchedule string
	// AuditRetention is how long audit entries are kept (90 days by default).
	AuditRetention time.Duration
	// Webhooks may be nil; sweep notifications are then skipped.
	Webhooks *webhook.Dispatcher
}

// New creates a scheduler. The cache may be nil.
func New(db *sql.DB, c cache.Cache, logger *slog.Logger, opts Options) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SweepSchedule == "" {
		opts.SweepSchedule = "@hourly"
	}
	if opts.AuditRetention <= 0 {
		opts.AuditRetention = 90 * 24 * time.Hour
	}

	return &Scheduler{
		engine:         integrity.New(db, logger),
		rebuilder:      aggregate.New(db, c, logger),
		audit:          service.NewAuditService(db),
		webhooks:       opts.Webhooks,
		cron:           cron.New(),
		logger:         logger,
		sweepSchedule:  opts.SweepSchedule,
		auditRetention: opts.AuditRetention,
	}
}

// Start registers the jobs and begins the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.sweepSchedule, s.runSweep); err != nil {
		return err
	}

	// Retention cleanup once a day, off the busy hours.
	if _, err := s.cron.AddFunc("30 3 * * *", s.runAuditCleanup); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		"jobs", len(s.cron.Entries()),
		"sweep_schedule", s.sweepSchedule,
	)
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// runSweep purges orphaned participations and rebuilds the projection
// when anything was removed. Mutating endpoints already keep the data
// consistent; this is the safety net for rows they missed.
func (s *Scheduler) runSweep() {
	ctx := context.Background()

	removed, err := s.engine.PurgeAllOrphans(ctx)
	if err != nil {
		s.logger.Error("scheduled orphan sweep failed", "error", err)
		return
	}
	if removed == 0 {
		return
	}

	summaries, err := s.rebuilder.RebuildUserRegistrations(ctx)
	if err != nil {
		s.logger.Error("projection rebuild after scheduled sweep failed", "error", err)
		return
	}

	s.logger.Info("scheduled sweep completed",
		"category", "integrity",
		"removed", removed,
		"rebuilt_users", len(summaries),
	)

	if s.webhooks != nil {
		s.webhooks.Dispatch(ctx, webhook.NewEvent(webhook.EventTypeParticipationsPurged, webhook.ParticipationsPurgedData{
			Removed: removed,
		}))
	}
}

// runAuditCleanup deletes audit entries older than the retention window.
func (s *Scheduler) runAuditCleanup() {
	ctx := context.Background()

	deleted, err := s.audit.DeleteOldEntries(ctx, s.auditRetention)
	if err != nil {
		s.logger.Error("audit log cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("audit log cleanup completed", "deleted", deleted)
	}
}
