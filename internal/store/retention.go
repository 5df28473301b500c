// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"time"

	"toxic-scan/internal/logging"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule runs retention daily at 03:00
const DefaultPruneSchedule = "0 3 * * *"

// Pruner deletes analyses older than a cutoff
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler runs retention on a cron schedule
type Scheduler struct {
	pruner    Pruner
	retention time.Duration
	schedule  string
	log       logging.Logger
	cron      *cron.Cron
	now       func() time.Time
}

// NewScheduler creates a scheduler that keeps retentionDays of analyses
func NewScheduler(p Pruner, retentionDays int, schedule string, log logging.Logger) (*Scheduler, error) {
	if retentionDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Scheduler{
		pruner:    p,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		schedule:  schedule,
		log:       log.With(logging.String("component", "retention")),
		cron:      cron.New(),
		now:       time.Now,
	}, nil
}

// Start registers the prune job and starts the cron runner
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error("retention run failed", logging.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retention: %w", err)
	}
	s.cron.Start()
	s.log.Info("retention scheduler started",
		logging.String("schedule", s.schedule),
		logging.Duration("retention", s.retention))
	return nil
}

// Stop waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce prunes immediately
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info("pruned analyses",
		logging.Int64("deleted", n),
		logging.String("cutoff", cutoff.UTC().Format(time.RFC3339)))
	return n, nil
}
