// Package scheduler runs periodic background jobs such as price cache warming.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/lrs-backtest/internal/backtest"
	"github.com/yourusername/lrs-backtest/internal/models"
)

const defaultJobTimeout = 10 * time.Minute

// Warmer loads a run's market data ahead of demand
type Warmer interface {
	Prefetch(ctx context.Context, params backtest.Params) error
}

// Scheduler manages scheduled cache warming jobs
type Scheduler struct {
	cron       *cron.Cron
	warmer     Warmer
	logger     *logrus.Entry
	jobTimeout time.Duration
	now        func() time.Time

	mu        sync.RWMutex
	isRunning bool
	jobIDs    []cron.EntryID
}

// NewScheduler creates a new scheduler running in UTC
func NewScheduler(warmer Warmer, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.New()
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		warmer:     warmer,
		logger:     log.WithField("component", "scheduler"),
		jobTimeout: defaultJobTimeout,
		now:        time.Now,
		jobIDs:     make([]cron.EntryID, 0),
	}
}

// ScheduleCacheWarm prefetches the series for the parameters returned by
// params on every tick of the standard cron expression
func (s *Scheduler) ScheduleCacheWarm(cronExpression string, params func(now time.Time) backtest.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		_ = s.WarmNow(ctx, params(s.now()))
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("schedule", cronExpression).Info("Scheduled cache warm job")
	return nil
}

// WarmNow runs one warm pass immediately
func (s *Scheduler) WarmNow(ctx context.Context, params backtest.Params) error {
	started := time.Now()
	entry := s.logger.WithFields(logrus.Fields{
		"start":     params.Start.Format(models.DateLayout),
		"end":       params.End.Format(models.DateLayout),
		"ma_period": params.MAPeriod,
	})
	entry.Info("Starting cache warm")

	if err := s.warmer.Prefetch(ctx, params); err != nil {
		entry.WithError(err).Error("Cache warm failed")
		return fmt.Errorf("cache warm: %w", err)
	}

	entry.WithField("duration_ms", time.Since(started).Milliseconds()).Info("Cache warm completed")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop waits for running jobs, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() && (nextRun.IsZero() || entry.Next.Before(nextRun)) {
			nextRun = entry.Next
		}
	}
	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		if entry := s.cron.Entry(jobID); entry.Valid() {
			entries = append(entries, entry)
		}
	}
	return entries
}
