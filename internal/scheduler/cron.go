package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// JobQueue is the part of the download queue the scheduler maintains
type JobQueue interface {
	CancelStuck(timeout time.Duration) bool
	Prune(cutoff time.Time) (int, error)
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron       *cron.Cron
	queue      JobQueue
	jobTimeout time.Duration
	retention  time.Duration
	logger     *logrus.Logger
}

// NewScheduler creates a new scheduler. A non-positive retention keeps
// finished jobs forever.
func NewScheduler(queue JobQueue, jobTimeoutMinutes, retentionDays int, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		queue:      queue,
		jobTimeout: time.Duration(jobTimeoutMinutes) * time.Minute,
		retention:  time.Duration(retentionDays) * 24 * time.Hour,
		logger:     logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every 10 minutes: Check for a stuck download
	_, err := s.cron.AddFunc("*/10 * * * *", func() {
		s.runStuckDownloadCheck()
	})
	if err != nil {
		return fmt.Errorf("failed to add stuck download check job: %w", err)
	}

	// Daily at 03:00: Forget old finished jobs
	_, err = s.cron.AddFunc("0 3 * * *", func() {
		s.runPrune()
	})
	if err != nil {
		return fmt.Errorf("failed to add prune job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	go s.runPrune()

	return nil
}

// Stop stops the scheduler and waits for running tasks
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

// runStuckDownloadCheck cancels the running job once it exceeds the timeout
func (s *Scheduler) runStuckDownloadCheck() {
	s.logger.Debug("Running stuck download check")

	if s.jobTimeout <= 0 {
		return
	}
	if s.queue.CancelStuck(s.jobTimeout) {
		s.logger.WithField("timeout", s.jobTimeout).Warn("Cancelled stuck download")
	}
}

// runPrune removes finished jobs older than the retention period
func (s *Scheduler) runPrune() {
	if s.retention <= 0 {
		return
	}

	cutoff := time.Now().Add(-s.retention)
	deleted, err := s.queue.Prune(cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Prune job failed")
		return
	}

	if deleted > 0 {
		s.logger.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Pruned finished jobs")
	}
}
