package controllers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amaumene/aacfetch/internal/metrics"
	"github.com/amaumene/aacfetch/internal/models"
	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 64

// JobRunner runs one job to completion
type JobRunner interface {
	Run(ctx context.Context, job *models.DownloadJob, sink models.EventSink) (*DownloadResult, error)
}

// OutputSweeper clears stray artifacts from an output directory
type OutputSweeper interface {
	SweepOutputDir(dir string) (int, error)
}

// EnqueueRequest is a download request from the frontend
type EnqueueRequest struct {
	URL       string
	Kind      models.OutputKind
	Quality   models.Quality
	OutputDir string
	Media     *models.MediaItem // optional, from an earlier preview
}

// QueueStats counts jobs by status
type QueueStats struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

// QueueController owns the job registry and runs at most one job at a time.
// Workers report back only through events, which a single loop applies to
// the registry before fanning them out to subscribers.
type QueueController struct {
	db      *models.Database
	runner  JobRunner
	sweeper OutputSweeper
	metrics *metrics.Metrics
	logger  *logrus.Logger

	events   chan models.Event
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu          sync.Mutex
	baseCtx     context.Context
	started     bool
	stopped     bool
	jobs        map[string]*models.DownloadJob
	order       []string
	running     string
	cancelRun   context.CancelFunc
	subscribers map[chan models.Event]struct{}
}

// NewQueueController creates a new queue controller
func NewQueueController(db *models.Database, runner JobRunner, sweeper OutputSweeper, m *metrics.Metrics, logger *logrus.Logger) *QueueController {
	return &QueueController{
		db:          db,
		runner:      runner,
		sweeper:     sweeper,
		metrics:     m,
		logger:      logger,
		events:      make(chan models.Event),
		done:        make(chan struct{}),
		jobs:        make(map[string]*models.DownloadJob),
		subscribers: make(map[chan models.Event]struct{}),
	}
}

// Start restores persisted jobs and begins processing. Jobs left in progress
// by a previous run are marked failed; pending ones are queued again in
// creation order.
func (c *QueueController) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("queue already started")
	}
	c.started = true
	c.baseCtx = ctx
	c.mu.Unlock()

	if err := c.restore(); err != nil {
		return err
	}

	c.wg.Add(1)
	go c.loop()

	c.logger.Info("Download queue started")
	c.pump()
	return nil
}

// Stop cancels the running job and waits for the worker and event loop to exit
func (c *QueueController) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		if c.cancelRun != nil {
			c.cancelRun()
		}
		c.mu.Unlock()

		close(c.done)
		c.wg.Wait()
		c.logger.Info("Download queue stopped")
	})
}

func (c *QueueController) restore() error {
	interrupted, err := c.db.GetJobsByStatus(models.JobStatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to load interrupted jobs: %w", err)
	}
	for _, job := range interrupted {
		now := time.Now()
		job.Status = models.JobStatusFailed
		job.Error = "interrupted"
		job.StatusText = "Interrupted"
		job.CompletedAt = &now
		if err := c.db.UpdateJob(job); err != nil {
			c.logger.WithError(err).WithField("job_id", job.ID).Error("Failed to mark interrupted job")
		}
		c.logger.WithFields(logrus.Fields{
			"job_id": job.ID,
			"title":  job.Title(),
		}).Warn("Job was interrupted by a restart")
	}

	jobs, err := c.db.GetAllJobs()
	if err != nil {
		return fmt.Errorf("failed to load jobs: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, job := range jobs {
		c.jobs[job.ID] = job
		c.order = append(c.order, job.ID)
	}

	c.updateDepthLocked()
	return nil
}

// Enqueue adds a pending job and starts it if nothing is running
func (c *QueueController) Enqueue(req EnqueueRequest) (*models.DownloadJob, error) {
	if req.URL == "" {
		return nil, errors.New("url is required")
	}
	if req.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}

	job := &models.DownloadJob{
		ID:         models.NewJobID(),
		URL:        req.URL,
		Kind:       req.Kind,
		Quality:    req.Quality,
		OutputDir:  req.OutputDir,
		Media:      req.Media,
		Status:     models.JobStatusPending,
		StatusText: "Queued",
	}
	if job.Kind == "" {
		job.Kind = models.OutputVideo
	}
	if job.Quality == "" {
		job.Quality = models.QualityBest
	}

	if err := c.db.CreateJob(job); err != nil {
		return nil, fmt.Errorf("failed to store job: %w", err)
	}

	c.mu.Lock()
	c.jobs[job.ID] = job
	c.order = append(c.order, job.ID)
	c.updateDepthLocked()
	snapshot := *job
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"url":     job.URL,
		"kind":    job.Kind,
		"quality": job.Quality,
	}).Info("Job queued")

	c.broadcast(models.Event{JobID: job.ID, Kind: models.EventStatus, Status: "Queued"})
	c.pump()

	return &snapshot, nil
}

// Cancel aborts a pending or running job
func (c *QueueController) Cancel(id string) error {
	c.mu.Lock()
	job, ok := c.jobs[id]
	if !ok {
		c.mu.Unlock()
		return models.ErrJobNotFound
	}

	switch job.Status {
	case models.JobStatusPending:
		now := time.Now()
		job.Status = models.JobStatusCancelled
		job.StatusText = "Cancelled"
		job.UpdatedAt = now
		job.CompletedAt = &now
		c.updateDepthLocked()
		snapshot := *job
		c.mu.Unlock()

		c.persist(&snapshot)
		c.metrics.JobFinished(string(models.JobStatusCancelled))
		c.broadcast(models.Event{JobID: id, Kind: models.EventFinished, Cancelled: true, Message: "Download cancelled"})
		return nil

	case models.JobStatusInProgress:
		cancel := c.cancelRun
		c.mu.Unlock()

		c.logger.WithField("job_id", id).Info("Cancelling running job")
		if cancel != nil {
			cancel()
		}
		return nil

	default:
		c.mu.Unlock()
		return models.ErrJobFinished
	}
}

// Get returns a copy of a job
func (c *QueueController) Get(id string) (*models.DownloadJob, error) {
	c.mu.Lock()
	job, ok := c.jobs[id]
	if ok {
		snapshot := *job
		c.mu.Unlock()
		return &snapshot, nil
	}
	c.mu.Unlock()

	// Not queued in this process, look in the stored history
	return c.db.GetJobByID(id)
}

// List returns copies of all jobs in queue order
func (c *QueueController) List() []models.DownloadJob {
	c.mu.Lock()
	defer c.mu.Unlock()

	jobs := make([]models.DownloadJob, 0, len(c.order))
	for _, id := range c.order {
		if job, ok := c.jobs[id]; ok {
			jobs = append(jobs, *job)
		}
	}
	return jobs
}

// Stats counts jobs by status
func (c *QueueController) Stats() QueueStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stats QueueStats
	for _, job := range c.jobs {
		stats.Total++
		switch job.Status {
		case models.JobStatusPending:
			stats.Pending++
		case models.JobStatusInProgress:
			stats.InProgress++
		case models.JobStatusCompleted:
			stats.Completed++
		case models.JobStatusFailed:
			stats.Failed++
		case models.JobStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// Clear removes every job that is not running, pending ones included, and
// returns how many were removed
func (c *QueueController) Clear() int {
	c.mu.Lock()
	var removed []string
	kept := c.order[:0]
	for _, id := range c.order {
		if id == c.running {
			kept = append(kept, id)
			continue
		}
		delete(c.jobs, id)
		removed = append(removed, id)
	}
	c.order = kept
	c.updateDepthLocked()
	c.mu.Unlock()

	for _, id := range removed {
		if err := c.db.DeleteJob(id); err != nil {
			c.logger.WithError(err).WithField("job_id", id).Warn("Failed to delete job")
		}
	}

	c.logger.WithField("removed", len(removed)).Info("Queue cleared")
	return len(removed)
}

// Prune forgets finished jobs last updated before cutoff
func (c *QueueController) Prune(cutoff time.Time) (int, error) {
	c.mu.Lock()
	kept := c.order[:0]
	for _, id := range c.order {
		job := c.jobs[id]
		if job.Status.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			delete(c.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
	c.mu.Unlock()

	deleted, err := c.db.DeleteFinishedJobsBefore(cutoff)
	if err != nil {
		return deleted, fmt.Errorf("failed to prune job history: %w", err)
	}
	return deleted, nil
}

// CancelStuck cancels the running job if it started more than timeout ago
// and reports whether it did
func (c *QueueController) CancelStuck(timeout time.Duration) bool {
	c.mu.Lock()
	job, ok := c.jobs[c.running]
	if !ok || job.StartedAt == nil || time.Since(*job.StartedAt) <= timeout {
		c.mu.Unlock()
		return false
	}
	cancel := c.cancelRun
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"title":   job.Title(),
		"timeout": timeout,
	}).Warn("Download timeout detected, cancelling")

	if cancel != nil {
		cancel()
	}
	return true
}

// Subscribe returns a stream of job events. Slow subscribers miss events
// rather than stall the queue. The returned function unsubscribes.
func (c *QueueController) Subscribe() (<-chan models.Event, func()) {
	ch := make(chan models.Event, subscriberBuffer)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, ch)
			close(ch)
			c.mu.Unlock()
		})
	}
}

// admitNext marks the oldest pending job in progress, but only when no job is
// in progress. It is the only place a job starts.
func (c *QueueController) admitNext() (*models.DownloadJob, context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.stopped || c.running != "" {
		return nil, nil, false
	}

	var next *models.DownloadJob
	for _, id := range c.order {
		if job := c.jobs[id]; job.Status == models.JobStatusPending {
			next = job
			break
		}
	}
	if next == nil {
		return nil, nil, false
	}

	now := time.Now()
	next.Status = models.JobStatusInProgress
	next.StatusText = "Starting"
	next.Progress = 0
	next.StartedAt = &now
	next.UpdatedAt = now

	ctx, cancel := context.WithCancel(c.baseCtx)
	c.running = next.ID
	c.cancelRun = cancel
	c.updateDepthLocked()
	c.wg.Add(1)

	snapshot := *next
	return &snapshot, ctx, true
}

func (c *QueueController) pump() {
	job, ctx, ok := c.admitNext()
	if !ok {
		return
	}

	c.persist(job)
	c.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"title":  job.Title(),
	}).Info("Starting download")
	c.broadcast(models.Event{JobID: job.ID, Kind: models.EventStatus, Status: "Starting"})

	go c.work(ctx, job)
}

func (c *QueueController) work(ctx context.Context, job *models.DownloadJob) {
	defer c.wg.Done()

	if c.sweeper != nil {
		if _, err := c.sweeper.SweepOutputDir(job.OutputDir); err != nil {
			c.logger.WithError(err).WithField("dir", job.OutputDir).Warn("Failed to sweep output directory")
		}
	}

	result, err := c.runner.Run(ctx, job, models.EventSinkFunc(c.send))

	ev := models.Event{JobID: job.ID, Kind: models.EventFinished}
	switch {
	case err == nil:
		ev.Success = true
		ev.Message = "Download completed"
		ev.OutputPath = result.OutputPath
		ev.Strategy = result.Strategy
		ev.Media = result.Media
	case IsCancelled(err):
		ev.Cancelled = true
		ev.Message = "Download cancelled"
	default:
		ev.Message = err.Error()
	}

	c.send(ev)
}

// send hands a worker event to the loop
func (c *QueueController) send(ev models.Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *QueueController) loop() {
	defer c.wg.Done()
	for {
		select {
		case ev := <-c.events:
			c.handle(ev)
		case <-c.done:
			return
		}
	}
}

func (c *QueueController) handle(ev models.Event) {
	c.mu.Lock()
	job, ok := c.jobs[ev.JobID]
	if !ok {
		c.mu.Unlock()
		return
	}

	now := time.Now()
	job.UpdatedAt = now
	persist, finished := false, false

	switch ev.Kind {
	case models.EventProgress:
		job.Progress = ev.Percent
		if ev.Status != "" {
			job.StatusText = ev.Status
		}
	case models.EventStatus:
		job.StatusText = ev.Status
		persist = true
	case models.EventMetadata:
		job.Media = ev.Media
		persist = true
	case models.EventFinished:
		switch {
		case ev.Success:
			job.Status = models.JobStatusCompleted
			job.Progress = 100
			job.OutputPath = ev.OutputPath
			job.Strategy = ev.Strategy
			if ev.Media != nil {
				job.Media = ev.Media
			}
		case ev.Cancelled:
			job.Status = models.JobStatusCancelled
		default:
			job.Status = models.JobStatusFailed
			job.Error = ev.Message
		}
		job.StatusText = ev.Message
		job.CompletedAt = &now

		if c.running == job.ID {
			c.running = ""
			if c.cancelRun != nil {
				c.cancelRun()
				c.cancelRun = nil
			}
		}
		persist, finished = true, true
	}

	snapshot := *job
	c.mu.Unlock()

	if persist {
		c.persist(&snapshot)
	}

	if finished {
		c.metrics.JobFinished(string(snapshot.Status))
		log := c.logger.WithFields(logrus.Fields{
			"job_id": snapshot.ID,
			"title":  snapshot.Title(),
			"status": snapshot.Status,
		})
		if snapshot.Status == models.JobStatusFailed {
			log.WithField("error", snapshot.Error).Error("Download failed")
		} else {
			log.Info("Download finished")
		}
	}

	c.broadcast(ev)

	if finished {
		c.pump()
	}
}

func (c *QueueController) broadcast(ev models.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (c *QueueController) persist(job *models.DownloadJob) {
	if err := c.db.UpdateJob(job); err != nil {
		c.logger.WithError(err).WithField("job_id", job.ID).Error("Failed to update job")
	}
}

func (c *QueueController) updateDepthLocked() {
	pending := 0
	for _, job := range c.jobs {
		if job.Status == models.JobStatusPending {
			pending++
		}
	}
	c.metrics.SetQueueDepth(pending)
}
