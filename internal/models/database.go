package models

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Job operations

// CreateJob stores a new download job
func (db *Database) CreateJob(job *DownloadJob) error {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	return db.store.Insert(job.ID, job)
}

// UpdateJob updates an existing download job
func (db *Database) UpdateJob(job *DownloadJob) error {
	job.UpdatedAt = time.Now()
	return db.store.Update(job.ID, job)
}

// GetJobByID retrieves a download job by ID, returning ErrJobNotFound when
// no job has that ID
func (db *Database) GetJobByID(id string) (*DownloadJob, error) {
	var job DownloadJob
	err := db.store.Get(id, &job)
	if err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// GetJobsByStatus retrieves all jobs with a given status, oldest first
func (db *Database) GetJobsByStatus(status JobStatus) ([]*DownloadJob, error) {
	var jobs []*DownloadJob
	err := db.store.Find(&jobs, bolthold.Where("Status").Eq(status))
	if err != nil {
		return nil, err
	}
	sortByCreation(jobs)
	return jobs, nil
}

// GetAllJobs retrieves every stored job, oldest first
func (db *Database) GetAllJobs() ([]*DownloadJob, error) {
	var jobs []*DownloadJob
	err := db.store.Find(&jobs, nil)
	if err != nil {
		return nil, err
	}
	sortByCreation(jobs)
	return jobs, nil
}

// DeleteJob deletes a download job by ID
func (db *Database) DeleteJob(id string) error {
	return db.store.Delete(id, &DownloadJob{})
}

// DeleteFinishedJobsBefore removes terminal jobs last updated before cutoff
// and returns how many were removed
func (db *Database) DeleteFinishedJobsBefore(cutoff time.Time) (int, error) {
	var jobs []*DownloadJob
	err := db.store.Find(&jobs, bolthold.Where("UpdatedAt").Lt(cutoff))
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, job := range jobs {
		if !job.Status.IsTerminal() {
			continue
		}
		if err := db.store.Delete(job.ID, &DownloadJob{}); err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}

func sortByCreation(jobs []*DownloadJob) {
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
}
