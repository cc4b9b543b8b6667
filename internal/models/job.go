package models

import (
	"time"

	"github.com/google/uuid"
)

// DownloadJob represents one queued download request
type DownloadJob struct {
	ID string `json:"id" boltholdKey:"ID"`

	// Request
	URL       string     `json:"url"`
	Kind      OutputKind `json:"kind"`
	Quality   Quality    `json:"quality"`
	OutputDir string     `json:"output_dir"`

	// Media resolved by the extractor (nil until metadata is known)
	Media *MediaItem `json:"media,omitempty"`

	// Tracking
	Status     JobStatus `json:"status" boltholdIndex:"Status"`
	Progress   int       `json:"progress"` // percent, 0-100
	StatusText string    `json:"status_text,omitempty"`
	Strategy   string    `json:"strategy,omitempty"` // name of the strategy that produced the output
	OutputPath string    `json:"output_path,omitempty"`
	Error      string    `json:"error,omitempty"`

	// Metadata
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJobID returns a fresh job identifier
func NewJobID() string {
	return uuid.New().String()
}

// Title returns the best human-readable label for the job
func (j *DownloadJob) Title() string {
	if j.Media != nil && j.Media.Title != "" {
		return j.Media.Title
	}
	return j.URL
}
