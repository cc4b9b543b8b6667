package models

import "strings"

// OutputKind represents what the user asked to keep from the media
type OutputKind string

const (
	OutputAudio OutputKind = "audio" // MP3 extraction
	OutputVideo OutputKind = "video" // video + AAC audio in an MP4 container
)

// ParseOutputKind maps frontend labels ("mp3", "mp4", "audio", "video") to an OutputKind
func ParseOutputKind(s string) OutputKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "audio", "mp3":
		return OutputAudio
	default:
		return OutputVideo
	}
}

// Quality represents the requested quality tier
type Quality string

const (
	QualityBest  Quality = "best"
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	Quality480p  Quality = "480p"
)

// ParseQuality normalizes a quality label. Unknown labels are kept as-is so
// that selectors can fall back to their "best" entry.
func ParseQuality(s string) Quality {
	q := strings.ToLower(strings.TrimSpace(s))
	if q == "" {
		return QualityBest
	}
	return Quality(q)
}

// JobStatus represents the lifecycle state of a download job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether the status is final
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}
