package models

// EventKind identifies the type of notification a worker sends back
type EventKind string

const (
	EventProgress EventKind = "progress" // Percent is set
	EventStatus   EventKind = "status"   // Status is set
	EventMetadata EventKind = "metadata" // Media is set
	EventFinished EventKind = "finished" // Success, Message and OutputPath are set
)

// Event is a one-way notification from a running job to the orchestrator
type Event struct {
	JobID      string     `json:"job_id"`
	Kind       EventKind  `json:"kind"`
	Percent    int        `json:"percent,omitempty"`
	Status     string     `json:"status,omitempty"`
	Media      *MediaItem `json:"media,omitempty"`
	Success    bool       `json:"success,omitempty"`
	Cancelled  bool       `json:"cancelled,omitempty"`
	Message    string     `json:"message,omitempty"`
	OutputPath string     `json:"output_path,omitempty"`
	Strategy   string     `json:"strategy,omitempty"`
}

// EventSink receives events emitted while a job runs
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to the EventSink interface
type EventSinkFunc func(Event)

// Emit calls f(e)
func (f EventSinkFunc) Emit(e Event) {
	f(e)
}

// DiscardEvents is a sink that drops everything
var DiscardEvents EventSink = EventSinkFunc(func(Event) {})
