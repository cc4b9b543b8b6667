package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled is returned when a job is aborted on request. It is not a failure.
var ErrCancelled = errors.New("download cancelled")

// ErrNoFormats is returned when the extractor reports no usable formats
var ErrNoFormats = errors.New("no formats reported")

// ExtractionError indicates the metadata collaborator could not resolve a URL
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract media information for %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StrategyError captures one failed acquisition strategy
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %q failed: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// ChainExhaustedError is returned when every fallback strategy failed
type ChainExhaustedError struct {
	Attempts []*StrategyError
}

func (e *ChainExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all download strategies exhausted"
	}
	names := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		names = append(names, a.Strategy)
	}
	return fmt.Sprintf("all download strategies exhausted (%d tried: %s)", len(e.Attempts), strings.Join(names, ", "))
}

// ProbeError indicates the audio codec of a file could not be determined
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("failed to probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// TranscodeError indicates the transcoder exited with a failure
type TranscodeError struct {
	Input  string
	Stderr string
	Err    error
}

func (e *TranscodeError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("transcode of %s failed: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("transcode of %s failed: %v: %s", e.Input, e.Err, msg)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// FinalizeError indicates a downloaded file could not be moved to its final
// name. The retrieval succeeded, so the fallback chain stops here.
type FinalizeError struct {
	Path string
	Err  error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("failed to finalize %s: %v", e.Path, e.Err)
}

func (e *FinalizeError) Unwrap() error { return e.Err }

// ErrJobNotFound is returned when no job has the requested ID
var ErrJobNotFound = errors.New("job not found")

// ErrJobFinished is returned when acting on a job that already reached a terminal status
var ErrJobFinished = errors.New("job already finished")
