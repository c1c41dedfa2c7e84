// Package job models the lifecycle of one transcription job as seen by the
// blockifier: provider status, lifecycle state machine and outcome.
package job

import (
	"errors"
	"fmt"
	"strings"

	"ai-speech-blockifier/internal/models"
)

// Status is the provider-reported job status.
type Status int

const (
	StatusQueued Status = iota + 1
	StatusProcessing
	StatusCompleted
	StatusFailed
)

// ErrUnknownStatus is returned for a provider status outside the known vocabulary.
var ErrUnknownStatus = errors.New("unknown job status")

// ParseStatus translates the provider's status vocabulary.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queued":
		return StatusQueued, nil
	case "processing":
		return StatusProcessing, nil
	case "completed":
		return StatusCompleted, nil
	case "error":
		return StatusFailed, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// String returns the provider vocabulary for s.
func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsTerminal returns true for completed and failed jobs.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// State is the tri-state result of a start or status check.
type State int

const (
	StateRunning State = iota
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Outcome is what the caller polls on. Document is set only when succeeded,
// Reason only when failed.
type Outcome struct {
	State    State
	JobID    string
	Status   Status
	Document *models.Document
	Reason   string
}

// Running returns an outcome for a job still queued or processing.
func Running(jobID string, status Status) Outcome {
	return Outcome{State: StateRunning, JobID: jobID, Status: status}
}

// Succeeded returns an outcome carrying the finished document.
func Succeeded(jobID string, doc *models.Document) Outcome {
	return Outcome{State: StateSucceeded, JobID: jobID, Status: StatusCompleted, Document: doc}
}

// Failed returns an outcome for a job the provider reported as failed.
func Failed(jobID, reason string) Outcome {
	return Outcome{State: StateFailed, JobID: jobID, Status: StatusFailed, Reason: reason}
}
