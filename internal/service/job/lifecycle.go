package job

import (
	"errors"
	"fmt"
	"sync"
)

// ErrIllegalTransition is returned when a provider status would move a job
// backwards or out of a terminal state.
var ErrIllegalTransition = errors.New("illegal job status transition")

// Lifecycle tracks one job between submission and a terminal status.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	SUBMITTED → QUEUED → PROCESSING → COMPLETED
//	    │         │          │
//	    └─────────┴──────────┴──→ ERROR
//
// Rules:
//   - QUEUED and PROCESSING may repeat (a poll that sees no change).
//   - PROCESSING never returns to QUEUED.
//   - COMPLETED and ERROR are terminal; only the same status may be observed again.
type Lifecycle struct {
	mu       sync.RWMutex
	jobID    string
	status   Status
	observed bool
}

// NewLifecycle creates a lifecycle in the submitted state.
func NewLifecycle(jobID string) *Lifecycle {
	return &Lifecycle{jobID: jobID}
}

// JobID returns the provider job id.
func (l *Lifecycle) JobID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.jobID
}

// Status returns the last observed status. ok is false before the first observation.
func (l *Lifecycle) Status() (s Status, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status, l.observed
}

// IsTerminal returns true once a terminal status was observed.
func (l *Lifecycle) IsTerminal() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.observed && l.status.IsTerminal()
}

// Observe records a status reported by the provider.
// Returns an error wrapping ErrIllegalTransition if the move is not allowed.
func (l *Lifecycle) Observe(next Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.observed {
		l.status = next
		l.observed = true
		return nil
	}

	switch l.status {
	case StatusQueued:
		// OK - anything may follow queued
	case StatusProcessing:
		if next == StatusQueued {
			return fmt.Errorf("%w: %s -> %s (job %s)", ErrIllegalTransition, l.status, next, l.jobID)
		}
	case StatusCompleted, StatusFailed:
		if next != l.status {
			return fmt.Errorf("%w: %s -> %s (job %s)", ErrIllegalTransition, l.status, next, l.jobID)
		}
	default:
		return fmt.Errorf("unexpected status: %v", l.status)
	}
	l.status = next
	return nil
}
