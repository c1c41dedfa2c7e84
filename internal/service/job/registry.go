package job

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Generator hands out local job ids for providers that do not assign one.
type Generator struct {
	counter uint64
}

func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns "<provider>-job-<n>" with a process-wide counter.
func (g *Generator) Next(provider string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-job-%d", provider, n)
}

// DefaultFinishedCapacity is how many terminal job ids a Registry remembers.
const DefaultFinishedCapacity = 4096

// Registry holds the lifecycles of jobs that have not reached a terminal status
// and remembers the most recent terminal ids.
type Registry struct {
	mu       sync.Mutex
	jobs     map[string]*Lifecycle
	finished map[string]struct{}
	order    []string
	next     int
}

func NewRegistry() *Registry {
	return NewRegistryWithCapacity(DefaultFinishedCapacity)
}

// NewRegistryWithCapacity remembers at most capacity terminal ids, evicting the oldest.
func NewRegistryWithCapacity(capacity int) *Registry {
	if capacity < 1 {
		capacity = 1
	}
	return &Registry{
		jobs:     make(map[string]*Lifecycle),
		finished: make(map[string]struct{}, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Track returns the lifecycle for jobID, creating it in the submitted state
// when this process has not seen the job before.
func (r *Registry) Track(jobID string) *Lifecycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	lc, ok := r.jobs[jobID]
	if !ok {
		lc = NewLifecycle(jobID)
		r.jobs[jobID] = lc
	}
	return lc
}

// Get returns the lifecycle for jobID if it is tracked.
func (r *Registry) Get(jobID string) (*Lifecycle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lc, ok := r.jobs[jobID]
	return lc, ok
}

// Finish drops jobID from the tracked jobs and records it as terminal.
func (r *Registry) Finish(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
	if _, ok := r.finished[jobID]; ok {
		return
	}
	if len(r.order) < cap(r.order) {
		r.order = append(r.order, jobID)
	} else {
		delete(r.finished, r.order[r.next])
		r.order[r.next] = jobID
		r.next = (r.next + 1) % len(r.order)
	}
	r.finished[jobID] = struct{}{}
}

// Finished reports whether jobID reached a terminal status and is still remembered.
func (r *Registry) Finished(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.finished[jobID]
	return ok
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
