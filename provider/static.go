// Package provider contains cohort sources for the hub: an in-memory
// provider for embedding and a file-backed provider that watches a
// cohort document on disk.
package provider

import (
	"sync"

	"github.com/cohortkit/validator/cohort"
)

// Static holds a cohort in memory and notifies subscribers whenever a
// new one is published. It is safe for concurrent use.
type Static struct {
	mu          sync.RWMutex
	cohort      *cohort.Cohort
	subscribers map[uint64]func()
	nextID      uint64
}

// NewStatic creates a provider seeded with the given cohort. A nil
// cohort is allowed; subscribers are notified once Publish is called.
func NewStatic(c *cohort.Cohort) *Static {
	return &Static{
		cohort:      c,
		subscribers: make(map[uint64]func()),
	}
}

// Cohort returns the current cohort.
func (s *Static) Cohort() *cohort.Cohort {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cohort
}

// Publish replaces the current cohort and notifies all subscribers
// synchronously.
func (s *Static) Publish(c *cohort.Cohort) {
	s.mu.Lock()
	s.cohort = c
	fns := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Subscribe registers fn to be called on every Publish. The returned
// function cancels the subscription.
func (s *Static) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}
