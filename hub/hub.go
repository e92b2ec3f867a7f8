// Package hub connects a cohort provider to the validation engine and
// fans validation reports out to subscribed listeners.
//
// A Hub revalidates synchronously whenever its provider publishes a new
// cohort snapshot, swaps in the fresh report, and then notifies every
// listener. Listeners registered after a report exists are invoked
// immediately with the current report so late subscribers never observe
// a stale empty state.
package hub

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	cv "github.com/cohortkit/validator"
	"github.com/cohortkit/validator/cohort"
	"github.com/cohortkit/validator/engine"
)

// Provider supplies cohort snapshots and signals when they change.
type Provider interface {
	// Cohort returns the current cohort snapshot. It may return nil
	// when no cohort is available yet.
	Cohort() *cohort.Cohort

	// Subscribe registers fn to be called whenever the cohort
	// changes. The returned function cancels the subscription.
	Subscribe(fn func()) func()
}

// Listener receives the report produced by each revalidation.
type Listener func(*cv.Report)

// Subscription identifies a registered listener.
type Subscription struct {
	hub *Hub
	id  uint64
}

// Remove unregisters the listener. Removing twice is a no-op.
func (s *Subscription) Remove() {
	if s == nil || s.hub == nil {
		return
	}
	s.hub.remove(s.id)
	s.hub = nil
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger used by the hub. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Hub validates cohorts published by a provider and notifies listeners.
type Hub struct {
	validator *engine.Validator
	provider  Provider
	logger    *zap.Logger

	unsubscribe func()

	mu        sync.RWMutex
	report    *cv.Report
	listeners map[uint64]Listener
	nextID    uint64
	closed    bool
}

// New creates a hub wired to the given validator and provider and
// performs an initial validation of the provider's current cohort.
func New(validator *engine.Validator, provider Provider, opts ...Option) *Hub {
	h := &Hub{
		validator: validator,
		provider:  provider,
		logger:    zap.NewNop(),
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.unsubscribe = provider.Subscribe(h.refresh)
	h.refresh()
	return h
}

// refresh revalidates the provider's current cohort, swaps in the new
// report, and notifies listeners. It runs synchronously on the
// provider's notification path.
func (h *Hub) refresh() {
	c := h.provider.Cohort()
	if c == nil {
		return
	}

	report := h.validator.ValidateCohort(c)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		report.Release()
		return
	}
	old := h.report
	h.report = report
	ids := make([]uint64, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	targets := make([]Listener, len(ids))
	for i, id := range ids {
		targets[i] = h.listeners[id]
	}
	h.mu.Unlock()

	if old != nil {
		old.Release()
	}

	h.logger.Debug("report published",
		zap.Int("issues", report.IssueCount),
		zap.Int("entries", report.Len()),
		zap.Int("listeners", len(targets)))

	for _, fn := range targets {
		fn(report)
	}
}

// AddListener registers fn to receive every future report. If a report
// already exists, fn is invoked with it immediately. The returned
// subscription removes the listener.
func (h *Hub) AddListener(fn Listener) *Subscription {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	current := h.report
	h.mu.Unlock()

	if current != nil {
		fn(current)
	}
	return &Subscription{hub: h, id: id}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	delete(h.listeners, id)
	h.mu.Unlock()
}

// Report returns the most recent validation report, or nil before the
// first successful refresh. The report remains owned by the hub; do
// not release it.
func (h *Hub) Report() *cv.Report {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.report
}

// Validator returns the underlying validation engine.
func (h *Hub) Validator() *engine.Validator {
	return h.validator
}

// Close detaches the hub from its provider and drops all listeners.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}

	h.mu.Lock()
	h.closed = true
	h.listeners = make(map[uint64]Listener)
	old := h.report
	h.report = nil
	h.mu.Unlock()

	if old != nil {
		old.Release()
	}
}
