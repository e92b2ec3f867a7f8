// Package schema loads and caches phenotype class definitions.
//
// The registry holds the mapping from class name to parameter list that
// validation runs against. Loading is a one-shot operation per session:
// definitions are fetched once from a Source (HTTP, file, or the embedded
// defaults) and kept for the lifetime of the registry. A failed load is not
// fatal; the registry stays empty and validation reports every phenotype as
// unverifiable until a later Load succeeds.
package schema

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	cv "github.com/cohortkit/validator"
)

// Registry caches class definitions for the application session.
// All methods are safe for concurrent use; loading is single-writer,
// lookups are many-reader.
type Registry struct {
	source  Source
	logger  *zap.Logger
	metrics *cv.Metrics

	mu      sync.RWMutex
	doc     Document
	loaded  bool
	loading bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger for load diagnostics.
func WithRegistryLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistryMetrics records load attempts on the given metrics.
func WithRegistryMetrics(m *cv.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates a registry backed by the given source.
func NewRegistry(source Source, opts ...RegistryOption) *Registry {
	r := &Registry{
		source: source,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load fetches the class definitions. It is idempotent after success: a
// call while already loaded is a no-op. A fetch failure is logged and
// leaves the registry empty; the returned error lets callers decide, and
// downstream validation keeps working (reporting "not loaded"). Only an
// explicit re-invocation retries after a failure; validation itself never
// triggers a load.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	if r.loaded || r.loading {
		r.mu.Unlock()
		return nil
	}
	r.loading = true
	r.mu.Unlock()

	doc, err := r.source.FetchDefinitions(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false

	if r.metrics != nil {
		r.metrics.RecordLoad(err == nil)
	}

	if err != nil {
		r.logger.Warn("class definition load failed; validation will report phenotypes as unverifiable",
			zap.Error(err))
		return fmt.Errorf("loading class definitions: %w", err)
	}

	r.doc = doc
	r.loaded = true
	r.logger.Info("class definitions loaded", zap.Int("classes", len(doc)))
	return nil
}

// Loaded reports whether definitions are available.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Definition returns the parameter list for a class, in document order.
func (r *Registry) Definition(className string) ([]ParamSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return nil, false
	}
	params, ok := r.doc[className]
	return params, ok
}

// Classes returns all known class names, sorted. Empty until loaded.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return nil
	}
	return r.doc.Classes()
}

// Len returns the number of known classes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.doc)
}
