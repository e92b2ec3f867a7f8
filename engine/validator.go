// Package engine implements the cohort validation engine.
//
// The engine checks every phenotype reachable through a cohort's fixed
// slots against the class definitions held by a schema.Registry and
// aggregates the findings into a single report. Validation is total and
// stateless per call: each pass discards prior results and rebuilds from
// the current cohort snapshot, with no incremental diffing.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	cv "github.com/cohortkit/validator"
	"github.com/cohortkit/validator/cohort"
	"github.com/cohortkit/validator/schema"
)

// Validator validates cohorts and phenotypes against a class-definition
// registry. A single Validator is safe for concurrent use as long as the
// cohorts passed to concurrent calls are distinct: validation mutates
// phenotypes in place.
type Validator struct {
	registry *schema.Registry
	options  *cv.Options
	metrics  *cv.Metrics
	logger   *zap.Logger
}

// New creates a Validator backed by the given registry.
func New(registry *schema.Registry, opts ...cv.Option) *Validator {
	options := cv.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Validator{
		registry: registry,
		options:  options,
		metrics:  cv.NewMetrics(),
		logger:   options.Logger,
	}
}

// ValidatePhenotype checks one phenotype against its class definition and
// returns the ordered issue list (possibly empty).
//
// This call mutates its input: every required parameter found absent or
// carrying a missing value is overwritten with cohort.Sentinel so editor
// surfaces can highlight the field. Callers needing a pristine phenotype
// must pass a copy.
func (v *Validator) ValidatePhenotype(p cohort.Phenotype) []string {
	if p == nil {
		return nil
	}

	if !v.registry.Loaded() {
		return []string{cv.IssueNotLoaded}
	}

	className := p.ClassName()
	params, ok := v.registry.Definition(className)
	if className == "" || !ok {
		return []string{cv.IssueInvalidClass}
	}

	var issues []string
	for _, spec := range params {
		if !spec.Required {
			continue
		}
		value, present := p.Get(spec.Param)
		switch {
		case !present:
			issues = append(issues, cv.AbsentParam(spec.Param))
			p.Set(spec.Param, cohort.Sentinel)
		case cohort.Missing(value):
			issues = append(issues, cv.EmptyParam(spec.Param))
			p.Set(spec.Param, cohort.Sentinel)
		}
	}
	return issues
}

// ValidateCohort walks the cohort in slot order (entry criterion,
// inclusions, exclusions, characteristics, outcomes) and validates every
// phenotype found. Each phenotype with at least one issue contributes one
// report entry; the report's IssueCount sums per-entry issue counts.
//
// The same mutation contract as ValidatePhenotype applies to every
// phenotype in the cohort. Call Release() on the report when done.
func (v *Validator) ValidateCohort(c *cohort.Cohort) *cv.Report {
	start := time.Now()

	report := cv.AcquireReport()
	phenotypes := 0

	c.Walk(func(_ cohort.Slot, p cohort.Phenotype) bool {
		phenotypes++
		issues := v.ValidatePhenotype(p)
		if len(issues) > 0 {
			report.Add(cv.Entry{
				ID:            v.entryID(p),
				Issues:        issues,
				PhenotypeName: p.Name(),
				Type:          p.Type(),
				Phenotype:     p,
			})
		}
		return v.options.MaxIssues == 0 || report.IssueCount < v.options.MaxIssues
	})

	if v.options.CollectMetrics {
		v.metrics.RecordValidation(time.Since(start), phenotypes, report.IssueCount)
	}
	if report.HasIssues() {
		v.logger.Debug("cohort validation found issues",
			zap.Int("phenotypes", phenotypes),
			zap.Int("issues", report.IssueCount))
	}
	return report
}

// entryID returns the phenotype's own id, or a generated one so report
// consumers can always key entries.
func (v *Validator) entryID(p cohort.Phenotype) string {
	if id := p.ID(); id != "" {
		return id
	}
	if !v.options.FreshEntryIDs {
		return ""
	}
	id := uuid.NewString()
	p.Set(cohort.FieldID, id)
	return id
}

// ValidateBatch validates multiple cohorts in parallel, bounded by the
// configured worker count. Results are positionally aligned with the
// input; cancelled slots are left nil. Cohorts must not be shared between
// slots of the batch.
func (v *Validator) ValidateBatch(ctx context.Context, cohorts []*cohort.Cohort) []*cv.Report {
	reports := make([]*cv.Report, len(cohorts))

	workers := v.options.WorkerCount
	if workers <= 0 {
		workers = 4
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range cohorts {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = v.ValidateCohort(c)
			return nil
		})
	}
	// The only error is context cancellation; partial results are still
	// meaningful to callers.
	_ = g.Wait()

	return reports
}

// Metrics returns the validator's metrics.
func (v *Validator) Metrics() *cv.Metrics {
	return v.metrics
}

// Registry returns the class-definition registry backing this validator.
func (v *Validator) Registry() *schema.Registry {
	return v.registry
}

// Options returns the validator's options.
func (v *Validator) Options() *cv.Options {
	return v.options
}
