package cohortvalidator

import (
	"sync/atomic"
	"time"
)

// Metrics tracks validation activity using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	// Validation counts
	cohortsTotal atomic.Uint64
	cohortsClean atomic.Uint64

	// Phenotype-level counts
	phenotypesChecked atomic.Uint64
	issuesFound       atomic.Uint64

	// Timing (stored as nanoseconds)
	validationTimeTotal atomic.Uint64
	validationTimeMin   atomic.Uint64
	validationTimeMax   atomic.Uint64

	// Schema loading
	loadsTotal  atomic.Uint64
	loadsFailed atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	// Initialize min to max uint64 so first value becomes the minimum
	m.validationTimeMin.Store(^uint64(0))
	return m
}

// RecordValidation records a completed cohort validation.
func (m *Metrics) RecordValidation(duration time.Duration, phenotypes, issues int) {
	m.cohortsTotal.Add(1)
	if issues == 0 {
		m.cohortsClean.Add(1)
	}
	m.phenotypesChecked.Add(uint64(phenotypes))
	m.issuesFound.Add(uint64(issues))

	ns := uint64(duration.Nanoseconds())
	m.validationTimeTotal.Add(ns)

	// Update min (CAS loop)
	for {
		old := m.validationTimeMin.Load()
		if ns >= old {
			break
		}
		if m.validationTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}

	// Update max (CAS loop)
	for {
		old := m.validationTimeMax.Load()
		if ns <= old {
			break
		}
		if m.validationTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordLoad records a class-definition load attempt.
func (m *Metrics) RecordLoad(ok bool) {
	m.loadsTotal.Add(1)
	if !ok {
		m.loadsFailed.Add(1)
	}
}

// CohortsTotal returns the total number of cohort validations performed.
func (m *Metrics) CohortsTotal() uint64 {
	return m.cohortsTotal.Load()
}

// CohortsClean returns the number of validations that found no issues.
func (m *Metrics) CohortsClean() uint64 {
	return m.cohortsClean.Load()
}

// CleanRate returns the fraction of issue-free validations (0.0 to 1.0).
func (m *Metrics) CleanRate() float64 {
	total := m.cohortsTotal.Load()
	if total == 0 {
		return 0
	}
	return float64(m.cohortsClean.Load()) / float64(total)
}

// PhenotypesChecked returns the total phenotypes validated.
func (m *Metrics) PhenotypesChecked() uint64 {
	return m.phenotypesChecked.Load()
}

// IssuesFound returns the total issues reported across all validations.
func (m *Metrics) IssuesFound() uint64 {
	return m.issuesFound.Load()
}

// LoadsTotal returns the number of class-definition load attempts.
func (m *Metrics) LoadsTotal() uint64 {
	return m.loadsTotal.Load()
}

// LoadsFailed returns the number of failed load attempts.
func (m *Metrics) LoadsFailed() uint64 {
	return m.loadsFailed.Load()
}

// AverageValidationTime returns the average validation duration.
func (m *Metrics) AverageValidationTime() time.Duration {
	total := m.cohortsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.validationTimeTotal.Load() / total)
}

// MinValidationTime returns the minimum validation duration.
func (m *Metrics) MinValidationTime() time.Duration {
	minVal := m.validationTimeMin.Load()
	if minVal == ^uint64(0) {
		return 0
	}
	return time.Duration(minVal)
}

// MaxValidationTime returns the maximum validation duration.
func (m *Metrics) MaxValidationTime() time.Duration {
	return time.Duration(m.validationTimeMax.Load())
}

// Snapshot represents a point-in-time snapshot of all metrics.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	CohortsTotal      uint64  `json:"cohorts_total"`
	CohortsClean      uint64  `json:"cohorts_clean"`
	CleanRate         float64 `json:"clean_rate"`
	PhenotypesChecked uint64  `json:"phenotypes_checked"`
	IssuesFound       uint64  `json:"issues_found"`

	AvgValidationTimeNs uint64 `json:"avg_validation_time_ns"`
	MinValidationTimeNs uint64 `json:"min_validation_time_ns"`
	MaxValidationTimeNs uint64 `json:"max_validation_time_ns"`

	LoadsTotal  uint64 `json:"loads_total"`
	LoadsFailed uint64 `json:"loads_failed"`
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	total := m.cohortsTotal.Load()

	var avgNs uint64
	if total > 0 {
		avgNs = m.validationTimeTotal.Load() / total
	}

	minTime := m.validationTimeMin.Load()
	if minTime == ^uint64(0) {
		minTime = 0
	}

	return Snapshot{
		Timestamp:           time.Now(),
		CohortsTotal:        total,
		CohortsClean:        m.cohortsClean.Load(),
		CleanRate:           m.CleanRate(),
		PhenotypesChecked:   m.phenotypesChecked.Load(),
		IssuesFound:         m.issuesFound.Load(),
		AvgValidationTimeNs: avgNs,
		MinValidationTimeNs: minTime,
		MaxValidationTimeNs: m.validationTimeMax.Load(),
		LoadsTotal:          m.loadsTotal.Load(),
		LoadsFailed:         m.loadsFailed.Load(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.cohortsTotal.Store(0)
	m.cohortsClean.Store(0)
	m.phenotypesChecked.Store(0)
	m.issuesFound.Store(0)
	m.validationTimeTotal.Store(0)
	m.validationTimeMin.Store(^uint64(0))
	m.validationTimeMax.Store(0)
	m.loadsTotal.Store(0)
	m.loadsFailed.Store(0)
}
