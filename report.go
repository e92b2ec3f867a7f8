package cohortvalidator

import (
	"sync"

	"github.com/cohortkit/validator/cohort"
)

// Entry records the issues found on a single phenotype. Phenotype points at
// the source object inside the cohort, which the validator may have mutated
// (sentinel injection); it is not a copy.
type Entry struct {
	// ID identifies the phenotype. When the phenotype carries no id of its
	// own, a generated one is assigned so consumers can still key on it.
	ID string `json:"id"`

	// Issues is the ordered issue list for this phenotype, never empty.
	Issues []string `json:"issues"`

	// PhenotypeName is the phenotype's display name.
	PhenotypeName string `json:"phenotype_name"`

	// Type is the phenotype's declared type, if any.
	Type string `json:"type,omitempty"`

	// Phenotype references the source phenotype.
	Phenotype cohort.Phenotype `json:"-"`
}

// Report is the outcome of validating a whole cohort.
// Use Release() to return it to the pool when done for better performance.
type Report struct {
	// IssueCount is the sum of per-entry issue counts, not the number of
	// entries.
	IssueCount int `json:"issueCount"`

	// Entries holds one entry per phenotype with at least one issue, in
	// cohort slot order.
	Entries []Entry `json:"issues"`
}

// reportPool holds reusable Report instances.
var reportPool = sync.Pool{
	New: func() any {
		return &Report{
			Entries: make([]Entry, 0, 8),
		}
	},
}

// AcquireReport gets a Report from the pool.
// The report starts empty.
func AcquireReport() *Report {
	r := reportPool.Get().(*Report)
	r.Reset()
	return r
}

// Release returns the Report to the pool.
// After calling Release, the Report should not be used.
func (r *Report) Release() {
	if r == nil {
		return
	}
	// Don't return reports with oversized entry slices
	if cap(r.Entries) <= 256 {
		reportPool.Put(r)
	}
}

// Reset clears the report for reuse.
func (r *Report) Reset() {
	r.IssueCount = 0
	for i := range r.Entries {
		r.Entries[i] = Entry{}
	}
	r.Entries = r.Entries[:0]
}

// Add appends an entry and accumulates its issue count.
// Entries with no issues are ignored.
func (r *Report) Add(entry Entry) {
	if len(entry.Issues) == 0 {
		return
	}
	r.Entries = append(r.Entries, entry)
	r.IssueCount += len(entry.Issues)
}

// HasIssues returns true if any phenotype produced an issue.
func (r *Report) HasIssues() bool {
	return r.IssueCount > 0
}

// Len returns the number of entries (phenotypes with issues).
func (r *Report) Len() int {
	return len(r.Entries)
}

// EntryFor returns the entry for the given phenotype id, if present.
func (r *Report) EntryFor(id string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Clone creates a copy of the report (not pooled). Entry issue slices are
// copied; phenotype references are shared.
func (r *Report) Clone() *Report {
	clone := &Report{
		IssueCount: r.IssueCount,
		Entries:    make([]Entry, len(r.Entries)),
	}
	copy(clone.Entries, r.Entries)
	for i := range clone.Entries {
		issues := make([]string, len(clone.Entries[i].Issues))
		copy(issues, clone.Entries[i].Issues)
		clone.Entries[i].Issues = issues
	}
	return clone
}

// NewReport creates a new (non-pooled) report.
// Prefer AcquireReport() for better performance.
func NewReport() *Report {
	return &Report{
		Entries: make([]Entry, 0, 4),
	}
}
