// Package stream validates newline-delimited streams of cohort
// documents without holding the whole stream in memory.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	cv "github.com/cohortkit/validator"
	"github.com/cohortkit/validator/cohort"
)

// maxLineSize bounds a single cohort document on the stream (16 MiB).
const maxLineSize = 16 << 20

// CohortResult is the outcome for a single document on the stream.
type CohortResult struct {
	// Index is the zero-based position of the document in the stream.
	Index int

	// CohortID is the id of the cohort, when the document carried one.
	CohortID string

	// Report holds the validation outcome. The receiver owns it and
	// should Release it when done.
	Report *cv.Report

	// Err is set when the document could not be parsed. Report is nil
	// in that case.
	Err error
}

// Validator validates a single cohort. *engine.Validator satisfies the
// shape via ValidateCohort.
type Validator interface {
	ValidateCohort(c *cohort.Cohort) *cv.Report
}

// CohortStream reads newline-delimited JSON cohort documents and
// validates each one.
type CohortStream struct {
	validator  Validator
	bufferSize int
}

// New creates a stream validator.
func New(validator Validator) *CohortStream {
	return &CohortStream{
		validator:  validator,
		bufferSize: 16,
	}
}

// WithBufferSize sets the result channel buffer size.
func (s *CohortStream) WithBufferSize(n int) *CohortStream {
	if n > 0 {
		s.bufferSize = n
	}
	return s
}

// Validate reads documents from r and emits one CohortResult per
// non-blank line, in stream order. The channel is closed when the
// stream is exhausted, the context is cancelled, or a read error
// occurs; a read error is reported as a final CohortResult with
// Index -1.
func (s *CohortStream) Validate(ctx context.Context, r io.Reader) <-chan *CohortResult {
	results := make(chan *CohortResult, s.bufferSize)

	go func() {
		defer close(results)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)

		index := 0
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			result := s.validateLine(line, index)
			index++

			select {
			case results <- result:
			case <-ctx.Done():
				if result.Report != nil {
					result.Report.Release()
				}
				return
			}
		}

		if err := scanner.Err(); err != nil {
			select {
			case results <- &CohortResult{Index: -1, Err: fmt.Errorf("read stream: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return results
}

func (s *CohortStream) validateLine(line []byte, index int) *CohortResult {
	result := &CohortResult{Index: index}

	c, err := cohort.Parse(line)
	if err != nil {
		result.Err = fmt.Errorf("document %d: %w", index, err)
		return result
	}

	result.CohortID = c.ID
	result.Report = s.validator.ValidateCohort(c)
	return result
}

// Summary aggregates the results of a stream validation.
type Summary struct {
	// Cohorts is the number of documents validated.
	Cohorts int

	// CohortsWithIssues is how many of them had at least one issue.
	CohortsWithIssues int

	// TotalIssues is the issue count across all documents.
	TotalIssues int

	// ParseErrors are documents that could not be read or parsed.
	ParseErrors []error
}

// Aggregate drains a result channel into a Summary, releasing each
// report as it goes.
func Aggregate(results <-chan *CohortResult) *Summary {
	summary := &Summary{}

	for result := range results {
		if result.Err != nil {
			summary.ParseErrors = append(summary.ParseErrors, result.Err)
			continue
		}

		summary.Cohorts++
		if result.Report.HasIssues() {
			summary.CohortsWithIssues++
			summary.TotalIssues += result.Report.IssueCount
		}
		result.Report.Release()
	}

	return summary
}

// Clean reports whether every document parsed and validated cleanly.
func (s *Summary) Clean() bool {
	return s.CohortsWithIssues == 0 && len(s.ParseErrors) == 0
}

// String returns a one-line human readable summary.
func (s *Summary) String() string {
	return fmt.Sprintf("validated %d cohort(s): %d with issues, %d issue(s) total, %d parse error(s)",
		s.Cohorts, s.CohortsWithIssues, s.TotalIssues, len(s.ParseErrors))
}
