// Package cohortvalidator provides validation for clinical cohort and
// phenotype study definitions.
//
// A cohort definition holds phenotypes in five fixed slots: an entry
// criterion, inclusions, exclusions, characteristics, and outcomes. Each
// phenotype declares a class_name, and a class-definition document declares
// which parameters that class requires. The validator walks the cohort in
// slot order, checks every required parameter, and aggregates the findings
// into a single report.
//
// # Quick Start
//
//	import (
//	    cv "github.com/cohortkit/validator"
//	    "github.com/cohortkit/validator/engine"
//	    "github.com/cohortkit/validator/schema"
//	)
//
//	reg := schema.NewRegistry(schema.NewEmbeddedSource())
//	if err := reg.Load(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	v := engine.New(reg)
//	report := v.ValidateCohort(c)
//	for _, entry := range report.Entries {
//	    fmt.Println(entry.PhenotypeName, entry.Issues)
//	}
//	report.Release() // Return to pool for better performance
//
// # Mutation Contract
//
// Validation has a deliberate side effect: every required parameter found
// absent or empty is overwritten with the sentinel value "missing" on the
// phenotype itself. Editor surfaces rely on the sentinel to highlight
// incomplete fields, so callers must treat validated phenotypes as modified.
//
// # Architecture
//
//   - Small interfaces (1-2 methods each) for composability
//   - Chain of responsibility for class-definition sources
//   - Observer hub for change-driven revalidation
//   - Context-based cancellation on loading and batch work
package cohortvalidator
