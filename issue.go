package cohortvalidator

// Validation issue messages. These strings are the stable contract between
// the validator and its consumers: editor surfaces match on them to decide
// how to present a finding.
const (
	// IssueNotLoaded is reported for every phenotype while the class
	// definitions have not been loaded.
	IssueNotLoaded = "Class definitions not loaded yet"

	// IssueInvalidClass is reported when a phenotype's class_name is absent
	// or unknown to the registry. No per-parameter checks run in that case.
	IssueInvalidClass = "Invalid or missing class_name"
)

// missingSuffix marks parameters that were absent from the phenotype, as
// opposed to present but empty.
const missingSuffix = " (missing)"

// AbsentParam formats the issue for a required parameter that is absent
// from the phenotype.
func AbsentParam(param string) string {
	return param + missingSuffix
}

// EmptyParam formats the issue for a required parameter that is present but
// carries a missing value (nil, the sentinel, or an empty sequence).
func EmptyParam(param string) string {
	return param
}
