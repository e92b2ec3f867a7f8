package cohortvalidator

// Version is the library version.
const Version = "0.1.0"

// SchemaVersion identifies the class-definition document format this
// library understands.
type SchemaVersion string

// Supported class-definition document versions.
const (
	// SchemaV1 is the flat {className: [{param, required}]} document shape.
	SchemaV1 SchemaVersion = "v1"
)

// String returns the version string.
func (v SchemaVersion) String() string {
	return string(v)
}

// IsValid returns true if this is a supported document version.
func (v SchemaVersion) IsValid() bool {
	return v == SchemaV1
}
