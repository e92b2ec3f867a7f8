package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/cohortkit/validator/specs"
)

// ParamSpec describes a single parameter of a phenotype class.
type ParamSpec struct {
	Param    string `json:"param"`
	Required bool   `json:"required"`
}

// Document maps a phenotype class name to its ordered parameter list.
type Document map[string][]ParamSpec

// compiledDocSchema is the compiled JSON Schema for class-definition
// documents, built once at package init from the embedded resource.
var compiledDocSchema = mustCompileDocSchema()

func mustCompileDocSchema() *jsonschema.Schema {
	raw, err := specs.DocumentSchema()
	if err != nil {
		panic(fmt.Sprintf("schema: embedded document schema unreadable: %v", err))
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(specs.DocumentSchemaID, bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("schema: embedded document schema rejected: %v", err))
	}
	compiled, err := c.Compile(specs.DocumentSchemaID)
	if err != nil {
		panic(fmt.Sprintf("schema: embedded document schema does not compile: %v", err))
	}
	return compiled
}

// ParseDocument decodes and shape-checks a class-definition document.
// Documents that fail the shape check are rejected so a half-broken backend
// response cannot poison the registry.
func ParseDocument(data []byte) (Document, error) {
	var shape any
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("class definitions are not valid JSON: %w", err)
	}
	if err := compiledDocSchema.Validate(shape); err != nil {
		return nil, fmt.Errorf("class definitions failed shape check: %w", err)
	}

	// Field order inside each class matters: required-parameter checks run
	// in document order. json.Unmarshal into []ParamSpec preserves array
	// order, which is all the ordering the document carries.
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("class definitions did not decode: %w", err)
	}
	return doc, nil
}

// RequiredParams returns the required parameter names of a class, in
// document order.
func (d Document) RequiredParams(className string) []string {
	params, ok := d[className]
	if !ok {
		return nil
	}
	var required []string
	for _, p := range params {
		if p.Required {
			required = append(required, p.Param)
		}
	}
	return required
}

// Classes returns all class names, sorted.
func (d Document) Classes() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
