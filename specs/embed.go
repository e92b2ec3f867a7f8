// Package specs provides the embedded default class-definition document.
//
// The embedded document covers the built-in phenotype classes so the
// validator works offline, without fetching definitions from a backend.
// It also embeds the JSON Schema used to shape-check fetched documents.
//
// Usage:
//
//	data, err := specs.DefaultClassDefinitions()
//	if err != nil {
//	    return err
//	}
package specs

import (
	"embed"
	"fmt"
)

//go:embed classdefs/*.json
var classDefs embed.FS

// File names inside the embedded classdefs directory.
const (
	defaultFile = "classdefs/default.json"
	schemaFile  = "classdefs/classdefs.schema.json"
)

// DefaultClassDefinitions returns the embedded class-definition document.
func DefaultClassDefinitions() ([]byte, error) {
	data, err := classDefs.ReadFile(defaultFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded class definitions: %w", err)
	}
	return data, nil
}

// DocumentSchema returns the JSON Schema for class-definition documents.
func DocumentSchema() ([]byte, error) {
	data, err := classDefs.ReadFile(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded document schema: %w", err)
	}
	return data, nil
}

// DocumentSchemaID is the canonical id of the class-definition document
// schema. Compilers use it to register the embedded resource.
const DocumentSchemaID = "https://cohortkit.dev/schemas/classdefs-v1.json"
