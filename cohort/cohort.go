// Package cohort defines the cohort and phenotype data model.
//
// Phenotypes are loosely typed records: beyond the common identity fields
// (id, name, type, class_name) each phenotype carries class-specific
// parameters whose names are only known to the class-definition document.
// The model therefore keeps phenotypes as maps with typed accessors rather
// than fixed structs.
package cohort

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Sentinel is the marker value written into a phenotype field to flag it as
// incomplete. Editor surfaces highlight fields carrying this value.
const Sentinel = "missing"

// Common phenotype field names.
const (
	FieldID        = "id"
	FieldName      = "name"
	FieldType      = "type"
	FieldClassName = "class_name"
)

// Phenotype is a single clinical criterion within a cohort. It behaves like
// a reference: copies share the underlying map, and mutations through any
// copy are visible to all holders.
type Phenotype map[string]any

// Get returns the value of a field and whether the field exists.
func (p Phenotype) Get(field string) (any, bool) {
	v, ok := p[field]
	return v, ok
}

// Set assigns a field value.
func (p Phenotype) Set(field string, value any) {
	p[field] = value
}

// Has reports whether the field exists, regardless of its value.
func (p Phenotype) Has(field string) bool {
	_, ok := p[field]
	return ok
}

// ID returns the phenotype id as a string, or "" if absent.
// Numeric ids (as produced by JSON decoding) are formatted.
func (p Phenotype) ID() string {
	return p.stringField(FieldID)
}

// Name returns the phenotype name, or "" if absent.
func (p Phenotype) Name() string {
	return p.stringField(FieldName)
}

// Type returns the phenotype type, or "" if absent.
func (p Phenotype) Type() string {
	return p.stringField(FieldType)
}

// ClassName returns the phenotype class_name, or "" if absent.
func (p Phenotype) ClassName() string {
	return p.stringField(FieldClassName)
}

func (p Phenotype) stringField(field string) string {
	v, ok := p[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; ids are integers in practice
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

// Missing reports whether a field value counts as missing: nil, the
// Sentinel string, or an empty sequence. Every other value is present,
// including falsy ones like false, 0, and "".
func Missing(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == Sentinel
	case []any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Len() == 0 {
		return true
	}
	return false
}

// Slot identifies one of the fixed structural slots of a cohort.
type Slot string

// Cohort slots, in validation order.
const (
	SlotEntryCriterion  Slot = "entry_criterion"
	SlotInclusions      Slot = "inclusions"
	SlotExclusions      Slot = "exclusions"
	SlotCharacteristics Slot = "characteristics"
	SlotOutcomes        Slot = "outcomes"
)

// Cohort is the aggregate study definition. The entry criterion may be
// absent (nil); the remaining slots are ordered sequences, possibly empty.
type Cohort struct {
	ID              string      `json:"id,omitempty"`
	Name            string      `json:"name,omitempty"`
	EntryCriterion  Phenotype   `json:"entry_criterion,omitempty"`
	Inclusions      []Phenotype `json:"inclusions,omitempty"`
	Exclusions      []Phenotype `json:"exclusions,omitempty"`
	Characteristics []Phenotype `json:"characteristics,omitempty"`
	Outcomes        []Phenotype `json:"outcomes,omitempty"`
}

// Walk visits every phenotype in deterministic slot order: the entry
// criterion first (if present), then inclusions, exclusions,
// characteristics, and outcomes, each in stored order. Walking stops early
// if fn returns false.
func (c *Cohort) Walk(fn func(slot Slot, p Phenotype) bool) {
	if c == nil {
		return
	}
	if c.EntryCriterion != nil {
		if !fn(SlotEntryCriterion, c.EntryCriterion) {
			return
		}
	}
	slots := []struct {
		slot Slot
		list []Phenotype
	}{
		{SlotInclusions, c.Inclusions},
		{SlotExclusions, c.Exclusions},
		{SlotCharacteristics, c.Characteristics},
		{SlotOutcomes, c.Outcomes},
	}
	for _, s := range slots {
		for _, p := range s.list {
			if p == nil {
				continue
			}
			if !fn(s.slot, p) {
				return
			}
		}
	}
}

// PhenotypeCount returns the total number of phenotypes across all slots.
func (c *Cohort) PhenotypeCount() int {
	n := 0
	c.Walk(func(Slot, Phenotype) bool {
		n++
		return true
	})
	return n
}

// Parse decodes a cohort from JSON.
func Parse(data []byte) (*Cohort, error) {
	var c Cohort
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse cohort: %w", err)
	}
	return &c, nil
}
