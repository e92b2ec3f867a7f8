package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDocument(t *testing.T) {
	data := []byte(`{
		"AgePhenotype": [
			{"param": "value_filter", "required": true},
			{"param": "anchor_phenotype", "required": false}
		],
		"SexPhenotype": [
			{"param": "allowed_values", "required": true}
		]
	}`)

	doc, err := ParseDocument(data)
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}

	want := Document{
		"AgePhenotype": {
			{Param: "value_filter", Required: true},
			{Param: "anchor_phenotype", Required: false},
		},
		"SexPhenotype": {
			{Param: "allowed_values", Required: true},
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("ParseDocument() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDocument_PreservesParamOrder(t *testing.T) {
	data := []byte(`{
		"X": [
			{"param": "c", "required": true},
			{"param": "a", "required": true},
			{"param": "b", "required": false}
		]
	}`)

	doc, err := ParseDocument(data)
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}

	got := make([]string, 0, 3)
	for _, p := range doc["X"] {
		got = append(got, p.Param)
	}
	want := []string{"c", "a", "b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parameter order mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDocument_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{broken`},
		{"class not array", `{"X": {"param": "a"}}`},
		{"param not object", `{"X": ["a"]}`},
		{"param without name", `{"X": [{"required": true}]}`},
		{"empty param name", `{"X": [{"param": ""}]}`},
		{"top level array", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDocument([]byte(tt.data)); err == nil {
				t.Errorf("ParseDocument(%s) error = nil; want error", tt.data)
			}
		})
	}
}

func TestDocument_RequiredParams(t *testing.T) {
	doc := Document{
		"X": {
			{Param: "a", Required: true},
			{Param: "b", Required: false},
			{Param: "c", Required: true},
		},
	}

	got := doc.RequiredParams("X")
	want := []string{"a", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RequiredParams(X) mismatch (-want +got):\n%s", diff)
	}

	if got := doc.RequiredParams("unknown"); got != nil {
		t.Errorf("RequiredParams(unknown) = %v; want nil", got)
	}
}

func TestDocument_Classes(t *testing.T) {
	doc := Document{
		"B": nil,
		"A": nil,
		"C": nil,
	}

	got := doc.Classes()
	want := []string{"A", "B", "C"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Classes() mismatch (-want +got):\n%s", diff)
	}
}
