package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseValidationType(t *testing.T) {
	tests := []struct {
		in    string
		want  ValidationType
		valid bool
	}{
		{"any-ontology-term", AnyOntologyTerm, true},
		{"ANY_ONTOLOGY_TERM", AnyOntologyTerm, true},
		{" Selected-Ontology ", SelectedOntology, true},
		{"CHILD_ONTOLOGY_TERM", ChildOntologyTerm, true},
		{"selected_ontology_term", SelectedOntologyTerm, true},
		{"", ValidationType(""), false},
		{"made-up", ValidationType("made-up"), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseValidationType(tt.in)
			if got != tt.want || ok != tt.valid {
				t.Errorf("ParseValidationType(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.valid)
			}
		})
	}
}

func TestDecodeValidationRuleKebabCase(t *testing.T) {
	doc := `{
		"field-name": "Characteristics[Organism]",
		"rule-name": "organism",
		"validation-type": "CHILD_ONTOLOGY_TERM",
		"ontologies": "NCBITAXON, ENVO",
		"allowed-parent-ontology-terms": {
			"parents": [
				{"term": "organism", "term-accession-number": "http://purl.obolibrary.org/obo/OBI_0100026", "term-source-ref": "OBI"}
			],
			"exclude-by-accession": ["http://purl.obolibrary.org/obo/NCBITaxon_1"]
		}
	}`

	rule, err := DecodeValidationRule([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeValidationRule: %v", err)
	}

	if rule.FieldName != "Characteristics[Organism]" || rule.RuleName != "organism" {
		t.Errorf("unexpected names: %q %q", rule.FieldName, rule.RuleName)
	}
	if rule.ValidationType != ChildOntologyTerm {
		t.Errorf("validation type: got %q", rule.ValidationType)
	}
	if len(rule.Ontologies) != 2 || rule.Ontologies[0] != "NCBITAXON" || rule.Ontologies[1] != "ENVO" {
		t.Errorf("ontologies: got %v", rule.Ontologies)
	}
	parents := rule.AllowedParentOntologyTerms.Parents
	if len(parents) != 1 || parents[0].TermSourceRef != "OBI" || parents[0].TermAccessionNumber == "" {
		t.Errorf("parents: got %+v", parents)
	}
	if len(rule.AllowedParentOntologyTerms.ExcludeByAccession) != 1 {
		t.Errorf("exclude by accession: got %v", rule.AllowedParentOntologyTerms.ExcludeByAccession)
	}
}

func TestDecodeValidationRuleInvalid(t *testing.T) {
	_, err := DecodeValidationRule([]byte(`{"ontologies": 12}`))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNormalizeFillsCollections(t *testing.T) {
	rule, err := ValidationRule{ValidationType: AnyOntologyTerm}.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	p := rule.AllowedParentOntologyTerms
	if rule.Ontologies == nil || p.Parents == nil || p.ExcludeByAccession == nil || p.ExcludeByLabelPattern == nil {
		t.Fatalf("expected non-nil collections, got %+v", rule)
	}
	if p.HasExclusions() {
		t.Errorf("expected no exclusions")
	}
}

func TestNormalizeCompilesAnchoredPatterns(t *testing.T) {
	rule := ValidationRule{
		ValidationType: ChildOntologyTerm,
		AllowedParentOntologyTerms: ParentOntologyTerms{
			ExcludeByLabelPattern: []string{"obsolete", "unclassified .*"},
		},
	}

	normalized, err := rule.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	patterns := normalized.AllowedParentOntologyTerms.LabelPatterns()
	if len(patterns) != 2 {
		t.Fatalf("expected 2 compiled patterns, got %d", len(patterns))
	}
	if !patterns[0].MatchString("obsolete term") {
		t.Errorf("pattern should match at label start")
	}
	if patterns[0].MatchString("an obsolete term") {
		t.Errorf("pattern must not match in the middle of the label")
	}
	if rule.AllowedParentOntologyTerms.LabelPatterns() != nil {
		t.Errorf("Normalize must not modify the original rule")
	}
}

func TestNormalizeInvalidPattern(t *testing.T) {
	rule := ValidationRule{
		FieldName: "Unit",
		AllowedParentOntologyTerms: ParentOntologyTerms{
			ExcludeByLabelPattern: []string{"("},
		},
	}
	if _, err := rule.Normalize(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestOntologyListJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"array", `["EFO", "NCIT"]`, []string{"EFO", "NCIT"}},
		{"string", `"EFO,NCIT"`, []string{"EFO", "NCIT"}},
		{"null", `null`, nil},
		{"blank entries", `["", " UO "]`, []string{"UO"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l OntologyList
			if err := json.Unmarshal([]byte(tt.in), &l); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(l) != len(tt.want) {
				t.Fatalf("got %v, want %v", l, tt.want)
			}
			for i := range tt.want {
				if l[i] != tt.want[i] {
					t.Errorf("[%d]: got %q, want %q", i, l[i], tt.want[i])
				}
			}
		})
	}
}

func TestSearchResultJSONHasList(t *testing.T) {
	data, err := json.Marshal(SearchResult{Success: false, Message: "boom"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"success":false,"message":"boom","result":[],"page":0}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestNewOntologyTermHitDeduplicatesSynonyms(t *testing.T) {
	hit := NewOntologyTermHit(OntologyTerm{Term: "human"}, "", "", []string{"man", "Homo sapiens", "man"}, "OLS", "")
	if len(hit.Synonyms) != 2 || hit.Synonyms[0] != "man" || hit.Synonyms[1] != "Homo sapiens" {
		t.Errorf("unexpected synonyms: %v", hit.Synonyms)
	}
}
