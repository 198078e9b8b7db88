package search

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rubiojr/ontosearch/pkg/core"
)

func unitParents() []core.OntologyTerm {
	return []core.OntologyTerm{
		{Term: "unit", TermAccessionNumber: "http://purl.obolibrary.org/obo/UO_0000000", TermSourceRef: "UO"},
		{Term: "measurement unit", TermAccessionNumber: "http://www.ebi.ac.uk/efo/EFO_0000001", TermSourceRef: "efo"},
		{Term: "unit of measure", TermAccessionNumber: "http://purl.obolibrary.org/obo/UO_0000001", TermSourceRef: "uo"},
	}
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		name           string
		rule           core.ValidationRule
		wantOntologies []string
		wantParents    []string
		wantErr        error
		wantMessage    string
	}{
		{
			name:           "any ontology term",
			rule:           core.ValidationRule{ValidationType: core.AnyOntologyTerm, Ontologies: core.OntologyList{"EFO"}},
			wantOntologies: []string{},
			wantParents:    []string{},
		},
		{
			name:           "selected ontology keeps order",
			rule:           core.ValidationRule{ValidationType: core.SelectedOntology, Ontologies: core.OntologyList{"NCBITAXON", "ENVO"}},
			wantOntologies: []string{"NCBITAXON", "ENVO"},
			wantParents:    []string{},
		},
		{
			name:        "selected ontology without ontologies",
			rule:        core.ValidationRule{FieldName: "Organism", ValidationType: core.SelectedOntology},
			wantErr:     core.ErrConfiguration,
			wantMessage: "ontologies are not defined",
		},
		{
			name: "child term unions parent ontologies",
			rule: core.ValidationRule{
				ValidationType: core.ChildOntologyTerm,
				Ontologies:     core.OntologyList{"NCIT", "EFO"},
				AllowedParentOntologyTerms: core.ParentOntologyTerms{
					Parents: unitParents(),
				},
			},
			wantOntologies: []string{"NCIT", "EFO", "UO"},
			wantParents: []string{
				"http://purl.obolibrary.org/obo/UO_0000000",
				"http://www.ebi.ac.uk/efo/EFO_0000001",
				"http://purl.obolibrary.org/obo/UO_0000001",
			},
		},
		{
			name:        "child term without parents",
			rule:        core.ValidationRule{FieldName: "Unit", ValidationType: core.ChildOntologyTerm, Ontologies: core.OntologyList{"UO"}},
			wantErr:     core.ErrConfiguration,
			wantMessage: "Parent ontology terms are not defined",
		},
		{
			name:        "selected ontology term",
			rule:        core.ValidationRule{ValidationType: core.SelectedOntologyTerm, Ontologies: core.OntologyList{"EFO"}},
			wantErr:     core.ErrUnsupportedOperation,
			wantMessage: "cannot be searched",
		},
		{
			name:        "missing validation type",
			rule:        core.ValidationRule{FieldName: "Organism"},
			wantErr:     core.ErrConfiguration,
			wantMessage: "validation type is not defined",
		},
		{
			name:    "unknown validation type",
			rule:    core.ValidationRule{ValidationType: core.ValidationType("fuzzy")},
			wantErr: core.ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := tt.rule.Normalize()
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			got, err := SelectStrategy(rule)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if !strings.Contains(err.Error(), tt.wantMessage) {
					t.Errorf("message %q does not mention %q", err.Error(), tt.wantMessage)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got.Ontologies, tt.wantOntologies) {
				t.Errorf("ontologies: got %v, want %v", got.Ontologies, tt.wantOntologies)
			}
			if !reflect.DeepEqual(got.Parents, tt.wantParents) {
				t.Errorf("parents: got %v, want %v", got.Parents, tt.wantParents)
			}
		})
	}
}

func TestSelectStrategyDoesNotAliasRule(t *testing.T) {
	rule := core.ValidationRule{ValidationType: core.SelectedOntology, Ontologies: core.OntologyList{"EFO", "NCIT"}}
	s, err := SelectStrategy(rule)
	if err != nil {
		t.Fatalf("SelectStrategy: %v", err)
	}
	s.Ontologies[0] = "CHANGED"
	if rule.Ontologies[0] != "EFO" {
		t.Fatalf("strategy shares storage with the rule")
	}
}
