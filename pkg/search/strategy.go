package search

import (
	"fmt"
	"strings"

	"github.com/rubiojr/ontosearch/pkg/core"
)

// Strategy holds the backend constraints derived from a validation rule.
type Strategy struct {
	// Ontologies is the ontology filter, empty for unrestricted searches.
	Ontologies []string
	// Parents holds the accessions whose descendants are searched.
	Parents []string
}

// SelectStrategy validates rule and builds its search constraints. The
// rule is expected to be normalized.
func SelectStrategy(rule core.ValidationRule) (Strategy, error) {
	switch rule.ValidationType {
	case "":
		return Strategy{}, fmt.Errorf("%w: validation type is not defined for field %q", core.ErrConfiguration, rule.FieldName)

	case core.AnyOntologyTerm:
		return Strategy{Ontologies: []string{}, Parents: []string{}}, nil

	case core.SelectedOntology:
		if len(rule.Ontologies) == 0 {
			return Strategy{}, fmt.Errorf("%w: ontologies are not defined for field %q", core.ErrConfiguration, rule.FieldName)
		}
		return Strategy{
			Ontologies: append([]string{}, rule.Ontologies...),
			Parents:    []string{},
		}, nil

	case core.ChildOntologyTerm:
		parents := rule.AllowedParentOntologyTerms.Parents
		if len(parents) == 0 {
			return Strategy{}, fmt.Errorf("%w: Parent ontology terms are not defined for field %q", core.ErrConfiguration, rule.FieldName)
		}

		ontologies := make([]string, 0, len(rule.Ontologies)+len(parents))
		seen := make(map[string]struct{})
		add := func(o string) {
			key := strings.ToUpper(strings.TrimSpace(o))
			if key == "" {
				return
			}
			if _, ok := seen[key]; ok {
				return
			}
			seen[key] = struct{}{}
			ontologies = append(ontologies, o)
		}
		for _, o := range rule.Ontologies {
			add(o)
		}

		accessions := make([]string, 0, len(parents))
		for _, p := range parents {
			add(p.TermSourceRef)
			if p.TermAccessionNumber != "" {
				accessions = append(accessions, p.TermAccessionNumber)
			}
		}
		if len(accessions) == 0 {
			return Strategy{}, fmt.Errorf("%w: Parent ontology terms are not defined for field %q: parents have no accession", core.ErrConfiguration, rule.FieldName)
		}

		return Strategy{Ontologies: ontologies, Parents: accessions}, nil

	case core.SelectedOntologyTerm:
		return Strategy{}, fmt.Errorf("%w: %s cannot be searched", core.ErrUnsupportedOperation, rule.ValidationType)

	default:
		return Strategy{}, fmt.Errorf("%w: unknown validation type %q", core.ErrConfiguration, rule.ValidationType)
	}
}
