package search

import "github.com/rubiojr/ontosearch/pkg/core"

// Exclude drops the hits a child-term rule denylists, by accession first
// and then by label pattern. Other rules return hits unchanged. rule must be
// normalized so its label patterns are compiled.
func Exclude(hits []core.OntologyTermHit, rule core.ValidationRule) []core.OntologyTermHit {
	if rule.ValidationType != core.ChildOntologyTerm || !rule.AllowedParentOntologyTerms.HasExclusions() {
		return hits
	}

	accessions := make(map[string]struct{}, len(rule.AllowedParentOntologyTerms.ExcludeByAccession))
	for _, a := range rule.AllowedParentOntologyTerms.ExcludeByAccession {
		accessions[a] = struct{}{}
	}
	patterns := rule.AllowedParentOntologyTerms.LabelPatterns()

	kept := make([]core.OntologyTermHit, 0, len(hits))
next:
	for _, h := range hits {
		if _, ok := accessions[h.TermAccessionNumber]; ok {
			continue
		}
		for _, p := range patterns {
			if p.MatchString(h.Term) {
				continue next
			}
		}
		kept = append(kept, h)
	}
	return kept
}
