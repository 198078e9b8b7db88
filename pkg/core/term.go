package core

import "strings"

// OntologyTerm is a reference to a single term of a controlled vocabulary.
type OntologyTerm struct {
	Term                string `json:"term"`
	TermAccessionNumber string `json:"term_accession_number"`
	TermSourceRef       string `json:"term_source_ref"`
}

// TermKey is the identity of a term: the ontology it comes from and its
// accession. Every de-duplication in the engine uses it.
type TermKey struct {
	SourceRef string
	Accession string
}

// Key returns the identity tuple of the term.
func (t OntologyTerm) Key() TermKey {
	return TermKey{SourceRef: t.TermSourceRef, Accession: t.TermAccessionNumber}
}

// OntologyTermHit is a candidate term returned by the lookup backend,
// enriched with provenance. Hits are built by the gateway and not modified
// afterwards.
type OntologyTermHit struct {
	OntologyTerm
	Description string   `json:"description"`
	Curie       string   `json:"curie"`
	Synonyms    []string `json:"synonym"`
	Origin      string   `json:"origin"`
	OriginURL   string   `json:"origin_url"`
}

// NewOntologyTermHit builds a hit, collapsing duplicate synonyms while
// keeping the order in which they first appear.
func NewOntologyTermHit(term OntologyTerm, description, curie string, synonyms []string, origin, originURL string) OntologyTermHit {
	return OntologyTermHit{
		OntologyTerm: term,
		Description:  description,
		Curie:        curie,
		Synonyms:     uniqueStrings(synonyms),
		Origin:       origin,
		OriginURL:    originURL,
	}
}

func uniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ContainsFold reports whether values holds s, ignoring case.
func ContainsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
