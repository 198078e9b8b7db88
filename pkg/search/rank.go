package search

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rubiojr/ontosearch/pkg/core"
)

// Position ranks returned by PositionRank, best first.
const (
	RankExact = iota
	RankSynonym
	RankPrefix
	RankInfix
	RankSuffix
	RankNone
)

// PositionRank scores how term relates to keyword. Comparison ignores
// case.
func PositionRank(term, keyword string, synonyms []string) int {
	lower := cases.Lower(language.Und)
	return positionRank(lower.String(term), lower.String(keyword), lowerAll(lower, synonyms))
}

// positionRank expects lower-cased arguments.
func positionRank(term, keyword string, synonyms []string) int {
	switch {
	case term == keyword:
		return RankExact
	case containsString(synonyms, keyword):
		return RankSynonym
	case strings.HasPrefix(term, keyword):
		return RankPrefix
	case containsInner(term, keyword):
		return RankInfix
	case strings.HasSuffix(term, keyword):
		return RankSuffix
	}
	return RankNone
}

// containsInner reports whether keyword occurs in term away from both ends.
func containsInner(term, keyword string) bool {
	if len(term) < len(keyword)+2 {
		return false
	}
	return strings.Contains(term[1:len(term)-1], keyword)
}

type rankKey struct {
	position  int
	term      string
	ontology  int
	sourceRef string
	accession string
}

func (a rankKey) less(b rankKey) bool {
	if a.position != b.position {
		return a.position < b.position
	}
	if a.term != b.term {
		return a.term < b.term
	}
	if a.ontology != b.ontology {
		return a.ontology < b.ontology
	}
	if a.sourceRef != b.sourceRef {
		return a.sourceRef < b.sourceRef
	}
	return a.accession < b.accession
}

// Rank returns a new slice with hits ordered by position rank, then label,
// then the index of their ontology in ontologies (unlisted ontologies go
// last), then ontology prefix and accession. The order does not depend on
// the order of the input.
func Rank(hits []core.OntologyTermHit, keyword string, ontologies []string) []core.OntologyTermHit {
	lower := cases.Lower(language.Und)
	upper := cases.Upper(language.Und)

	preference := make(map[string]int, len(ontologies))
	for i, o := range ontologies {
		key := upper.String(strings.TrimSpace(o))
		if _, ok := preference[key]; !ok {
			preference[key] = i
		}
	}

	kw := lower.String(strings.TrimSpace(keyword))

	type ranked struct {
		hit core.OntologyTermHit
		key rankKey
	}
	items := make([]ranked, len(hits))
	for i, h := range hits {
		term := lower.String(h.Term)
		ref := upper.String(h.TermSourceRef)
		ontology, ok := preference[ref]
		if !ok {
			ontology = len(ontologies)
		}
		items[i] = ranked{
			hit: h,
			key: rankKey{
				position:  positionRank(term, kw, lowerAll(lower, h.Synonyms)),
				term:      term,
				ontology:  ontology,
				sourceRef: ref,
				accession: h.TermAccessionNumber,
			},
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].key.less(items[j].key)
	})

	out := make([]core.OntologyTermHit, len(items))
	for i, it := range items {
		out[i] = it.hit
	}
	return out
}

func lowerAll(c cases.Caser, values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = c.String(v)
	}
	return out
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
