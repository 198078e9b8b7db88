package search

import (
	"net/url"
	"regexp"
	"strings"
)

// Mode is the lookup mode chosen for a keyword.
type Mode string

const (
	// ModeIRI looks a full term IRI up by its iri field.
	ModeIRI Mode = "iri"
	// ModeCURIE looks a PREFIX:ID compact identifier up by its obo_id field.
	ModeCURIE Mode = "curie"
	// ModeKeyword runs a label and synonym search driven by the rule.
	ModeKeyword Mode = "keyword"
)

var curiePattern = regexp.MustCompile(`^([A-Za-z0-9]+):[A-Za-z0-9_]+$`)

// Classification is the outcome of Classify.
type Classification struct {
	Mode Mode
	// ForceExact is set for identifier lookups, which never run a broad
	// query whatever the caller asked for.
	ForceExact  bool
	QueryFields []string
	// Ontologies is the ontology filter implied by the keyword itself. It
	// is only set in compact URI mode.
	Ontologies []string
}

// Classify decides how keyword is looked up.
func Classify(keyword string) Classification {
	keyword = strings.TrimSpace(keyword)

	if isIRI(keyword) {
		return Classification{
			Mode:        ModeIRI,
			ForceExact:  true,
			QueryFields: []string{"iri"},
		}
	}

	if m := curiePattern.FindStringSubmatch(keyword); m != nil {
		return Classification{
			Mode:        ModeCURIE,
			ForceExact:  true,
			QueryFields: []string{"obo_id"},
			Ontologies:  []string{m[1]},
		}
	}

	return Classification{Mode: ModeKeyword}
}

func isIRI(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}
