package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/rubiojr/ontosearch/pkg/core"
)

// stringList decodes a JSON string, an array of strings or null.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = stringList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	*l = many
	return nil
}

// termDoc is a single term document of the lookup backend.
type termDoc struct {
	IRI            string     `json:"iri"`
	Label          string     `json:"label"`
	OntologyPrefix string     `json:"ontology_prefix"`
	OntologyName   string     `json:"ontology_name"`
	OboID          string     `json:"obo_id"`
	ShortForm      string     `json:"short_form"`
	Description    stringList `json:"description"`
	Synonym        stringList `json:"synonym"`
	Links          struct {
		Ontology struct {
			Href string `json:"href"`
		} `json:"ontology"`
	} `json:"_links"`
}

type searchPayload struct {
	Response *struct {
		NumFound int       `json:"numFound"`
		Docs     []termDoc `json:"docs"`
	} `json:"response"`
}

var errMalformed = errors.New("malformed backend payload")

// parseSearch reads the response.docs list of a search answer.
func parseSearch(data json.RawMessage, origin, originURL string) ([]core.OntologyTermHit, error) {
	var payload searchPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if payload.Response == nil {
		return nil, fmt.Errorf("%w: missing response.docs", errMalformed)
	}

	hits := make([]core.OntologyTermHit, 0, len(payload.Response.Docs))
	for _, doc := range payload.Response.Docs {
		hits = append(hits, doc.hit(origin, originURL))
	}
	return hits, nil
}

// parseTerm reads a single term document returned by an accession lookup.
func parseTerm(data json.RawMessage, origin, originURL string) ([]core.OntologyTermHit, error) {
	var doc termDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if doc.IRI == "" && doc.Label == "" {
		return nil, fmt.Errorf("%w: term document has neither iri nor label", errMalformed)
	}
	return []core.OntologyTermHit{doc.hit(origin, originURL)}, nil
}

func (d termDoc) hit(origin, originURL string) core.OntologyTermHit {
	term := core.OntologyTerm{
		Term:                d.Label,
		TermAccessionNumber: d.IRI,
		TermSourceRef:       d.sourceRef(),
	}
	return core.NewOntologyTermHit(
		term,
		strings.Join(d.Description, " "),
		d.curie(),
		d.Synonym,
		origin,
		originURL,
	)
}

func (d termDoc) sourceRef() string {
	switch {
	case d.OntologyPrefix != "":
		return d.OntologyPrefix
	case d.OntologyName != "":
		return strings.ToUpper(d.OntologyName)
	case d.Links.Ontology.Href != "":
		return strings.ToUpper(path.Base(strings.TrimRight(d.Links.Ontology.Href, "/")))
	}
	return ""
}

func (d termDoc) curie() string {
	if d.OboID != "" {
		return d.OboID
	}
	if prefix, id, ok := strings.Cut(d.ShortForm, "_"); ok {
		return prefix + ":" + id
	}
	return d.ShortForm
}
