package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rubiojr/ontosearch/pkg/core"
	"github.com/rubiojr/ontosearch/pkg/search"
	"github.com/rubiojr/ontosearch/pkg/version"
)

const maxBodySize = 1 << 20

var errNoRule = errors.New("a rule or a field name is required")

// resolveRule picks the rule of a request: an inline rule wins over a named
// field lookup.
func (s *Server) resolveRule(raw json.RawMessage, field, ruleName string) (core.ValidationRule, error) {
	if len(raw) > 0 && string(raw) != "null" {
		rule, err := core.DecodeValidationRule(raw)
		if err != nil {
			return core.ValidationRule{}, fmt.Errorf("invalid rule: %w", err)
		}
		return rule, nil
	}
	if field == "" {
		return core.ValidationRule{}, errNoRule
	}
	rule, ok := s.Rules().Find(field, ruleName)
	if !ok {
		if ruleName != "" {
			return core.ValidationRule{}, fmt.Errorf("no rule %q configured for field %q", ruleName, field)
		}
		return core.ValidationRule{}, fmt.Errorf("no rule configured for field %q", field)
	}
	return rule, nil
}

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	var req SearchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if req.Page < 0 || req.Size < 0 {
		s.writeError(w, http.StatusBadRequest, "Invalid paging", "page and size must not be negative")
		return
	}

	rule, err := s.resolveRule(req.Rule, req.Field, req.RuleName)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid rule", err.Error())
		return
	}

	opts := search.SearchOptions{Page: req.Page, Size: req.Size, ExactMatch: req.ExactMatch}
	result := s.service.Search(r.Context(), req.Keyword, rule, opts)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) HandleSearchByField(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	opts, err := search.ParseSearchOptions(query)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}

	rule, err := s.resolveRule(nil, query.Get("field"), query.Get("rule_name"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid rule", err.Error())
		return
	}

	result := s.service.Search(r.Context(), query.Get("keyword"), rule, opts)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) HandleFindTerm(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	term := query.Get("term")
	if term == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid parameters", "term is required")
		return
	}

	ontologies := core.ParseOntologies(query.Get("ontologies"))
	result := s.service.FindOntologyTerm(r.Context(), term, ontologies)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) HandleAccession(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	accession := query.Get("accession")
	ontology := query.Get("ontology")
	if accession == "" || ontology == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid parameters", "accession and ontology are required")
		return
	}

	result := s.service.FindByAccession(r.Context(), accession, ontology)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) HandleListRules(w http.ResponseWriter, r *http.Request) {
	rules := s.Rules()
	if rules == nil {
		rules = core.Rules{}
	}

	response := ListRulesResponse{
		Rules: rules,
		Count: len(rules),
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, response)
}
