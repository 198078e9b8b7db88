package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rubiojr/ontosearch/pkg/core"
	"github.com/rubiojr/ontosearch/pkg/gateway"
	"github.com/rubiojr/ontosearch/pkg/log"
	"github.com/rubiojr/ontosearch/pkg/metrics"
	"github.com/rubiojr/ontosearch/pkg/transport"
)

// Gateway is the part of *gateway.Gateway the service depends on.
type Gateway interface {
	SearchTerm(ctx context.Context, req gateway.SearchRequest) (*transport.Response, []core.OntologyTermHit)
	SearchAccession(ctx context.Context, accession, ontology string) (*transport.Response, []core.OntologyTermHit)
}

// SearchOptions are the caller controlled knobs of a search.
type SearchOptions struct {
	// Page is the zero-based result page.
	Page int

	// Size is the number of rows requested per query. Zero uses the
	// gateway default.
	Size int

	// ExactMatch skips the broad query. Identifier lookups always behave
	// as if it was set.
	ExactMatch bool
}

// Operation names used for metrics and logs.
const (
	OpSearch    = "search"
	OpFind      = "find"
	OpAccession = "accession"
)

// Service composes classification, strategy selection, querying, merging,
// exclusion and ranking. Its methods never return Go errors: every outcome
// is a core.SearchResult.
type Service struct {
	gateway Gateway
	metrics *metrics.Metrics
	log     *log.Logger
}

// NewService returns a service querying through gw. m may be nil.
func NewService(gw Gateway, m *metrics.Metrics) *Service {
	return &Service{
		gateway: gw,
		metrics: m,
		log:     log.ForService("search"),
	}
}

// Search resolves keyword under rule.
func (s *Service) Search(ctx context.Context, keyword string, rule core.ValidationRule, opts SearchOptions) core.SearchResult {
	start := time.Now()
	l := s.log.With("request", shortID())
	mode := ModeKeyword

	result := s.search(ctx, l, keyword, rule, opts, &mode)

	s.metrics.RecordSearch(OpSearch, string(mode), result.Success, len(result.Result), time.Since(start))
	l.Debugf("search %q rule=%s mode=%s success=%v hits=%d in %v",
		keyword, rule.Describe(), mode, result.Success, len(result.Result), time.Since(start))
	return result
}

func (s *Service) search(ctx context.Context, l *log.Logger, keyword string, rule core.ValidationRule, opts SearchOptions, mode *Mode) core.SearchResult {
	rule, err := rule.Normalize()
	if err != nil {
		return s.fail(l, err, opts.Page)
	}
	strategy, err := SelectStrategy(rule)
	if err != nil {
		return s.fail(l, err, opts.Page)
	}

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.fail(l, fmt.Errorf("%w: keyword is required", core.ErrConfiguration), opts.Page)
	}

	cls := Classify(keyword)
	*mode = cls.Mode

	req := gateway.SearchRequest{
		Keyword:     keyword,
		Ontologies:  strategy.Ontologies,
		Parents:     strategy.Parents,
		QueryFields: cls.QueryFields,
		Page:        opts.Page,
		Size:        opts.Size,
	}
	switch cls.Mode {
	case ModeCURIE:
		req.Ontologies = cls.Ontologies
		req.Parents = nil
	case ModeIRI:
		req.Parents = nil
	}
	exactOnly := opts.ExactMatch || cls.ForceExact

	l.Debugf("querying mode=%s exact_only=%v ontologies=%v parents=%d", cls.Mode, exactOnly, req.Ontologies, len(req.Parents))

	hits, err := s.runQueries(ctx, req, exactOnly)
	if err != nil {
		return s.fail(l, err, opts.Page)
	}

	hits = Exclude(hits, rule)
	return core.NewSearchResult(Rank(hits, keyword, rule.Ontologies), opts.Page)
}

// FindOntologyTerm runs an exact keyword lookup of term restricted to
// ontologies and ranked by their order.
func (s *Service) FindOntologyTerm(ctx context.Context, term string, ontologies []string) core.SearchResult {
	start := time.Now()
	l := s.log.With("request", shortID())

	result := s.find(ctx, l, term, ontologies)

	s.metrics.RecordSearch(OpFind, string(ModeKeyword), result.Success, len(result.Result), time.Since(start))
	l.Debugf("find %q ontologies=%v success=%v hits=%d in %v",
		term, ontologies, result.Success, len(result.Result), time.Since(start))
	return result
}

func (s *Service) find(ctx context.Context, l *log.Logger, term string, ontologies []string) core.SearchResult {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.fail(l, fmt.Errorf("%w: term is required", core.ErrConfiguration), 0)
	}

	filter := []string(core.ParseOntologies(strings.Join(ontologies, ",")))
	hits, err := s.runQueries(ctx, gateway.SearchRequest{Keyword: term, Ontologies: filter}, true)
	if err != nil {
		return s.fail(l, err, 0)
	}
	return core.NewSearchResult(Rank(hits, term, filter), 0)
}

// FindByAccession looks a term up by accession within ontology.
func (s *Service) FindByAccession(ctx context.Context, accession, ontology string) core.SearchResult {
	start := time.Now()
	l := s.log.With("request", shortID())

	var result core.SearchResult
	resp, hits := s.gateway.SearchAccession(ctx, strings.TrimSpace(accession), strings.TrimSpace(ontology))
	if err := checkResponse(resp); err != nil {
		result = s.fail(l, err, 0)
	} else {
		result = core.NewSearchResult(hits, 0)
	}

	s.metrics.RecordSearch(OpAccession, "accession", result.Success, len(result.Result), time.Since(start))
	l.Debugf("accession %q ontology=%q success=%v in %v", accession, ontology, result.Success, time.Since(start))
	return result
}

func (s *Service) fail(l *log.Logger, err error, page int) core.SearchResult {
	l.Debugf("search failed: %v", err)
	return core.FailedSearchResult(err.Error(), page)
}

func shortID() string {
	return uuid.NewString()[:8]
}

// ParseSearchOptions reads page, size and exact from query parameters.
// Missing values keep their zero defaults.
func ParseSearchOptions(values url.Values) (SearchOptions, error) {
	var opts SearchOptions

	if v := values.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 0 {
			return SearchOptions{}, fmt.Errorf("invalid page %q", v)
		}
		opts.Page = page
	}

	if v := values.Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 0 {
			return SearchOptions{}, fmt.Errorf("invalid size %q", v)
		}
		opts.Size = size
	}

	if v := values.Get("exact"); v != "" {
		exact, err := strconv.ParseBool(v)
		if err != nil {
			return SearchOptions{}, fmt.Errorf("invalid exact flag %q", v)
		}
		opts.ExactMatch = exact
	}

	return opts, nil
}
