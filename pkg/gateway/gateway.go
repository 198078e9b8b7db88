// Package gateway queries an OLS-shaped term-lookup backend and turns its
// answers into typed hits. Responses are cached by content-addressed key.
//
// Every failure is returned as data: the raw *transport.Response carries
// Error and ErrorMessage, and the hit list is empty.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rubiojr/ontosearch/pkg/cache"
	"github.com/rubiojr/ontosearch/pkg/core"
	"github.com/rubiojr/ontosearch/pkg/log"
	"github.com/rubiojr/ontosearch/pkg/metrics"
	"github.com/rubiojr/ontosearch/pkg/transport"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultOrigin      = "OLS"
	DefaultSize        = 10
	DefaultQueryFields = "label,synonym"
	DefaultFieldList   = "iri,label,short_form,obo_id,ontology_name,ontology_prefix,description,synonym,type"
)

// StatusClientClosedRequest is returned to callers whose context was
// cancelled while waiting for the backend.
const StatusClientClosedRequest = 499

// Config describes the backend the gateway talks to.
type Config struct {
	Origin      string
	URL         string
	DefaultSize int
	Timeout     time.Duration
	// SuccessTTL applies to responses with at least one hit, EmptyTTL to
	// responses without hits. A zero TTL disables caching for that case.
	SuccessTTL time.Duration
	EmptyTTL   time.Duration
	Headers    map[string]string
}

// SearchRequest is a single term search.
type SearchRequest struct {
	Keyword string
	// Ontologies restricts hits to these ontology prefixes.
	Ontologies []string
	// Parents holds parent accessions; when set the backend is asked for
	// their descendants instead of filtering by ontology.
	Parents     []string
	ExactMatch  bool
	QueryFields []string
	FieldList   []string
	Page        int
	Size        int
}

// Gateway issues queries to the backend through the cache.
type Gateway struct {
	cfg     Config
	sender  transport.Sender
	store   cache.Store
	metrics *metrics.Metrics
	group   singleflight.Group
	log     *log.Logger
}

// New returns a gateway. A nil store disables caching; nil metrics record
// nothing.
func New(cfg Config, sender transport.Sender, store cache.Store, m *metrics.Metrics) *Gateway {
	if cfg.Origin == "" {
		cfg.Origin = DefaultOrigin
	}
	if cfg.DefaultSize <= 0 {
		cfg.DefaultSize = DefaultSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = transport.DefaultTimeout
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if store == nil {
		store = cache.Nop{}
	}
	return &Gateway{
		cfg:     cfg,
		sender:  sender,
		store:   store,
		metrics: m,
		log:     log.ForService("gateway"),
	}
}

// Config returns the effective configuration.
func (g *Gateway) Config() Config {
	return g.cfg
}

// SearchTerm runs one search against {url}/api/search.
func (g *Gateway) SearchTerm(ctx context.Context, req SearchRequest) (*transport.Response, []core.OntologyTermHit) {
	size := req.Size
	if size <= 0 {
		size = g.cfg.DefaultSize
	}

	params := map[string]string{
		"q":           req.Keyword,
		"fieldList":   joinOr(req.FieldList, DefaultFieldList),
		"queryFields": joinOr(req.QueryFields, DefaultQueryFields),
		"exact":       strconv.FormatBool(req.ExactMatch),
		"obsoletes":   "false",
		"rows":        strconv.Itoa(size),
		"format":      "json",
		"lang":        "en",
		"type":        "class,individual",
	}
	if req.Page > 0 {
		params["start"] = strconv.Itoa(req.Page * size)
	}
	if len(req.Parents) > 0 {
		params["childrenOf"] = strings.Join(req.Parents, ",")
	} else if len(req.Ontologies) > 0 {
		lowered := make([]string, len(req.Ontologies))
		for i, o := range req.Ontologies {
			lowered[i] = strings.ToLower(o)
		}
		params["ontology"] = strings.Join(lowered, ",")
	}

	resp, hits := g.query(ctx, "search", g.cfg.URL+"/api/search", params, parseSearch)
	if len(req.Ontologies) == 0 || len(hits) == 0 {
		return resp, hits
	}

	filtered := make([]core.OntologyTermHit, 0, len(hits))
	for _, h := range hits {
		if core.ContainsFold(req.Ontologies, h.TermSourceRef) {
			filtered = append(filtered, h)
		}
	}
	if dropped := len(hits) - len(filtered); dropped > 0 {
		g.log.Debugf("dropped %d hits outside ontologies %v", dropped, req.Ontologies)
	}
	return resp, filtered
}

// SearchAccession looks a single term up by accession within ontology.
func (g *Gateway) SearchAccession(ctx context.Context, accession, ontology string) (*transport.Response, []core.OntologyTermHit) {
	if strings.TrimSpace(accession) == "" || strings.TrimSpace(ontology) == "" {
		return transport.ErrorResponse(http.StatusBadRequest, "accession and ontology are required"), []core.OntologyTermHit{}
	}

	// the backend expects the accession IRI encoded twice
	encoded := url.QueryEscape(url.QueryEscape(accession))
	target := fmt.Sprintf("%s/api/ontologies/%s/terms/%s", g.cfg.URL, url.PathEscape(strings.ToLower(ontology)), encoded)

	return g.query(ctx, "term", target, map[string]string{}, parseTerm)
}

type parseFunc func(data json.RawMessage, origin, originURL string) ([]core.OntologyTermHit, error)

type queryResult struct {
	resp *transport.Response
	hits []core.OntologyTermHit
}

// query answers from the cache when possible, otherwise calls the backend
// and caches a successful answer. Identical concurrent misses share a
// single backend call.
func (g *Gateway) query(ctx context.Context, endpoint, target string, params map[string]string, parse parseFunc) (*transport.Response, []core.OntologyTermHit) {
	key := cache.Key(target, params, g.cfg.Headers)

	if resp, hits, ok := g.lookup(ctx, key, parse); ok {
		return resp, hits
	}

	if err := ctx.Err(); err != nil {
		return abandoned(err), []core.OntologyTermHit{}
	}

	// The shared call outlives any single caller; each caller only waits
	// for it as long as its own context allows.
	ch := g.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.Timeout)
		defer cancel()
		return g.fetch(fetchCtx, endpoint, key, target, params, parse), nil
	})

	select {
	case <-ctx.Done():
		g.log.Debugf("%s request %s abandoned: %v", endpoint, key[:12], ctx.Err())
		return abandoned(ctx.Err()), []core.OntologyTermHit{}
	case r := <-ch:
		res := r.Val.(queryResult)
		if r.Shared {
			g.log.Debugf("shared in-flight %s request %s", endpoint, key[:12])
		}
		resp := *res.resp
		return &resp, append([]core.OntologyTermHit{}, res.hits...)
	}
}

// abandoned reports a caller giving up on a query: 504 when its deadline
// passed, 499 when it was cancelled.
func abandoned(err error) *transport.Response {
	if errors.Is(err, context.DeadlineExceeded) {
		return transport.ErrorResponse(http.StatusGatewayTimeout, "request abandoned: %v", err)
	}
	return transport.ErrorResponse(StatusClientClosedRequest, "request abandoned: %v", err)
}

func (g *Gateway) lookup(ctx context.Context, key string, parse parseFunc) (*transport.Response, []core.OntologyTermHit, bool) {
	data, ok, err := g.store.Get(ctx, key)
	if err != nil {
		g.metrics.RecordCacheError()
		g.log.Warnf("cache read failed for %s: %v", key[:12], err)
		return nil, nil, false
	}
	if !ok {
		g.metrics.RecordCacheMiss()
		return nil, nil, false
	}

	var resp transport.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		g.metrics.RecordCacheError()
		g.log.Warnf("ignoring cached entry %s: %v", key[:12], fmt.Errorf("%w: %v", core.ErrCacheDeserialization, err))
		return nil, nil, false
	}
	hits, err := parse(resp.JSONData, g.cfg.Origin, g.cfg.URL)
	if err != nil {
		g.metrics.RecordCacheError()
		g.log.Warnf("ignoring cached entry %s: %v", key[:12], fmt.Errorf("%w: %v", core.ErrCacheDeserialization, err))
		return nil, nil, false
	}

	g.metrics.RecordCacheHit()
	g.log.Debugf("cache hit %s (%d hits)", key[:12], len(hits))
	return &resp, hits, true
}

func (g *Gateway) fetch(ctx context.Context, endpoint, key, target string, params map[string]string, parse parseFunc) queryResult {
	start := time.Now()
	resp := g.sender.SendRequest(ctx, transport.Request{
		Method:          http.MethodGet,
		URL:             target,
		Headers:         g.cfg.Headers,
		Params:          params,
		Timeout:         g.cfg.Timeout,
		FollowRedirects: true,
	})
	if resp == nil {
		resp = transport.ErrorResponse(http.StatusBadGateway, "no response from backend")
	}
	g.metrics.RecordBackend(endpoint, resp.StatusCode, time.Since(start))

	if !resp.OK() {
		if resp.ErrorMessage == "" {
			resp.Error = true
			resp.ErrorMessage = fmt.Sprintf("backend returned status %d", resp.StatusCode)
		}
		g.log.Warnf("%s request failed: %s", endpoint, resp.ErrorMessage)
		return queryResult{resp: resp, hits: []core.OntologyTermHit{}}
	}

	hits, err := parse(resp.JSONData, g.cfg.Origin, g.cfg.URL)
	if err != nil {
		g.log.Warnf("%s request returned an unusable payload: %v", endpoint, err)
		return queryResult{
			resp: &transport.Response{
				StatusCode:   resp.StatusCode,
				JSONData:     resp.JSONData,
				Headers:      resp.Headers,
				Error:        true,
				ErrorMessage: err.Error(),
			},
			hits: []core.OntologyTermHit{},
		}
	}

	g.save(ctx, key, resp, len(hits))
	return queryResult{resp: resp, hits: hits}
}

func (g *Gateway) save(ctx context.Context, key string, resp *transport.Response, found int) {
	ttl := g.cfg.SuccessTTL
	if found == 0 {
		ttl = g.cfg.EmptyTTL
	}
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		g.log.Warnf("encoding response for cache: %v", err)
		return
	}
	if err := g.store.Set(ctx, key, data, ttl); err != nil {
		g.metrics.RecordCacheError()
		g.log.Warnf("cache write failed for %s: %v", key[:12], err)
	}
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ",")
}
