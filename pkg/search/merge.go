package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rubiojr/ontosearch/pkg/core"
	"github.com/rubiojr/ontosearch/pkg/gateway"
	"github.com/rubiojr/ontosearch/pkg/transport"
)

// BackendError carries the failed backend response of a search.
type BackendError struct {
	Response *transport.Response
}

func (e *BackendError) Error() string {
	if e.Response == nil || e.Response.ErrorMessage == "" {
		return core.ErrBackend.Error()
	}
	return e.Response.ErrorMessage
}

func (e *BackendError) Unwrap() error {
	return core.ErrBackend
}

func checkResponse(resp *transport.Response) error {
	if resp == nil || resp.Error {
		return &BackendError{Response: resp}
	}
	return nil
}

// MergeHits returns broad followed by the exact hits broad does not
// already contain.
func MergeHits(broad, exact []core.OntologyTermHit) []core.OntologyTermHit {
	out := make([]core.OntologyTermHit, 0, len(broad)+len(exact))
	seen := make(map[core.TermKey]struct{}, len(broad))
	for _, h := range broad {
		seen[h.Key()] = struct{}{}
		out = append(out, h)
	}
	for _, h := range exact {
		if _, ok := seen[h.Key()]; ok {
			continue
		}
		seen[h.Key()] = struct{}{}
		out = append(out, h)
	}
	return out
}

// runQueries issues the exact query and, unless exactOnly, the broad query
// alongside it. The first backend failure cancels the other query.
func (s *Service) runQueries(ctx context.Context, req gateway.SearchRequest, exactOnly bool) ([]core.OntologyTermHit, error) {
	g, gctx := errgroup.WithContext(ctx)

	var exact, broad []core.OntologyTermHit

	g.Go(func() error {
		r := req
		r.ExactMatch = true
		resp, hits := s.gateway.SearchTerm(gctx, r)
		if err := checkResponse(resp); err != nil {
			return err
		}
		exact = hits
		return nil
	})

	if !exactOnly {
		g.Go(func() error {
			r := req
			r.ExactMatch = false
			resp, hits := s.gateway.SearchTerm(gctx, r)
			if err := checkResponse(resp); err != nil {
				return err
			}
			broad = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if exactOnly {
		return MergeHits(nil, exact), nil
	}
	return MergeHits(broad, exact), nil
}
