package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/search", s.HandleSearch)
	mux.HandleFunc("GET /api/search", s.HandleSearchByField)
	mux.HandleFunc("GET /api/terms", s.HandleFindTerm)
	mux.HandleFunc("GET /api/accession", s.HandleAccession)
	mux.HandleFunc("GET /api/rules", s.HandleListRules)
	mux.HandleFunc("GET /api/typeahead", s.HandleTypeahead)
	mux.HandleFunc("GET /health", s.HandleHealth)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
}
