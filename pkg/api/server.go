package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rubiojr/ontosearch/pkg/core"
	"github.com/rubiojr/ontosearch/pkg/log"
	"github.com/rubiojr/ontosearch/pkg/search"
)

// Searcher is the search service the API exposes.
type Searcher interface {
	Search(ctx context.Context, keyword string, rule core.ValidationRule, opts search.SearchOptions) core.SearchResult
	FindOntologyTerm(ctx context.Context, term string, ontologies []string) core.SearchResult
	FindByAccession(ctx context.Context, accession, ontology string) core.SearchResult
}

type Server struct {
	service        Searcher
	metricsHandler http.Handler
	upgrader       websocket.Upgrader
	log            *log.Logger

	mu    sync.RWMutex
	rules core.Rules
}

func NewServer(service Searcher, rules core.Rules) *Server {
	return &Server{
		service: service,
		rules:   rules,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		log: log.ForService("api"),
	}
}

// SetRules replaces the named validation rules. Safe to call while serving.
func (s *Server) SetRules(rules core.Rules) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
}

// Rules returns the named validation rules currently served.
func (s *Server) Rules() core.Rules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// SetMetricsHandler exposes h on GET /metrics.
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.metricsHandler = h
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware echoes the caller's X-Request-ID or assigns a new one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// Handler returns the full API handler with its middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return RequestIDMiddleware(CorsMiddleware(mux))
}
