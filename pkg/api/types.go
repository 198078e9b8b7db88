package api

import (
	"encoding/json"
	"time"

	"github.com/rubiojr/ontosearch/pkg/core"
)

// SearchRequest is the body of POST /api/search. Either Rule or Field (with
// an optional RuleName) selects the validation rule.
type SearchRequest struct {
	Keyword    string          `json:"keyword"`
	Rule       json.RawMessage `json:"rule,omitempty"`
	Field      string          `json:"field,omitempty"`
	RuleName   string          `json:"rule_name,omitempty"`
	Page       int             `json:"page"`
	Size       int             `json:"size"`
	ExactMatch bool            `json:"exact_match"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ListRulesResponse struct {
	Rules []core.ValidationRule `json:"rules"`
	Count int                   `json:"count"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// TypeaheadMessage is a query frame sent by typeahead clients.
type TypeaheadMessage struct {
	ID       string          `json:"id,omitempty"`
	Keyword  string          `json:"keyword"`
	Rule     json.RawMessage `json:"rule,omitempty"`
	Field    string          `json:"field,omitempty"`
	RuleName string          `json:"rule_name,omitempty"`
	Size     int             `json:"size,omitempty"`
}

// TypeaheadReply answers a query frame. Result is set on success, Error and
// Message when the frame could not be processed.
type TypeaheadReply struct {
	ID      string             `json:"id,omitempty"`
	Keyword string             `json:"keyword"`
	Result  *core.SearchResult `json:"result,omitempty"`
	Error   string             `json:"error,omitempty"`
	Message string             `json:"message,omitempty"`
}
