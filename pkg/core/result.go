package core

import "encoding/json"

// SearchResult is the outcome of a search operation. Failures are reported
// through Success and Message; Result is empty in that case.
type SearchResult struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Result  []OntologyTermHit `json:"result"`
	Page    int               `json:"page"`
}

// NewSearchResult wraps a successful result list.
func NewSearchResult(hits []OntologyTermHit, page int) SearchResult {
	if hits == nil {
		hits = []OntologyTermHit{}
	}
	return SearchResult{Success: true, Result: hits, Page: page}
}

// FailedSearchResult builds an unsuccessful result carrying message.
func FailedSearchResult(message string, page int) SearchResult {
	return SearchResult{Success: false, Message: message, Result: []OntologyTermHit{}, Page: page}
}

// MarshalJSON always renders Result as a list.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	type plain SearchResult
	if r.Result == nil {
		r.Result = []OntologyTermHit{}
	}
	return json.Marshal(plain(r))
}
