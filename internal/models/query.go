package models

import (
	"fmt"
	"strings"
)

// Default and maximum number of chunks a query may request.
const (
	DefaultLimit = 15
	MaxLimit     = 100
)

// SearchQuery is a search or ask request.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	// APIKey optionally selects the LLM answer path for ask requests.
	APIKey string `json:"api_key,omitempty"`
}

// Validate ensures the query is non-empty and clamps the limit.
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return nil
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query     string        `json:"query"`
	Results   []ScoredChunk `json:"results"`
	Total     int           `json:"total"`
	QueryTime int64         `json:"query_time_ms"`
}
