package search

import "github.com/hyperjump/lumina/internal/models"

// ProcessQuery applies defaultLimit when the query sets none, then validates and clamps it.
func ProcessQuery(query *models.SearchQuery, defaultLimit int) error {
	if query.Limit <= 0 && defaultLimit > 0 {
		query.Limit = defaultLimit
	}
	return query.Validate()
}
