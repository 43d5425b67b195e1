package model

import (
	"fmt"
	"math"
)

// SearchQuery describes one page of a city listing.
type SearchQuery struct {
	Prefix        string
	OnlyFavorites bool
	Page          int
	PageSize      int
}

// Validate reports ErrInvalidQuery for negative pages, non-positive page
// sizes and pages whose offset does not fit in an int.
func (q SearchQuery) Validate() error {
	if q.Page < 0 {
		return fmt.Errorf("%w: page must not be negative, got %d", ErrInvalidQuery, q.Page)
	}
	if q.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidQuery, q.PageSize)
	}
	if q.Page > math.MaxInt/q.PageSize {
		return fmt.Errorf("%w: page %d is out of range", ErrInvalidQuery, q.Page)
	}
	return nil
}

// Offset returns the number of matching records skipped before this page.
// It is only meaningful for a query that passed Validate.
func (q SearchQuery) Offset() int {
	return q.Page * q.PageSize
}

// SearchResult is an immutable snapshot of one page of matches.
type SearchResult struct {
	Items              []City `json:"items"`
	TotalMatchingCount int    `json:"total_matching_count"`
}

// EmptyResult is returned when nothing matches or the query is invalid.
func EmptyResult() SearchResult {
	return SearchResult{Items: []City{}}
}
