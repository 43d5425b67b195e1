package model

// CitySearchResponse is the response for a city listing page
type CitySearchResponse struct {
	Items              []City `json:"items"`
	TotalMatchingCount int    `json:"total_matching_count"`
	Page               int    `json:"page"`
	PageSize           int    `json:"page_size"`
	HasMore            bool   `json:"has_more"`
}

// FavoriteRequest is the body of PUT /api/v1/cities/{id}/favorite.
// Favorite is required.
type FavoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

// FavoriteResponse reports the favorite flag after a mutation
type FavoriteResponse struct {
	ID       int  `json:"id"`
	Favorite bool `json:"favorite"`
}

// IngestionResponse reports ingestion progress
type IngestionResponse struct {
	Progress    Progress `json:"progress"`
	Description string   `json:"description"`
	Fraction    float64  `json:"fraction"`
	Running     bool     `json:"running"`
}
