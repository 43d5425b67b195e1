package service

import (
	"context"

	"github.com/alexivanou/citybrowser/internal/model"
)

// ServiceInterface defines the service interface for testing
type ServiceInterface interface {
	Search(ctx context.Context, query model.SearchQuery) (model.SearchResult, error)
	GetCityByID(ctx context.Context, id int) (*model.City, error)
	ToggleFavorite(ctx context.Context, id int) (bool, error)
	SetFavorite(ctx context.Context, id int, favorite bool) error
}
