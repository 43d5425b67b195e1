package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexivanou/citybrowser/internal/model"
	"github.com/alexivanou/citybrowser/internal/repository"
	"go.uber.org/zap"
)

// NormalizePrefix trims whitespace and lowercases a typed prefix.
func NormalizePrefix(prefix string) string {
	return strings.ToLower(strings.TrimSpace(prefix))
}

// Search returns one page of cities whose search key starts with the query
// prefix, sorted by (name, country_code).
//
// Invalid pagination arguments yield an empty result and no error so callers
// rendering a list never fail on them. Store failures are returned wrapped in
// model.ErrStoreFailure.
func (s *Service) Search(ctx context.Context, query model.SearchQuery) (model.SearchResult, error) {
	if err := query.Validate(); err != nil {
		s.logger.Debug("Rejected search query", zap.Error(err))
		return model.EmptyResult(), nil
	}

	filter := repository.Filter{
		Prefix:        NormalizePrefix(query.Prefix),
		FavoritesOnly: query.OnlyFavorites,
	}

	total, err := s.cityRepo.Count(ctx, filter)
	if err != nil {
		return model.EmptyResult(), fmt.Errorf("%w: failed to count cities: %v", model.ErrStoreFailure, err)
	}
	if total == 0 {
		return model.EmptyResult(), nil
	}

	cities, err := s.cityRepo.RangeScan(ctx, filter, query.Offset(), query.PageSize)
	if err != nil {
		return model.EmptyResult(), fmt.Errorf("%w: failed to scan cities: %v", model.ErrStoreFailure, err)
	}

	return model.SearchResult{Items: cities, TotalMatchingCount: total}, nil
}

// GetCityByID retrieves a single city, or nil when the id is unknown
func (s *Service) GetCityByID(ctx context.Context, id int) (*model.City, error) {
	city, err := s.cityRepo.GetCityByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get city: %v", model.ErrStoreFailure, err)
	}
	return city, nil
}

// ToggleFavorite flips the favorite flag and returns its new value
func (s *Service) ToggleFavorite(ctx context.Context, id int) (bool, error) {
	favorite, err := s.cityRepo.ToggleFavorite(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("%w: failed to toggle favorite: %v", model.ErrStoreFailure, err)
	}

	s.logger.Debug("Toggled favorite", zap.Int("city_id", id), zap.Bool("favorite", favorite))
	return favorite, nil
}

// SetFavorite sets the favorite flag explicitly
func (s *Service) SetFavorite(ctx context.Context, id int, favorite bool) error {
	if err := s.cityRepo.SetFavorite(ctx, id, favorite); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: failed to set favorite: %v", model.ErrStoreFailure, err)
	}
	return nil
}
