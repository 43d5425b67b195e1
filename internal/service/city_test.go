package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/alexivanou/citybrowser/internal/model"
	"github.com/alexivanou/citybrowser/internal/repository"
	"github.com/alexivanou/citybrowser/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockCityRepository implements repository.CityRepository interface
type MockCityRepository struct {
	mock.Mock
}

func (m *MockCityRepository) RangeScan(ctx context.Context, filter repository.Filter, offset, limit int) ([]model.City, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.City), args.Error(1)
}

func (m *MockCityRepository) Count(ctx context.Context, filter repository.Filter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockCityRepository) UpsertMany(ctx context.Context, cities []model.City) error {
	args := m.Called(ctx, cities)
	return args.Error(0)
}

func (m *MockCityRepository) SetFavorite(ctx context.Context, id int, favorite bool) error {
	args := m.Called(ctx, id, favorite)
	return args.Error(0)
}

func (m *MockCityRepository) ToggleFavorite(ctx context.Context, id int) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCityRepository) GetCityByID(ctx context.Context, id int) (*model.City, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.City), args.Error(1)
}

func (m *MockCityRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCityRepository) TotalCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestService_Search_Mocked(t *testing.T) {
	tests := []struct {
		name          string
		query         model.SearchQuery
		setupMocks    func(*MockCityRepository)
		expectedError error
		expectedCount int
		expectedTotal int
	}{
		{
			name:  "prefix is trimmed and lowercased",
			query: model.SearchQuery{Prefix: "  DUB ", Page: 1, PageSize: 10},
			setupMocks: func(repo *MockCityRepository) {
				filter := repository.Filter{Prefix: "dub"}
				repo.On("Count", mock.Anything, filter).Return(12, nil)
				repo.On("RangeScan", mock.Anything, filter, 10, 10).Return([]model.City{
					model.NewCity(1, "Dublin", "IE", 53.3498, -6.2603),
					model.NewCity(2, "Dubai", "AE", 25.2048, 55.2708),
				}, nil)
			},
			expectedCount: 2,
			expectedTotal: 12,
		},
		{
			name:  "favorites only without prefix",
			query: model.SearchQuery{OnlyFavorites: true, PageSize: 5},
			setupMocks: func(repo *MockCityRepository) {
				filter := repository.Filter{FavoritesOnly: true}
				repo.On("Count", mock.Anything, filter).Return(1, nil)
				repo.On("RangeScan", mock.Anything, filter, 0, 5).Return([]model.City{
					model.NewCity(1, "Dublin", "IE", 53.3498, -6.2603),
				}, nil)
			},
			expectedCount: 1,
			expectedTotal: 1,
		},
		{
			name:  "zero count skips the scan",
			query: model.SearchQuery{Prefix: "zzz", PageSize: 5},
			setupMocks: func(repo *MockCityRepository) {
				repo.On("Count", mock.Anything, repository.Filter{Prefix: "zzz"}).Return(0, nil)
			},
		},
		{
			name:  "negative page is soft-failed",
			query: model.SearchQuery{Prefix: "a", Page: -1, PageSize: 5},
		},
		{
			name:  "zero page size is soft-failed",
			query: model.SearchQuery{Prefix: "a", PageSize: 0},
		},
		{
			name:  "count failure",
			query: model.SearchQuery{Prefix: "a", PageSize: 5},
			setupMocks: func(repo *MockCityRepository) {
				repo.On("Count", mock.Anything, repository.Filter{Prefix: "a"}).Return(0, errors.New("disk I/O error"))
			},
			expectedError: model.ErrStoreFailure,
		},
		{
			name:  "scan failure",
			query: model.SearchQuery{Prefix: "a", PageSize: 5},
			setupMocks: func(repo *MockCityRepository) {
				repo.On("Count", mock.Anything, repository.Filter{Prefix: "a"}).Return(3, nil)
				repo.On("RangeScan", mock.Anything, repository.Filter{Prefix: "a"}, 0, 5).Return(nil, errors.New("disk I/O error"))
			},
			expectedError: model.ErrStoreFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockCityRepository)
			if tt.setupMocks != nil {
				tt.setupMocks(mockRepo)
			}

			svc := NewService(mockRepo, zaptest.NewLogger(t))
			result, err := svc.Search(context.Background(), tt.query)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.NotNil(t, result.Items)
			assert.Len(t, result.Items, tt.expectedCount)
			assert.Equal(t, tt.expectedTotal, result.TotalMatchingCount)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_ToggleFavorite_Mocked(t *testing.T) {
	mockRepo := new(MockCityRepository)
	mockRepo.On("ToggleFavorite", mock.Anything, 7).Return(true, nil)
	mockRepo.On("ToggleFavorite", mock.Anything, 8).Return(false, repository.ErrNotFound)
	mockRepo.On("ToggleFavorite", mock.Anything, 9).Return(false, errors.New("locked"))

	svc := NewService(mockRepo, zaptest.NewLogger(t))
	ctx := context.Background()

	favorite, err := svc.ToggleFavorite(ctx, 7)
	require.NoError(t, err)
	assert.True(t, favorite)

	_, err = svc.ToggleFavorite(ctx, 8)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.ToggleFavorite(ctx, 9)
	assert.ErrorIs(t, err, model.ErrStoreFailure)
}

func setupStoreService(t *testing.T, cities []model.City) (*Service, repository.CityRepository) {
	db, cfg := testutil.NewMemoryDB(t)
	repo := repository.NewCityRepository(db, cfg.Type)
	require.NoError(t, repo.UpsertMany(context.Background(), cities))
	return NewService(repo, zaptest.NewLogger(t)), repo
}

func TestService_Search_Scenarios(t *testing.T) {
	svc, _ := setupStoreService(t, testutil.SampleCities())
	ctx := context.Background()

	t.Run("prefix a", func(t *testing.T) {
		result, err := svc.Search(ctx, model.SearchQuery{Prefix: "a", PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"Alabama", "Albuquerque", "Anaheim", "Arizona"}, testutil.Names(result.Items))
		assert.Equal(t, 4, result.TotalMatchingCount)
	})

	t.Run("prefix new is case insensitive", func(t *testing.T) {
		result, err := svc.Search(ctx, model.SearchQuery{Prefix: "new", PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"New York", "newark"}, testutil.Names(result.Items))
		assert.Equal(t, 2, result.TotalMatchingCount)
	})

	t.Run("prefix longer than any key", func(t *testing.T) {
		result, err := svc.Search(ctx, model.SearchQuery{Prefix: "albuquerque, us and beyond", PageSize: 10})
		require.NoError(t, err)
		assert.Empty(t, result.Items)
		assert.Zero(t, result.TotalMatchingCount)
	})

	t.Run("page size 5 over 9 records", func(t *testing.T) {
		page0, err := svc.Search(ctx, model.SearchQuery{Page: 0, PageSize: 5})
		require.NoError(t, err)
		page1, err := svc.Search(ctx, model.SearchQuery{Page: 1, PageSize: 5})
		require.NoError(t, err)

		assert.Len(t, page0.Items, 5)
		assert.Len(t, page1.Items, 4)
		assert.Equal(t, 9, page0.TotalMatchingCount)
		assert.Equal(t, 9, page1.TotalMatchingCount)
	})

	t.Run("page past the end", func(t *testing.T) {
		result, err := svc.Search(ctx, model.SearchQuery{Page: 4, PageSize: 5})
		require.NoError(t, err)
		assert.Empty(t, result.Items)
		assert.Equal(t, 9, result.TotalMatchingCount)
	})

	t.Run("page whose offset overflows", func(t *testing.T) {
		for _, page := range []int{math.MaxInt/2 + 1, math.MaxInt/2 + 2, math.MaxInt} {
			result, err := svc.Search(ctx, model.SearchQuery{Page: page, PageSize: 4})
			require.NoError(t, err)
			assert.Empty(t, result.Items, "page %d", page)
			assert.Equal(t, 0, result.TotalMatchingCount)
		}
	})
}

func TestService_Search_FavoritesOnly(t *testing.T) {
	svc, _ := setupStoreService(t, testutil.SampleCities())
	ctx := context.Background()

	for _, id := range []int{9, 3, 5} {
		favorite, err := svc.ToggleFavorite(ctx, id)
		require.NoError(t, err)
		require.True(t, favorite)
	}

	result, err := svc.Search(ctx, model.SearchQuery{OnlyFavorites: true, PageSize: 50})
	require.NoError(t, err)
	assert.Equal(t, []string{"London", "Paris", "newark"}, testutil.Names(result.Items))
	for _, c := range result.Items {
		assert.True(t, c.IsFavorite)
	}

	result, err = svc.Search(ctx, model.SearchQuery{Prefix: "New", OnlyFavorites: true, PageSize: 50})
	require.NoError(t, err)
	assert.Equal(t, []string{"newark"}, testutil.Names(result.Items))
}

func TestService_Search_PaginationCompleteness(t *testing.T) {
	cities := testutil.GenerateCities(7, 2500)
	svc, _ := setupStoreService(t, cities)
	ctx := context.Background()

	for _, tc := range []struct {
		prefix    string
		favorites bool
		pageSize  int
	}{
		{"", false, 97},
		{"", true, 50},
		{"a", false, 13},
		{"sa", true, 7},
		{"new", false, 50},
	} {
		expected := testutil.ExactSearch(cities, tc.prefix, tc.favorites)

		var collected []model.City
		seen := make(map[int]bool)
		total := -1
		for page := 0; ; page++ {
			result, err := svc.Search(ctx, model.SearchQuery{
				Prefix: tc.prefix, OnlyFavorites: tc.favorites, Page: page, PageSize: tc.pageSize,
			})
			require.NoError(t, err)
			if total < 0 || result.TotalMatchingCount > 0 {
				total = result.TotalMatchingCount
			}
			for _, c := range result.Items {
				require.False(t, seen[c.ID], "duplicate id %d", c.ID)
				seen[c.ID] = true
			}
			collected = append(collected, result.Items...)
			if len(result.Items) < tc.pageSize {
				break
			}
		}

		assert.Equal(t, len(expected), total, "prefix %q", tc.prefix)
		require.Len(t, collected, len(expected), "prefix %q", tc.prefix)
		for i := range expected {
			assert.Equal(t, expected[i].ID, collected[i].ID)
		}
	}
}
