package repository

import (
	"context"
	"errors"

	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/alexivanou/citybrowser/internal/model"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned by favorite mutations on an unknown city id.
var ErrNotFound = errors.New("city not found")

// PrefixRangeSentinel is appended to a prefix to form the exclusive upper
// bound of its range. Every key starting with the prefix sorts below
// prefix+U+FFFF; keys containing U+FFFF (or any rune above it) directly after
// the prefix are not matched.
const PrefixRangeSentinel = "\uffff"

// Filter selects a subset of cities. An empty Prefix matches every key.
// Prefix must already be normalized (trimmed, lowercased).
type Filter struct {
	Prefix        string
	FavoritesOnly bool
}

// Bounds returns the half-open search_key range [lower, upper).
func (f Filter) Bounds() (lower, upper string) {
	return f.Prefix, f.Prefix + PrefixRangeSentinel
}

// CityRepository is the record store: a keyed collection of cities with a
// compound (search_key, is_favorite) index.
type CityRepository interface {
	// RangeScan returns matching cities ordered by (name, country_code, id).
	RangeScan(ctx context.Context, filter Filter, offset, limit int) ([]model.City, error)
	// Count returns the number of cities matching filter.
	Count(ctx context.Context, filter Filter) (int, error)
	// UpsertMany commits cities in a single transaction, idempotent by id.
	UpsertMany(ctx context.Context, cities []model.City) error
	SetFavorite(ctx context.Context, id int, favorite bool) error
	// ToggleFavorite flips the flag atomically and returns the new value.
	ToggleFavorite(ctx context.Context, id int) (bool, error)
	// GetCityByID returns nil, nil when the id is unknown.
	GetCityByID(ctx context.Context, id int) (*model.City, error)
	Clear(ctx context.Context) error
	TotalCount(ctx context.Context) (int, error)
}

// NewCityRepository creates the repository implementation for the DB type
func NewCityRepository(db *sqlx.DB, dbType config.DBType) CityRepository {
	if dbType == config.DBTypePostgreSQL {
		return &pgCityRepository{sqlCityRepository{db: db}}
	}

	// Default to SQLite
	return &sqliteCityRepository{sqlCityRepository{db: db}}
}
