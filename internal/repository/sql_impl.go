package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alexivanou/citybrowser/internal/model"
	"github.com/jmoiron/sqlx"
)

const cityColumns = "id, name, country_code, lat, lon, is_favorite, search_key"

// Upsert keeps an existing favorite flag: re-ingesting the same id refreshes
// the descriptive fields only.
const upsertCityQuery = `
	INSERT INTO cities (id, name, country_code, lat, lon, is_favorite, search_key)
	VALUES (:id, :name, :country_code, :lat, :lon, :is_favorite, :search_key)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		country_code = excluded.country_code,
		lat = excluded.lat,
		lon = excluded.lon,
		search_key = excluded.search_key`

// sqlCityRepository holds the queries shared by both dialects. Queries are
// written with ? placeholders and passed through Rebind.
type sqlCityRepository struct {
	db *sqlx.DB
}

// where renders the WHERE clause for filter.
func where(filter Filter) (string, []any) {
	var conds []string
	var args []any

	if filter.Prefix != "" {
		lower, upper := filter.Bounds()
		conds = append(conds, "search_key >= ?", "search_key < ?")
		args = append(args, lower, upper)
	}
	if filter.FavoritesOnly {
		conds = append(conds, "is_favorite = ?")
		args = append(args, true)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *sqlCityRepository) RangeScan(ctx context.Context, filter Filter, offset, limit int) ([]model.City, error) {
	clause, args := where(filter)
	q := "SELECT " + cityColumns + " FROM cities" + clause +
		" ORDER BY name, country_code, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	cities := []model.City{}
	if err := r.db.SelectContext(ctx, &cities, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return cities, nil
}

func (r *sqlCityRepository) Count(ctx context.Context, filter Filter) (int, error) {
	clause, args := where(filter)
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind("SELECT COUNT(*) FROM cities"+clause), args...); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *sqlCityRepository) TotalCount(ctx context.Context) (int, error) {
	return r.Count(ctx, Filter{})
}

func (r *sqlCityRepository) UpsertMany(ctx context.Context, cities []model.City) error {
	if len(cities) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, upsertCityQuery)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, city := range cities {
		if _, err := stmt.ExecContext(ctx, city); err != nil {
			return fmt.Errorf("upsert city %d: %w", city.ID, err)
		}
	}

	return tx.Commit()
}

func (r *sqlCityRepository) SetFavorite(ctx context.Context, id int, favorite bool) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("UPDATE cities SET is_favorite = ? WHERE id = ?"), favorite, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqlCityRepository) ToggleFavorite(ctx context.Context, id int) (bool, error) {
	var favorite bool
	q := r.db.Rebind("UPDATE cities SET is_favorite = NOT is_favorite WHERE id = ? RETURNING is_favorite")
	if err := r.db.GetContext(ctx, &favorite, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	return favorite, nil
}

func (r *sqlCityRepository) GetCityByID(ctx context.Context, id int) (*model.City, error) {
	var city model.City
	q := r.db.Rebind("SELECT " + cityColumns + " FROM cities WHERE id = ?")
	if err := r.db.GetContext(ctx, &city, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &city, nil
}
