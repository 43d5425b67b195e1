package repository

import (
	"context"
	"fmt"
)

type sqliteCityRepository struct {
	sqlCityRepository
}

func (r *sqliteCityRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM cities"); err != nil {
		return fmt.Errorf("clear cities: %w", err)
	}
	return nil
}
