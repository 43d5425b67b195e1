package repository

import (
	"context"
	"fmt"
)

// --- PostgreSQL Implementation ---

type pgCityRepository struct {
	sqlCityRepository
}

func (r *pgCityRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "TRUNCATE TABLE cities"); err != nil {
		return fmt.Errorf("truncate cities: %w", err)
	}
	return nil
}
