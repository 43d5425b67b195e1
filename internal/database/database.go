package database

import (
	"context"
	"fmt"

	"github.com/alexivanou/citybrowser/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver for database/sql
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Connect creates a database connection based on configuration using sqlx
func Connect(ctx context.Context, cfg config.DBConfig) (*sqlx.DB, error) {
	driverName := "pgx"
	if cfg.IsSQLite() {
		driverName = "sqlite3"
	}

	db, err := sqlx.ConnectContext(ctx, driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.IsSQLite() {
		// One connection: a shared-cache memory database lives only as long as
		// its connection, and sqlite allows a single writer anyway. Chunk
		// transactions are therefore serialized against every reader.
		db.SetMaxOpenConns(1)
	}

	return db, nil
}
