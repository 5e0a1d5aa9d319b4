package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vbncursed/vkr/intent-gate/internal/migrations"
)

// RunMigrations applies the Postgres schema, once per file.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations(
  id TEXT PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return err
	}

	files, err := migrations.List(migrations.Postgres)
	if err != nil {
		return err
	}
	for _, m := range files {
		var exists bool
		if err := conn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE id=$1)", m.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := conn.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("migration %s: %w", m.ID, err)
		}
		if _, err := conn.Exec(ctx, "INSERT INTO schema_migrations(id) VALUES($1)", m.ID); err != nil {
			return err
		}
	}
	return nil
}

// runLiteMigrations is RunMigrations for the SQLite schema.
func runLiteMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations(
  id TEXT PRIMARY KEY,
  applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return err
	}
	files, err := migrations.List(migrations.SQLite)
	if err != nil {
		return err
	}
	for _, m := range files {
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE id=?", m.ID).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("migration %s: %w", m.ID, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_migrations(id) VALUES(?)", m.ID); err != nil {
			return err
		}
	}
	return nil
}
