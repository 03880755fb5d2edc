// Package migrations applies the embedded schema migrations once per version.
// Applied versions are recorded in a schema_migrations table in each database.
package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"quantlab-factor-library/internal/storage/postgres"
	"quantlab-factor-library/internal/storage/schema"
)

// advisoryLockKey serializes concurrent migrators on one PostgreSQL database.
const advisoryLockKey = 7_421_133

// RunPostgresMigrations applies pending PostgreSQL migrations in version
// order, each in its own transaction together with its version row.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	ms, err := schema.Postgres()
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range ms {
		err := pool.InTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockKey); err != nil {
				return fmt.Errorf("lock: %w", err)
			}
			var applied bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version).Scan(&applied); err != nil {
				return fmt.Errorf("check version: %w", err)
			}
			if applied {
				return nil
			}
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
	}
	return nil
}
