package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables on startup when they are missing.
// The UNIQUE constraint on users.email is the authoritative guard
// against duplicate registration; the handler-level existence check is
// only an advisory fast path and may race.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			email           TEXT NOT NULL UNIQUE,
			password_hash   TEXT NOT NULL,
			mobile          TEXT NOT NULL,
			profile_pic_url TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL REFERENCES users(id),
			name       TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'pending',
			start_time TIMESTAMPTZ,
			end_time   TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id)`,
	}

	for _, stmt := range stmts {
		_, err := pool.Exec(ctx, stmt)

		if err != nil {
			return err
		}
	}

	return nil
}

// TableExists reports whether a table is present, used by the health
// endpoint's per-table probe.
func TableExists(ctx context.Context, pool *pgxpool.Pool, name string) (bool, error) {
	var regclass *string

	err := pool.QueryRow(ctx, `SELECT to_regclass($1)::text`, name).Scan(&regclass)

	if err != nil {
		return false, err
	}

	return regclass != nil, nil
}
