package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS portal_users (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS care_plans (
		id          TEXT PRIMARY KEY,
		client_id   TEXT NOT NULL REFERENCES portal_users(id),
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		progress    INT NOT NULL DEFAULT 0,
		next_review TEXT NOT NULL DEFAULT '',
		milestones  JSONB NOT NULL DEFAULT '[]',
		services    JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS care_plans_client_idx ON care_plans (client_id)`,
	`CREATE TABLE IF NOT EXISTS service_requests (
		id             TEXT PRIMARY KEY,
		client_id      TEXT NOT NULL REFERENCES portal_users(id),
		title          TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		category       TEXT NOT NULL DEFAULT '',
		priority       TEXT NOT NULL DEFAULT 'medium',
		status         TEXT NOT NULL,
		requested_date TIMESTAMPTZ NOT NULL,
		assigned_to    TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS service_requests_client_idx ON service_requests (client_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id    TEXT PRIMARY KEY REFERENCES portal_users(id),
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT '',
		fields     JSONB NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS interviews (
		event_id     TEXT PRIMARY KEY,
		client_id    TEXT NOT NULL,
		caregiver_id TEXT NOT NULL,
		scheduled_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		filename   TEXT NOT NULL,
		mime_type  TEXT NOT NULL,
		object_key TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the portal tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
