// Package migrations applies the progression schema. Statements are ordered
// and idempotent so Apply can run on every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		total_xp INTEGER NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
		level INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT 'medium',
		status TEXT NOT NULL DEFAULT 'todo',
		due_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS focus_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		task_id TEXT,
		kind TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
		completed_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS xp_ledger (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		xp_amount INTEGER NOT NULL CHECK (xp_amount > 0),
		activity_kind TEXT NOT NULL,
		activity_ref TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS xp_ledger_activity_key
		ON xp_ledger (user_id, activity_kind, activity_ref)
		WHERE activity_ref IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS xp_ledger_user_created
		ON xp_ledger (user_id, created_at DESC)`,
}

// Apply executes all schema statements in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
