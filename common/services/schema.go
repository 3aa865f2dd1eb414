package services

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cita_watchers (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		task_id         TEXT NOT NULL DEFAULT '',
		portal_url      TEXT NOT NULL,
		location        TEXT NOT NULL,
		preferred_dates DATE[] NOT NULL DEFAULT '{}',
		preferred_times TEXT[] NOT NULL DEFAULT '{}',
		active          BOOLEAN NOT NULL DEFAULT TRUE,
		last_checked    TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS cita_watchers_user_id_idx ON cita_watchers (user_id)`,
	`CREATE TABLE IF NOT EXISTS watcher_events (
		id          TEXT PRIMARY KEY,
		watcher_id  TEXT NOT NULL DEFAULT '',
		event_type  TEXT NOT NULL,
		message     TEXT NOT NULL,
		details     JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS watcher_events_watcher_created_idx ON watcher_events (watcher_id, created_at DESC)`,
}

// EnsureSchema creates the tables used by the repositories
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
