package services

import (
	"context"
	"fmt"
	"time"

	"github.com/expanova/cita-watcher/watcher"
	"github.com/jackc/pgx/v5"
)

const watcherColumns = `id, user_id, task_id, portal_url, location, preferred_dates, preferred_times, active, last_checked, created_at`

// WatcherRepository is a PostgreSQL implementation of watcher.Store
type WatcherRepository struct {
	db DBTX
}

// NewWatcherRepository creates a new PostgreSQL WatcherRepository
func NewWatcherRepository(db DBTX) WatcherService {
	return &WatcherRepository{
		db: db,
	}
}

// Save inserts or updates a watcher. last_checked is only moved forward.
func (r *WatcherRepository) Save(ctx context.Context, w watcher.Watcher) error {
	dates := w.PreferredDates
	if dates == nil {
		dates = []time.Time{}
	}
	times := w.PreferredTimes
	if times == nil {
		times = []string{}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO cita_watchers (`+watcherColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			location        = EXCLUDED.location,
			preferred_dates = EXCLUDED.preferred_dates,
			preferred_times = EXCLUDED.preferred_times,
			active          = EXCLUDED.active,
			last_checked    = GREATEST(cita_watchers.last_checked, EXCLUDED.last_checked)`,
		w.ID, w.UserID, w.TaskID, w.PortalURL, w.Location, dates, times, w.Active, nullableTime(w.LastChecked), w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save watcher %s: %w", w.ID, err)
	}
	return nil
}

// Delete deletes a watcher
func (r *WatcherRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cita_watchers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete watcher %s: %w", id, err)
	}
	return nil
}

// UpdateLastChecked advances last_checked; an older time is ignored
func (r *WatcherRepository) UpdateLastChecked(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE cita_watchers SET last_checked = $2
		WHERE id = $1 AND (last_checked IS NULL OR last_checked < $2)`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("update last checked of %s: %w", id, err)
	}
	return nil
}

// ListAll returns every watcher, oldest first
func (r *WatcherRepository) ListAll(ctx context.Context) ([]watcher.Watcher, error) {
	rows, err := r.db.Query(ctx, `SELECT `+watcherColumns+` FROM cita_watchers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list watchers: %w", err)
	}

	watchers, err := pgx.CollectRows(rows, scanWatcher)
	if err != nil {
		return nil, fmt.Errorf("scan watchers: %w", err)
	}
	return watchers, nil
}

func scanWatcher(row pgx.CollectableRow) (watcher.Watcher, error) {
	var (
		w           watcher.Watcher
		lastChecked *time.Time
	)
	err := row.Scan(
		&w.ID, &w.UserID, &w.TaskID, &w.PortalURL, &w.Location,
		&w.PreferredDates, &w.PreferredTimes, &w.Active, &lastChecked, &w.CreatedAt,
	)
	if err != nil {
		return watcher.Watcher{}, err
	}
	if lastChecked != nil {
		w.LastChecked = *lastChecked
	}
	return w, nil
}
