package services

import (
	"context"
	"fmt"
	"time"

	"github.com/expanova/cita-watcher/common/logger"
	"github.com/expanova/cita-watcher/common/models"
	"github.com/jackc/pgx/v5"
)

// EventRepository stores watcher events in PostgreSQL
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates a new PostgreSQL EventRepository
func NewEventRepository(db DBTX) EventService {
	return &EventRepository{
		db: db,
	}
}

// InsertEvent implements logger.EventSink
func (r *EventRepository) InsertEvent(ctx context.Context, id string, event logger.LogEvent, createdAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO watcher_events (id, watcher_id, event_type, message, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, event.WatcherID, string(event.EventType), event.Message, event.Details, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert watcher event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByWatcher(ctx context.Context, watcherID string, limit, offset int) ([]models.WatcherEvent, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM watcher_events WHERE watcher_id = $1`, watcherID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count watcher events: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, watcher_id, event_type, message, details, created_at
		FROM watcher_events
		WHERE watcher_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		watcherID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list watcher events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.WatcherEvent, error) {
		var e models.WatcherEvent
		err := row.Scan(&e.ID, &e.WatcherID, &e.EventType, &e.Message, &e.Details, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan watcher events: %w", err)
	}
	return events, total, nil
}
