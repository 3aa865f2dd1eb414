package services

import (
	"context"
	"time"

	"github.com/expanova/cita-watcher/common/logger"
	"github.com/expanova/cita-watcher/common/models"
	"github.com/expanova/cita-watcher/watcher"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WatcherService persists watchers for the scheduler
type WatcherService interface {
	watcher.Store
}

// EventService defines the interface for watcher event operations
type EventService interface {
	logger.EventSink

	// ListByWatcher returns a page of events, newest first, and the total count
	ListByWatcher(ctx context.Context, watcherID string, limit, offset int) ([]models.WatcherEvent, int64, error)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
