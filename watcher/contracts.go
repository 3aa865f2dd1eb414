package watcher

import (
	"context"
	"time"

	"github.com/expanova/cita-watcher/common/logger"
)

// Notifier receives the slots matching a watcher's preferences.
type Notifier interface {
	AppointmentFound(ctx context.Context, w Watcher, slots []Slot) error
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(ctx context.Context, w Watcher, slots []Slot) error

func (f NotifyFunc) AppointmentFound(ctx context.Context, w Watcher, slots []Slot) error {
	return f(ctx, w, slots)
}

// Store persists watchers so they survive restarts.
type Store interface {
	Save(ctx context.Context, w Watcher) error
	Delete(ctx context.Context, id string) error
	UpdateLastChecked(ctx context.Context, id string, at time.Time) error
	ListAll(ctx context.Context) ([]Watcher, error)
}

// PortalLimiter grants at most one check per key and interval across all watchers.
type PortalLimiter interface {
	Allow(ctx context.Context, key string, interval time.Duration) (bool, error)
}

// ArtifactStore keeps page captures and returns the stored object name.
type ArtifactStore interface {
	Upload(ctx context.Context, objectName string, content []byte, contentType string) (string, error)
}

// EventLog records watcher events.
type EventLog interface {
	Log(ctx context.Context, event logger.LogEvent) error
}

type nopStore struct{}

func (nopStore) Save(context.Context, Watcher) error                        { return nil }
func (nopStore) Delete(context.Context, string) error                       { return nil }
func (nopStore) UpdateLastChecked(context.Context, string, time.Time) error { return nil }
func (nopStore) ListAll(context.Context) ([]Watcher, error)                 { return nil, nil }
