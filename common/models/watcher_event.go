package models

import "time"

// WatcherEvent is a persisted lifecycle or check event of a watcher
type WatcherEvent struct {
	ID        string         `json:"id"`
	WatcherID string         `json:"watcher_id"`
	EventType string         `json:"event_type"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
