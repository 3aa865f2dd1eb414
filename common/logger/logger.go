package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/expanova/cita-watcher/common/config"
	"github.com/expanova/cita-watcher/common/constants"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogEvent represents a watcher event
type LogEvent struct {
	WatcherID string
	EventType constants.EventType
	Message   string
	Details   map[string]any
}

// EventSink persists log events.
type EventSink interface {
	InsertEvent(ctx context.Context, id string, event LogEvent, createdAt time.Time) error
}

// EventHook implements zerolog.Hook and stores warn-and-above entries
// through an EventSink.
type EventHook struct {
	sink     EventSink
	minLevel zerolog.Level
	// fallback has no hook attached so sink failures cannot recurse.
	fallback zerolog.Logger
}

// NewEventHook creates a new log hook
func NewEventHook(sink EventSink, minLevel zerolog.Level, fallback zerolog.Logger) *EventHook {
	return &EventHook{
		sink:     sink,
		minLevel: minLevel,
		fallback: fallback,
	}
}

// Run implements zerolog.Hook.Run
func (h *EventHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level < h.minLevel || level == zerolog.NoLevel {
		return
	}

	event := LogEvent{
		WatcherID: WatcherID(e.GetCtx()),
		EventType: constants.SystemLog,
		Message:   msg,
		Details:   map[string]any{"level": level.String()},
	}

	// This is done asynchronously to not block the logging
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.sink.InsertEvent(ctx, uuid.Must(uuid.NewV7()).String(), event, time.Now()); err != nil {
			h.fallback.Error().Err(err).Msg("Failed to persist log entry")
		}
	}()
}

type watcherKey struct{}

// WithWatcherID tags ctx with a watcher id. Entries logged with
// Event.Ctx(ctx) are then persisted against that watcher.
func WithWatcherID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, watcherKey{}, id)
}

// WatcherID returns the id set by WithWatcherID, or "" for system entries.
func WatcherID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(watcherKey{}).(string)
	return id
}

// InitializeLogging configures the global zerolog logger. When sink is not
// nil, warn-and-above entries are also persisted through it.
func InitializeLogging(cfg config.LogConfig, sink EventSink) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	base := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.Pretty {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	if sink != nil {
		log.Logger = base.Hook(NewEventHook(sink, zerolog.WarnLevel, base))
		return
	}
	log.Logger = base
}

// LogService records watcher events to the console and, when configured, to the database
type LogService struct {
	sink EventSink
}

// NewLogService creates a new log service. sink may be nil.
func NewLogService(sink EventSink) *LogService {
	return &LogService{
		sink: sink,
	}
}

// Log records an event
func (s *LogService) Log(ctx context.Context, event LogEvent) error {
	log.Info().
		Str("watcherID", event.WatcherID).
		Str("eventType", string(event.EventType)).
		Interface("details", event.Details).
		Msg(event.Message)

	if s.sink == nil {
		return nil
	}
	return s.sink.InsertEvent(ctx, uuid.Must(uuid.NewV7()).String(), event, time.Now())
}
