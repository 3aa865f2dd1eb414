package logger

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/expanova/cita-watcher/common/constants"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu     sync.Mutex
	events []LogEvent
	err    error
	done   chan struct{}
}

func newMemorySink() *memorySink {
	return &memorySink{done: make(chan struct{}, 10)}
}

func (m *memorySink) InsertEvent(_ context.Context, id string, event LogEvent, _ time.Time) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	m.done <- struct{}{}
	return m.err
}

func (m *memorySink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sink")
	}
}

func TestEventHookPersistsWarnings(t *testing.T) {
	sink := newMemorySink()
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	logger := base.Hook(NewEventHook(sink, zerolog.WarnLevel, base))

	ctx := WithWatcherID(context.Background(), "w-1")
	logger.Info().Ctx(ctx).Msg("ignored")
	logger.Warn().Ctx(ctx).Str("watcherID", "w-1").Msg("Portal slow, retrying")
	sink.wait(t)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 1)
	assert.Equal(t, "w-1", sink.events[0].WatcherID)
	assert.Equal(t, "Portal slow, retrying", sink.events[0].Message)
	assert.Equal(t, constants.SystemLog, sink.events[0].EventType)
	assert.Equal(t, "warn", sink.events[0].Details["level"])
}

func TestEventHookSinkFailureUsesFallback(t *testing.T) {
	sink := newMemorySink()
	sink.err = errors.New("db down")

	var fallbackBuf syncBuffer
	fallback := zerolog.New(&fallbackBuf)
	logger := zerolog.New(&bytes.Buffer{}).Hook(NewEventHook(sink, zerolog.WarnLevel, fallback))

	logger.Error().Msg("boom")
	sink.wait(t)

	assert.Eventually(t, func() bool {
		return bytes.Contains(fallbackBuf.Bytes(), []byte("Failed to persist log entry"))
	}, time.Second, 10*time.Millisecond)
}

func TestEventHookWithoutWatcherIsSystemEntry(t *testing.T) {
	sink := newMemorySink()
	base := zerolog.New(&bytes.Buffer{})
	logger := base.Hook(NewEventHook(sink, zerolog.WarnLevel, base))

	logger.Error().Msg("Failed to queue check")
	sink.wait(t)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 1)
	assert.Empty(t, sink.events[0].WatcherID)
}

func TestWatcherID(t *testing.T) {
	assert.Equal(t, "w-9", WatcherID(WithWatcherID(context.Background(), "w-9")))
	assert.Empty(t, WatcherID(context.Background()))
}

func TestLogServiceWithoutSink(t *testing.T) {
	s := NewLogService(nil)
	assert.NoError(t, s.Log(context.Background(), LogEvent{WatcherID: "w", EventType: constants.WatcherCreated}))
}

func TestLogServiceWithSink(t *testing.T) {
	sink := newMemorySink()
	s := NewLogService(sink)

	err := s.Log(context.Background(), LogEvent{WatcherID: "w", EventType: constants.CheckCompleted, Message: "done"})
	require.NoError(t, err)
	assert.Len(t, sink.events, 1)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}
