package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/expanova/cita-watcher/common/messaging"
	"github.com/expanova/cita-watcher/watcher"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	failures int
	messages []published
	attempts int
	msgIDs   []string
}

func (p *fakePublisher) Publish(_ context.Context, subject, msgID string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	p.msgIDs = append(p.msgIDs, msgID)
	if p.failures > 0 {
		p.failures--
		return errors.New("nats: timeout")
	}
	p.messages = append(p.messages, published{subject: subject, data: data})
	return nil
}

var (
	now = time.Date(2025, 7, 10, 9, 30, 0, 0, time.UTC)
	w   = watcher.Watcher{
		ID:        "w-1",
		UserID:    "user-7",
		TaskID:    "task-3",
		PortalURL: "https://sede.policia.gob.es",
		Location:  "Valencia",
	}
	slots = []watcher.Slot{{
		Date:      time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
		Time:      "10:00-10:30",
		Location:  "Valencia",
		Available: true,
		URL:       "https://sede.policia.gob.es/cita",
		Snapshot:  "snapshots/policia/w-1/1752139800.png",
	}}
)

func TestNatsNotifierPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNatsNotifier(pub, WithClock(func() time.Time { return now }))

	require.NoError(t, n.AppointmentFound(context.Background(), w, slots))
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "cita.appointment.found.user-7", pub.messages[0].subject)

	var event messaging.AppointmentFoundEvent
	require.NoError(t, json.Unmarshal(pub.messages[0].data, &event))
	assert.Equal(t, "APPOINTMENT_AVAILABLE", event.Type)
	assert.Equal(t, pub.msgIDs[0], event.ID)
	assert.Equal(t, "w-1", event.WatcherID)
	assert.Equal(t, "task-3", event.TaskID)
	assert.Equal(t, "high", event.Priority)
	assert.Equal(t, "https://sede.policia.gob.es/cita", event.ActionURL)
	assert.Equal(t, now.Add(2*time.Hour), event.ExpiresAt)
	assert.Equal(t, "Found 1 available appointment(s) in Valencia", event.Message)
	require.Len(t, event.Slots, 1)
	assert.Equal(t, "2025-07-15", event.Slots[0].Date)
	assert.Equal(t, slots[0].Snapshot, event.Slots[0].Snapshot)
}

func TestNatsNotifierRetries(t *testing.T) {
	pub := &fakePublisher{failures: 2}
	n := NewNatsNotifier(pub, WithRetry(3, time.Millisecond))

	require.NoError(t, n.AppointmentFound(context.Background(), w, slots))
	assert.Equal(t, 3, pub.attempts)
	assert.Len(t, pub.messages, 1)
	assert.Len(t, lo.Uniq(pub.msgIDs), 1)
}

func TestNatsNotifierGivesUp(t *testing.T) {
	pub := &fakePublisher{failures: 10}
	n := NewNatsNotifier(pub, WithRetry(2, time.Millisecond))

	err := n.AppointmentFound(context.Background(), w, slots)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cita.appointment.found.user-7")
	assert.Equal(t, 2, pub.attempts)
	assert.Empty(t, pub.messages)
}

func TestMultiJoinsErrors(t *testing.T) {
	var delivered int
	ok := watcher.NotifyFunc(func(context.Context, watcher.Watcher, []watcher.Slot) error {
		delivered++
		return nil
	})
	broken := watcher.NotifyFunc(func(context.Context, watcher.Watcher, []watcher.Slot) error {
		return errors.New("push gateway down")
	})

	err := Multi{broken, LogNotifier{}, ok}.AppointmentFound(context.Background(), w, slots)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push gateway down")
	assert.Equal(t, 1, delivered)

	assert.NoError(t, Multi{LogNotifier{}, ok}.AppointmentFound(context.Background(), w, slots))
}
