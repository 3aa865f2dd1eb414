// Package notification delivers appointment matches found by the scheduler.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/expanova/cita-watcher/common/messaging"
	"github.com/expanova/cita-watcher/watcher"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Publisher is satisfied by messaging.NatsBroker. msgID identifies one
// notification across publish retries.
type Publisher interface {
	Publish(ctx context.Context, subject, msgID string, data []byte) error
}

// NatsNotifier publishes an AppointmentFoundEvent per match to JetStream.
type NatsNotifier struct {
	pub      Publisher
	now      func() time.Time
	attempts uint
	delay    time.Duration
}

type NatsOption func(*NatsNotifier)

// WithRetry sets the publish attempts and the initial backoff.
func WithRetry(attempts uint, delay time.Duration) NatsOption {
	return func(n *NatsNotifier) {
		n.attempts = attempts
		n.delay = delay
	}
}

func WithClock(now func() time.Time) NatsOption {
	return func(n *NatsNotifier) {
		n.now = now
	}
}

func NewNatsNotifier(pub Publisher, opts ...NatsOption) *NatsNotifier {
	n := &NatsNotifier{
		pub:      pub,
		now:      time.Now,
		attempts: 3,
		delay:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *NatsNotifier) AppointmentFound(ctx context.Context, w watcher.Watcher, slots []watcher.Slot) error {
	event := n.event(w, slots)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode appointment event: %w", err)
	}
	subject := messaging.AppointmentFoundSubject(w.UserID)

	err = retry.Do(
		func() error {
			return n.pub.Publish(ctx, subject, event.ID, data)
		},
		retry.Attempts(n.attempts),
		retry.Delay(n.delay),
		retry.MaxDelay(5*time.Second),
		retry.MaxJitter(n.delay),
		retry.Context(ctx),
		retry.OnRetry(func(attempt uint, err error) {
			log.Warn().Err(err).Uint("attempt", attempt+1).Str("watcherID", w.ID).Msg("Retrying appointment notification")
		}),
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	log.Info().Str("watcherID", w.ID).Str("subject", subject).Int("slots", len(slots)).Msg("Appointment notification published")
	return nil
}

func (n *NatsNotifier) event(w watcher.Watcher, slots []watcher.Slot) messaging.AppointmentFoundEvent {
	event := messaging.NewAppointmentFoundEvent(n.now())
	event.WatcherID = w.ID
	event.UserID = w.UserID
	event.TaskID = w.TaskID
	event.Portal = w.PortalURL
	event.Title = "Appointment available"
	event.Message = fmt.Sprintf("Found %d available appointment(s) in %s", len(slots), w.Location)
	event.ActionURL = w.PortalURL
	if len(slots) > 0 && slots[0].URL != "" {
		event.ActionURL = slots[0].URL
	}
	event.Slots = lo.Map(slots, func(s watcher.Slot, _ int) messaging.AppointmentSlot {
		return messaging.AppointmentSlot{
			Date:     s.Date.Format(time.DateOnly),
			Time:     s.Time,
			Location: s.Location,
			URL:      s.URL,
			Snapshot: s.Snapshot,
		}
	})
	return event
}
