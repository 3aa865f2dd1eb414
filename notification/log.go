package notification

import (
	"context"
	"errors"
	"time"

	"github.com/expanova/cita-watcher/watcher"
	"github.com/rs/zerolog/log"
)

// LogNotifier writes matches to the log. Used when NATS is disabled.
type LogNotifier struct{}

func (LogNotifier) AppointmentFound(_ context.Context, w watcher.Watcher, slots []watcher.Slot) error {
	for _, s := range slots {
		log.Info().
			Str("watcherID", w.ID).
			Str("userID", w.UserID).
			Str("date", s.Date.Format(time.DateOnly)).
			Str("time", s.Time).
			Str("location", s.Location).
			Str("url", s.URL).
			Msg("Appointment available")
	}
	return nil
}

// Multi delivers to every notifier and joins their errors.
type Multi []watcher.Notifier

func (m Multi) AppointmentFound(ctx context.Context, w watcher.Watcher, slots []watcher.Slot) error {
	var errs []error
	for _, n := range m {
		if err := n.AppointmentFound(ctx, w, slots); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
