package messaging

import (
	"time"

	"github.com/expanova/cita-watcher/common/constants"
	"github.com/google/uuid"
)

// notificationMaxAge matches the lifetime of an appointment notification.
const notificationMaxAge = 2 * time.Hour

// AppointmentSlot is the wire form of a matching appointment slot.
type AppointmentSlot struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	URL      string `json:"url"`
	Snapshot string `json:"snapshot,omitempty"`
}

// AppointmentFoundEvent is published when a watcher finds matching slots.
type AppointmentFoundEvent struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	WatcherID string            `json:"watcher_id"`
	UserID    string            `json:"user_id"`
	TaskID    string            `json:"task_id,omitempty"`
	Portal    string            `json:"portal"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Slots     []AppointmentSlot `json:"slots"`
	ActionURL string            `json:"action_url"`
	Priority  string            `json:"priority"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// NewAppointmentFoundEvent fills the fixed fields of an event.
func NewAppointmentFoundEvent(now time.Time) AppointmentFoundEvent {
	return AppointmentFoundEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      constants.NotificationTypeAppointmentAvailable,
		Priority:  "high",
		CreatedAt: now,
		ExpiresAt: now.Add(notificationMaxAge),
	}
}

// AppointmentFoundSubject is the subject events for userID are published on.
func AppointmentFoundSubject(userID string) string {
	return constants.AppointmentFoundSubjectPrefix + "." + userID
}
