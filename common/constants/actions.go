package constants

// EventType identifies a watcher event recorded in the event log and
// published to the message broker.
type EventType string

const (
	// WatcherCreated is recorded when a watcher is added.
	WatcherCreated EventType = "watcher.created"
	// WatcherPaused is recorded when a watcher is paused.
	WatcherPaused EventType = "watcher.paused"
	// WatcherResumed is recorded when a watcher is resumed.
	WatcherResumed EventType = "watcher.resumed"
	// WatcherRemoved is recorded when a watcher is removed.
	WatcherRemoved EventType = "watcher.removed"

	// CheckCompleted is recorded after a portal check ran to completion.
	CheckCompleted EventType = "check.completed"
	// CheckFailed is recorded when navigation or extraction failed.
	CheckFailed EventType = "check.failed"
	// AppointmentFound is recorded when matching slots were found.
	AppointmentFound EventType = "appointment.found"

	// SystemLog is used for warn-and-above entries captured from the global logger.
	SystemLog EventType = "system.log"
)
