package watcher

import (
	"errors"
	"time"

	"github.com/samber/mo"
)

var (
	// ErrWatcherNotFound is returned by lifecycle operations on an unknown id.
	ErrWatcherNotFound = errors.New("watcher not found")
	// ErrInvalidWatcher is returned when a watcher request misses required fields.
	ErrInvalidWatcher = errors.New("invalid watcher")
	// ErrUnknownPortal is returned when a portal URL matches no supported portal.
	ErrUnknownPortal = errors.New("unknown portal")
	// ErrSchedulerClosed is returned after Close.
	ErrSchedulerClosed = errors.New("scheduler closed")
	// ErrPortalBusy is returned by CheckNow when the portal was checked
	// less than its rate limit ago.
	ErrPortalBusy = errors.New("portal checked too recently")
	// ErrSchedulerNotStarted is returned by CheckNow before Start.
	ErrSchedulerNotStarted = errors.New("scheduler not started")
)

// Watcher is a standing request to monitor one portal for one task.
type Watcher struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	TaskID         string      `json:"task_id"`
	PortalURL      string      `json:"portal_url"`
	Location       string      `json:"location"`
	PreferredDates []time.Time `json:"preferred_dates"`
	PreferredTimes []string    `json:"preferred_times"`
	Active         bool        `json:"active"`
	// LastChecked is zero until the first completed check.
	LastChecked time.Time `json:"last_checked"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewWatcher holds the fields a caller supplies when creating a watcher.
type NewWatcher struct {
	UserID         string
	TaskID         string
	PortalURL      string
	Location       string
	PreferredDates []time.Time
	PreferredTimes []string
}

func (n NewWatcher) validate() error {
	if n.UserID == "" {
		return errors.Join(ErrInvalidWatcher, errors.New("user id is required"))
	}
	if n.PortalURL == "" {
		return errors.Join(ErrInvalidWatcher, errors.New("portal url is required"))
	}
	return nil
}

// Slot is one appointment opportunity observed on a portal.
type Slot struct {
	Date      time.Time `json:"date"`
	Time      string    `json:"time"`
	Location  string    `json:"location"`
	Available bool      `json:"available"`
	URL       string    `json:"url"`
	// Snapshot is the storage object of the page capture taken when the slot was found.
	Snapshot string `json:"snapshot,omitempty"`
}

// CheckOutcome describes how a single check cycle ended.
type CheckOutcome string

const (
	OutcomeNone          CheckOutcome = ""
	OutcomeSkipped       CheckOutcome = "skipped"
	OutcomeRateLimited   CheckOutcome = "rate_limited"
	OutcomePortalBusy    CheckOutcome = "portal_busy"
	OutcomeUnknownPortal CheckOutcome = "unknown_portal"
	OutcomeFailed        CheckOutcome = "failed"
	OutcomeNoMatch       CheckOutcome = "no_match"
	OutcomeMatched       CheckOutcome = "matched"
)

// Status is the externally visible state of a watcher.
type Status struct {
	Active      bool                 `json:"active"`
	LastChecked mo.Option[time.Time] `json:"last_checked"`
	LastOutcome CheckOutcome         `json:"last_outcome,omitempty"`
}
