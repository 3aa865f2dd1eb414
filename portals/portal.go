package portals

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownPortalID is returned when a portal id is outside the supported set.
	ErrUnknownPortalID = errors.New("unknown portal id")
	// ErrUnknownAction is returned for navigation steps with an unsupported action.
	ErrUnknownAction = errors.New("unknown navigation action")
)

// ID identifies one of the supported government portals.
type ID string

const (
	Policia              ID = "policia"
	DGT                  ID = "dgt"
	AyuntamientoValencia ID = "ayuntamiento-valencia"
	SanGVA               ID = "san-gva"
)

// IDs lists the supported portals in classification order.
var IDs = []ID{Policia, DGT, AyuntamientoValencia, SanGVA}

// Known reports whether id is one of the supported portals.
func (id ID) Known() bool {
	for _, known := range IDs {
		if id == known {
			return true
		}
	}
	return false
}

// Action is the kind of a navigation step.
type Action string

const (
	ActionClick  Action = "click"
	ActionSelect Action = "select"
	ActionInput  Action = "input"
	ActionWait   Action = "wait"
)

// LocationPlaceholder in a step value is replaced with the watcher's location.
const LocationPlaceholder = "{location}"

// NavigationStep is one action of the script that walks a portal from its
// landing page to the appointment calendar.
type NavigationStep struct {
	Action   Action `json:"action"`
	Selector string `json:"selector"`
	Value    string `json:"value,omitempty"`
	WaitFor  string `json:"wait_for,omitempty"`
}

// ResolveValue returns the step value with the location placeholder expanded.
func (s NavigationStep) ResolveValue(location string) string {
	return strings.ReplaceAll(s.Value, LocationPlaceholder, location)
}

func (s NavigationStep) validate() error {
	switch s.Action {
	case ActionClick, ActionSelect, ActionInput, ActionWait:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, s.Action)
	}
	if s.Selector == "" {
		return errors.New("step selector is required")
	}
	return nil
}

// Selectors is the DOM selector bundle of a portal.
type Selectors struct {
	DateSlots             string `json:"date_slots"`
	TimeSlots             string `json:"time_slots"`
	LocationSelect        string `json:"location_select"`
	AvailabilityIndicator string `json:"availability_indicator"`
	BookingButton         string `json:"booking_button"`
	ErrorMessage          string `json:"error_message"`
}

// Portal describes how to reach and read one portal's appointment calendar.
type Portal struct {
	ID           ID
	Name         string
	Description  string
	BaseURL      string
	HostPatterns []string
	RateLimit    time.Duration
	Selectors    Selectors
	Navigation   []NavigationStep
	TaskTypes    []string
}

// Matches reports whether url belongs to this portal.
func (p Portal) Matches(url string) bool {
	for _, pattern := range p.HostPatterns {
		if strings.Contains(url, pattern) {
			return true
		}
	}
	return false
}

// Validate validates the portal descriptor
func (p Portal) Validate() error {
	if !p.ID.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownPortalID, p.ID)
	}
	if p.BaseURL == "" {
		return errors.New("base URL is required")
	}
	if len(p.HostPatterns) == 0 {
		return errors.New("at least one host pattern is required")
	}
	if p.RateLimit <= 0 {
		return errors.New("rate limit must be positive")
	}
	if p.Selectors.DateSlots == "" {
		return errors.New("date slot selector is required")
	}
	if p.Selectors.TimeSlots == "" {
		return errors.New("time slot selector is required")
	}
	for i, step := range p.Navigation {
		if err := step.validate(); err != nil {
			return fmt.Errorf("navigation step %d: %w", i, err)
		}
	}
	return nil
}
