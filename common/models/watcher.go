package models

import "time"

// CreateWatcherRequest is the body of POST /watchers. Either PortalURL or
// TaskType must be set; TaskType is resolved to the portal handling it.
type CreateWatcherRequest struct {
	UserID         string   `json:"user_id" validate:"required"`
	TaskID         string   `json:"task_id"`
	PortalURL      string   `json:"portal_url" validate:"required_without=TaskType,omitempty,url"`
	TaskType       string   `json:"task_type" validate:"required_without=PortalURL"`
	Location       string   `json:"location"`
	PreferredDates []string `json:"preferred_dates" validate:"dive,datetime=2006-01-02"`
	PreferredTimes []string `json:"preferred_times" validate:"dive,required"`
}

type PortalSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WatcherResponse describes a watcher together with its schedule state
type WatcherResponse struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	TaskID          string         `json:"task_id,omitempty"`
	PortalURL       string         `json:"portal_url"`
	Portal          *PortalSummary `json:"portal,omitempty"`
	PortalSupported bool           `json:"portal_supported"`
	Location        string         `json:"location"`
	PreferredDates  []string       `json:"preferred_dates"`
	PreferredTimes  []string       `json:"preferred_times"`
	Active          bool           `json:"active"`
	LastChecked     *time.Time     `json:"last_checked"`
	LastOutcome     string         `json:"last_outcome,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

type WatcherStatusResponse struct {
	ID          string     `json:"id"`
	Active      bool       `json:"active"`
	LastChecked *time.Time `json:"last_checked"`
	LastOutcome string     `json:"last_outcome,omitempty"`
}

// CheckAvailabilityRequest is the body of POST /check-availability
type CheckAvailabilityRequest struct {
	PortalURL string `json:"portal_url" validate:"required_without=TaskType,omitempty,url"`
	TaskType  string `json:"task_type" validate:"required_without=PortalURL"`
	Location  string `json:"location"`
}

type SlotResponse struct {
	Date      string `json:"date"`
	Time      string `json:"time,omitempty"`
	Location  string `json:"location"`
	Available bool   `json:"available"`
	URL       string `json:"url"`
}

type CheckAvailabilityResponse struct {
	Portal    PortalSummary  `json:"portal"`
	Slots     []SlotResponse `json:"slots"`
	CheckedAt time.Time      `json:"checked_at"`
}

// PortalResponse describes a supported portal
type PortalResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	BaseURL          string   `json:"base_url"`
	RateLimitSeconds int64    `json:"rate_limit_seconds"`
	TaskTypes        []string `json:"task_types"`
	NavigationSteps  int      `json:"navigation_steps"`
}
