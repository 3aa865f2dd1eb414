package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBrowserClosed is returned when a page is requested after Close.
	ErrBrowserClosed = errors.New("browser closed")
	// ErrElementNotFound is returned when a selector matched nothing before its timeout.
	ErrElementNotFound = errors.New("element not found")
)

// Browser is a shared headless browser process. Pages opened from it are
// owned by the caller and must be closed.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single browser tab. Every blocking call is bounded by a timeout.
type Page interface {
	SetUserAgent(userAgent string) error
	Navigate(url string, timeout time.Duration) error
	Click(selector string, timeout time.Duration) error
	// Select chooses the option whose value attribute equals value.
	Select(selector, value string, timeout time.Duration) error
	Input(selector, text string, timeout time.Duration) error
	WaitFor(selector string, timeout time.Duration) error
	// Elements returns the elements currently matching selector without waiting.
	Elements(selector string) ([]Element, error)
	HTML() (string, error)
	URL() string
	Screenshot() ([]byte, error)
	Close() error
}

// Element is a DOM node on a Page.
type Element interface {
	Text() (string, error)
	Click(timeout time.Duration) error
}
