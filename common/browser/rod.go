package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/expanova/cita-watcher/common/config"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// closeTimeout bounds closing a tab. Close does not use the check's
// context, which may already be done.
const closeTimeout = 5 * time.Second

// RodBrowser implements Browser on top of a single Chromium process driven
// by go-rod. The process is launched on the first NewPage call.
type RodBrowser struct {
	cfg config.BrowserConfig

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	closed   bool
}

// NewRodBrowser creates a lazily launched browser.
func NewRodBrowser(cfg config.BrowserConfig) *RodBrowser {
	return &RodBrowser{cfg: cfg}
}

func (b *RodBrowser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrowserClosed
	}
	if b.browser != nil {
		return b.browser, nil
	}

	log.Info().Bool("headless", b.cfg.Headless).Msg("Launching browser")

	l := launcher.New().Headless(b.cfg.Headless)
	if b.cfg.Bin != "" {
		l = l.Bin(b.cfg.Bin)
	}
	for _, f := range b.cfg.Flags {
		name, value, _ := strings.Cut(strings.TrimPrefix(f, "--"), "=")
		if value != "" {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	b.browser = browser
	b.launcher = l
	log.Info().Msg("Browser setup complete")
	return browser, nil
}

// NewPage opens a blank tab bound to ctx.
func (b *RodBrowser) NewPage(ctx context.Context) (Page, error) {
	browser, err := b.connect()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &rodPage{page: page.Context(ctx), root: page}, nil
}

// Close tears down the browser process. Further NewPage calls fail.
func (b *RodBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.browser == nil {
		return nil
	}

	err := b.browser.Close()
	b.launcher.Kill()
	b.browser = nil
	log.Info().Msg("Browser closed")
	return err
}

type rodPage struct {
	// page carries the caller's context; root does not and is only used to close.
	page *rod.Page
	root *rod.Page
}

func (p *rodPage) SetUserAgent(userAgent string) error {
	return p.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent})
}

func (p *rodPage) Navigate(url string, timeout time.Duration) error {
	page := p.page.Timeout(timeout)
	wait := page.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	wait()
	return nil
}

// element waits up to timeout for selector and returns it bound to the same deadline.
func (p *rodPage) element(selector string, timeout time.Duration) (*rod.Element, error) {
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
		}
		return nil, fmt.Errorf("find %s: %w", selector, err)
	}
	return el, nil
}

func (p *rodPage) Click(selector string, timeout time.Duration) error {
	el, err := p.element(selector, timeout)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) Select(selector, value string, timeout time.Duration) error {
	el, err := p.element(selector, timeout)
	if err != nil {
		return err
	}
	option := fmt.Sprintf("option[value=%s]", strconv.Quote(value))
	return el.Select([]string{option}, true, rod.SelectorTypeCSSSector)
}

func (p *rodPage) Input(selector, text string, timeout time.Duration) error {
	el, err := p.element(selector, timeout)
	if err != nil {
		return err
	}
	return el.Input(text)
}

func (p *rodPage) WaitFor(selector string, timeout time.Duration) error {
	_, err := p.element(selector, timeout)
	return err
}

func (p *rodPage) Elements(selector string) ([]Element, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

func (p *rodPage) HTML() (string, error) {
	return p.page.HTML()
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Screenshot() ([]byte, error) {
	return p.page.Screenshot(true, nil)
}

func (p *rodPage) Close() error {
	return p.root.Timeout(closeTimeout).Close()
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Click(timeout time.Duration) error {
	return e.el.Timeout(timeout).Click(proto.InputMouseButtonLeft, 1)
}
