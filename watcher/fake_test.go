package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/expanova/cita-watcher/common/browser"
)

// fakePage records every call and serves a scripted calendar.
type fakePage struct {
	mu        sync.Mutex
	calls     []string
	dates     []string
	html      string
	url       string
	userAgent string
	failOn    map[string]error
	closed    bool
}

func newFakePage(html string, dates ...string) *fakePage {
	return &fakePage{
		dates:  dates,
		html:   html,
		url:    "https://sede.policia.gob.es/cita",
		failOn: map[string]error{},
	}
}

func (p *fakePage) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.failOn[call]
}

func (p *fakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePage) SetUserAgent(ua string) error {
	p.mu.Lock()
	p.userAgent = ua
	p.mu.Unlock()
	return p.record("useragent")
}

func (p *fakePage) Navigate(url string, _ time.Duration) error {
	return p.record("navigate " + url)
}

func (p *fakePage) Click(selector string, _ time.Duration) error {
	return p.record("click " + selector)
}

func (p *fakePage) Select(selector, value string, _ time.Duration) error {
	return p.record(fmt.Sprintf("select %s=%s", selector, value))
}

func (p *fakePage) Input(selector, text string, _ time.Duration) error {
	return p.record(fmt.Sprintf("input %s=%s", selector, text))
}

func (p *fakePage) WaitFor(selector string, _ time.Duration) error {
	return p.record("wait " + selector)
}

func (p *fakePage) Elements(selector string) ([]browser.Element, error) {
	if err := p.record("elements " + selector); err != nil {
		return nil, err
	}
	els := make([]browser.Element, 0, len(p.dates))
	for _, d := range p.dates {
		els = append(els, &fakeElement{page: p, text: d})
	}
	return els, nil
}

func (p *fakePage) HTML() (string, error) {
	return p.html, p.record("html")
}

func (p *fakePage) URL() string {
	return p.url
}

func (p *fakePage) Screenshot() ([]byte, error) {
	return []byte("png"), p.record("screenshot")
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.record("close")
}

type fakeElement struct {
	page *fakePage
	text string
}

func (e *fakeElement) Text() (string, error) {
	return e.text, nil
}

func (e *fakeElement) Click(time.Duration) error {
	return e.page.record("date " + e.text)
}

// fakeBrowser hands out pages built by newPage and counts them.
type fakeBrowser struct {
	mu      sync.Mutex
	newPage func() *fakePage
	pages   []*fakePage
	err     error
}

func (b *fakeBrowser) NewPage(context.Context) (browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		b.pages = append(b.pages, nil)
		return nil, b.err
	}
	p := b.newPage()
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *fakeBrowser) Close() error { return nil }

func (b *fakeBrowser) Opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pages)
}

func (b *fakeBrowser) Last() *fakePage {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pages) == 0 {
		return nil
	}
	return b.pages[len(b.pages)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier keeps every notification it receives.
type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]Slot
	err   error
}

func (n *recordingNotifier) AppointmentFound(_ context.Context, _ Watcher, slots []Slot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, slots)
	return n.err
}

func (n *recordingNotifier) Calls() [][]Slot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]Slot(nil), n.calls...)
}

type memoryStore struct {
	mu       sync.Mutex
	watchers map[string]Watcher
	deleted  []string
}

func newMemoryStore(ws ...Watcher) *memoryStore {
	s := &memoryStore{watchers: map[string]Watcher{}}
	for _, w := range ws {
		s.watchers[w.ID] = w
	}
	return s
}

func (s *memoryStore) Save(_ context.Context, w Watcher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[w.ID] = w
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *memoryStore) UpdateLastChecked(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.watchers[id]
	if !ok {
		return errors.New("no such watcher")
	}
	w.LastChecked = at
	s.watchers[id] = w
	return nil
}

func (s *memoryStore) ListAll(context.Context) ([]Watcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		out = append(out, w)
	}
	return out, nil
}

func (s *memoryStore) Get(id string) (Watcher, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.watchers[id]
	return w, ok
}

// gatedStore blocks Save while armed until release is closed.
type gatedStore struct {
	*memoryStore
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		memoryStore: newMemoryStore(),
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
}

func (g *gatedStore) Save(ctx context.Context, w Watcher) error {
	if g.armed.CompareAndSwap(true, false) {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.memoryStore.Save(ctx, w)
}

type memoryArtifacts struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (a *memoryArtifacts) Upload(_ context.Context, name string, content []byte, _ string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	a.objects[name] = content
	return name, nil
}
