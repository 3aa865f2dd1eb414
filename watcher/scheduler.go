package watcher

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/expanova/cita-watcher/common/browser"
	"github.com/expanova/cita-watcher/common/config"
	"github.com/expanova/cita-watcher/common/constants"
	"github.com/expanova/cita-watcher/common/logger"
	"github.com/expanova/cita-watcher/common/metrics"
	"github.com/expanova/cita-watcher/common/ratelimit"
	"github.com/expanova/cita-watcher/common/work"
	"github.com/expanova/cita-watcher/portals"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

const poolID = "portal-checks"

// Scheduler owns the watchers and runs one periodic job per active watcher.
// Checks from all jobs share a worker pool that bounds the number of open
// browser pages. All methods are safe for concurrent use.
type Scheduler struct {
	cfg      config.WatcherConfig
	registry *portals.Registry
	browser  browser.Browser
	notifier Notifier
	store    Store
	limiter  PortalLimiter
	// adhoc throttles CheckNow per portal when no shared limiter is set.
	adhoc     PortalLimiter
	artifacts ArtifactStore
	events    EventLog
	now       func() time.Time

	navigator Navigator
	extractor Extractor
	pool      *work.Pool[CheckOutcome]

	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	closed  bool
	drained chan struct{}
}

type entry struct {
	watcher     Watcher
	lastOutcome CheckOutcome
	job         *job
	// checking is set while a check for this watcher is queued or running.
	checking atomic.Bool
	// removed is guarded by Scheduler.mu.
	removed bool
	// storeMu orders the store writes of one watcher.
	storeMu sync.Mutex
}

// job is the periodic task of one watcher. stop returns once the ticker
// goroutine has exited.
type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (j *job) stop() {
	j.cancel()
	<-j.done
}

// Option configures optional Scheduler collaborators.
type Option func(*Scheduler)

func WithStore(store Store) Option {
	return func(s *Scheduler) {
		s.store = store
	}
}

// WithPortalLimiter enables portal-wide rate limiting on top of the
// per-watcher interval.
func WithPortalLimiter(limiter PortalLimiter) Option {
	return func(s *Scheduler) {
		s.limiter = limiter
	}
}

func WithArtifactStore(artifacts ArtifactStore) Option {
	return func(s *Scheduler) {
		s.artifacts = artifacts
	}
}

func WithEventLog(events EventLog) Option {
	return func(s *Scheduler) {
		s.events = events
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a scheduler. Jobs only run after Start.
func NewScheduler(cfg config.Config, registry *portals.Registry, b browser.Browser, notifier Notifier, opts ...Option) (*Scheduler, error) {
	wc := cfg.Watcher
	if wc.TickInterval <= 0 {
		wc.TickInterval = 5 * time.Minute
	}

	maxPages := int(cfg.Browser.MaxPages)
	if maxPages <= 0 {
		maxPages = 1
	}
	poolCfg := work.DefaultPoolConfig()
	poolCfg.NumWorkers = maxPages
	poolCfg.ResultChanSize = maxPages * 2
	poolCfg.TaskTimeout = wc.CheckTimeout
	pool, err := work.NewWorkerPoolWithConfig[CheckOutcome](poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create check pool: %w", err)
	}

	s := &Scheduler{
		cfg:      wc,
		registry: registry,
		browser:  b,
		notifier: notifier,
		store:    nopStore{},
		now:      time.Now,
		pool:     pool,
		entries:  make(map[string]*entry),
		drained:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.adhoc = ratelimit.NewMemoryLimiterWithClock(s.now)
	s.navigator = Navigator{Timeout: wc.SelectorTimeout, Settle: wc.StepSettle}
	s.extractor = Extractor{
		Timeout:  wc.SelectorTimeout,
		Settle:   wc.DateSettle,
		MaxDates: int(wc.MaxDates),
		Now:      s.now,
	}
	return s, nil
}

// Start restores persisted watchers and starts the jobs of the active ones.
func (s *Scheduler) Start(ctx context.Context) error {
	restored, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("restore watchers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}
	if s.started {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.pool.Start(s.ctx, poolID)
	go s.drain()

	for _, w := range restored {
		if _, ok := s.entries[w.ID]; !ok {
			s.entries[w.ID] = &entry{watcher: w}
		}
	}
	for id, e := range s.entries {
		if e.watcher.Active {
			e.job = s.startJob(id)
		}
	}
	s.started = true

	log.Info().Int("watchers", len(s.entries)).Msg("Scheduler started")
	s.updateActiveGauge()
	return nil
}

// Close stops every job and waits for them to exit. Checks in flight are
// cancelled and awaited; queued checks are dropped.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	jobs := make([]*job, 0, len(s.entries))
	for _, e := range s.entries {
		if e.job != nil {
			jobs = append(jobs, e.job)
			e.job = nil
		}
	}
	s.mu.Unlock()

	for _, j := range jobs {
		j.stop()
	}
	if started {
		s.cancel()
	}
	s.pool.Stop()
	if started {
		<-s.drained
	}

	metrics.SetActiveWatchers(0)
	log.Info().Int("jobs", len(jobs)).Msg("Scheduler stopped")
	return nil
}

// Add registers a watcher and starts its schedule.
func (s *Scheduler) Add(ctx context.Context, n NewWatcher) (Watcher, error) {
	if err := n.validate(); err != nil {
		return Watcher{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Watcher{}, fmt.Errorf("generate watcher id: %w", err)
	}

	location := n.Location
	if location == "" {
		location = s.cfg.DefaultLocation
	}

	w := Watcher{
		ID:             id.String(),
		UserID:         n.UserID,
		TaskID:         n.TaskID,
		PortalURL:      n.PortalURL,
		Location:       location,
		PreferredDates: n.PreferredDates,
		PreferredTimes: n.PreferredTimes,
		Active:         true,
		CreatedAt:      s.now(),
	}

	if s.registry.Classify(w.PortalURL).IsAbsent() {
		log.Warn().
			Str("watcherID", w.ID).
			Str("portalURL", w.PortalURL).
			Msg("Watcher targets an unsupported portal and will never be checked")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Watcher{}, ErrSchedulerClosed
	}
	e := &entry{watcher: w}
	if s.started {
		e.job = s.startJob(w.ID)
	}
	s.entries[w.ID] = e
	s.updateActiveGauge()
	s.mu.Unlock()

	s.persist(ctx, e)
	s.event(ctx, w.ID, constants.WatcherCreated, "Watcher created", map[string]any{
		"portalURL": w.PortalURL,
		"location":  w.Location,
	})
	return w, nil
}

// Remove stops the watcher's schedule and discards it. A check already in
// flight completes but its watcher is gone afterwards.
func (s *Scheduler) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWatcherNotFound, id)
	}
	delete(s.entries, id)
	e.removed = true
	j := e.job
	e.job = nil
	s.updateActiveGauge()
	s.mu.Unlock()

	if j != nil {
		j.stop()
	}

	e.storeMu.Lock()
	err := s.store.Delete(ctx, id)
	e.storeMu.Unlock()
	if err != nil {
		log.Error().Ctx(logger.WithWatcherID(ctx, id)).Err(err).Str("watcherID", id).Msg("Failed to delete watcher from store")
	}
	s.event(ctx, id, constants.WatcherRemoved, "Watcher removed", nil)
	return nil
}

// Pause stops the schedule and keeps the watcher. Pausing a paused watcher
// is a no-op.
func (s *Scheduler) Pause(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWatcherNotFound, id)
	}
	if !e.watcher.Active {
		s.mu.Unlock()
		return nil
	}
	e.watcher.Active = false
	j := e.job
	e.job = nil
	s.updateActiveGauge()
	s.mu.Unlock()

	if j != nil {
		j.stop()
	}

	s.persist(ctx, e)
	s.event(ctx, id, constants.WatcherPaused, "Watcher paused", nil)
	return nil
}

// Resume restarts a paused watcher. Resuming an active watcher is a no-op.
func (s *Scheduler) Resume(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWatcherNotFound, id)
	}
	if e.watcher.Active {
		s.mu.Unlock()
		return nil
	}
	e.watcher.Active = true
	if s.started && !s.closed {
		e.job = s.startJob(id)
	}
	s.updateActiveGauge()
	s.mu.Unlock()

	s.persist(ctx, e)
	s.event(ctx, id, constants.WatcherResumed, "Watcher resumed", nil)
	return nil
}

// Status reports whether the watcher's schedule is running and when it
// was last checked.
func (s *Scheduler) Status(id string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrWatcherNotFound, id)
	}

	last := mo.None[time.Time]()
	if !e.watcher.LastChecked.IsZero() {
		last = mo.Some(e.watcher.LastChecked)
	}
	return Status{
		Active:      e.watcher.Active && e.job != nil,
		LastChecked: last,
		LastOutcome: e.lastOutcome,
	}, nil
}

func (s *Scheduler) Get(id string) (Watcher, error) {
	w, ok := s.snapshot(id)
	if !ok {
		return Watcher{}, fmt.Errorf("%w: %s", ErrWatcherNotFound, id)
	}
	return w, nil
}

// List returns the watchers of a user, oldest first.
func (s *Scheduler) List(userID string) []Watcher {
	s.mu.Lock()
	all := lo.MapToSlice(s.entries, func(_ string, e *entry) Watcher { return e.watcher })
	s.mu.Unlock()

	owned := lo.Filter(all, func(w Watcher, _ int) bool { return w.UserID == userID })
	slices.SortFunc(owned, func(a, b Watcher) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return owned
}

// startJob must be called with s.mu held.
func (s *Scheduler) startJob(id string) *job {
	ctx, cancel := context.WithCancel(s.ctx)
	j := &job{cancel: cancel, done: make(chan struct{})}
	go s.run(ctx, id, j.done)
	return j
}

func (s *Scheduler) run(ctx context.Context, id string, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueue(ctx, id)
		}
	}
}

// enqueue submits a check for id unless one is already pending.
func (s *Scheduler) enqueue(ctx context.Context, id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	if !e.checking.CompareAndSwap(false, true) {
		log.Debug().Str("watcherID", id).Msg("Previous check still running, skipping tick")
		return
	}

	task, err := work.NewTask(
		func(ctx context.Context) (CheckOutcome, error) {
			defer e.checking.Store(false)
			return s.check(ctx, id), nil
		},
		work.WithID[CheckOutcome](id),
		work.WithTimeout[CheckOutcome](s.cfg.CheckTimeout),
	)
	if err != nil {
		e.checking.Store(false)
		log.Error().Ctx(logger.WithWatcherID(ctx, id)).Err(err).Str("watcherID", id).Msg("Failed to create check task")
		return
	}

	if err := s.pool.AddTask(ctx, task); err != nil {
		e.checking.Store(false)
		if ctx.Err() == nil {
			log.Error().Ctx(logger.WithWatcherID(ctx, id)).Err(err).Str("watcherID", id).Msg("Failed to queue check")
		}
	}
}

// drain consumes pool results until the pool is stopped.
func (s *Scheduler) drain() {
	defer close(s.drained)
	for result := range s.pool.Results() {
		stats := s.pool.Stats()
		metrics.SetCheckQueue(stats.InQueue, stats.Running)
		if result.Error != nil {
			log.Error().Err(result.Error).Str("taskID", result.TaskID).Msg("Check task failed")
			continue
		}
		log.Debug().
			Str("taskID", result.TaskID).
			Str("outcome", string(result.Result)).
			Dur("duration", result.Duration).
			Msg("Check task finished")
	}
}

func (s *Scheduler) snapshot(id string) (Watcher, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Watcher{}, false
	}
	return e.watcher, true
}

// touch advances lastChecked to at. Earlier times are ignored so the
// timestamp never moves backwards.
func (s *Scheduler) touch(ctx context.Context, id string, at time.Time) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || !at.After(e.watcher.LastChecked) {
		s.mu.Unlock()
		return
	}
	e.watcher.LastChecked = at
	s.mu.Unlock()

	e.storeMu.Lock()
	defer e.storeMu.Unlock()
	if s.isRemoved(e) {
		return
	}
	if err := s.store.UpdateLastChecked(ctx, id, at); err != nil {
		log.Error().Ctx(logger.WithWatcherID(ctx, id)).Err(err).Str("watcherID", id).Msg("Failed to persist last check time")
	}
}

func (s *Scheduler) setOutcome(id string, outcome CheckOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		e.lastOutcome = outcome
	}
}

// persist saves the entry's current state. Writes of one watcher are
// serialized and each saves the latest state, so a slow Pause cannot
// overwrite a later Resume. Nothing is written once the watcher is removed.
func (s *Scheduler) persist(ctx context.Context, e *entry) {
	e.storeMu.Lock()
	defer e.storeMu.Unlock()

	s.mu.Lock()
	removed, w := e.removed, e.watcher
	s.mu.Unlock()
	if removed {
		return
	}
	if err := s.store.Save(ctx, w); err != nil {
		log.Error().Ctx(logger.WithWatcherID(ctx, w.ID)).Err(err).Str("watcherID", w.ID).Msg("Failed to persist watcher")
	}
}

func (s *Scheduler) isRemoved(e *entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.removed
}

func (s *Scheduler) event(ctx context.Context, id string, eventType constants.EventType, msg string, details map[string]any) {
	if s.events == nil {
		return
	}
	err := s.events.Log(ctx, logger.LogEvent{
		WatcherID: id,
		EventType: eventType,
		Message:   msg,
		Details:   details,
	})
	if err != nil {
		log.Warn().Err(err).Str("watcherID", id).Str("eventType", string(eventType)).Msg("Failed to record watcher event")
	}
}

// updateActiveGauge must be called with s.mu held.
func (s *Scheduler) updateActiveGauge() {
	metrics.SetActiveWatchers(lo.CountBy(lo.Values(s.entries), func(e *entry) bool {
		return e.job != nil
	}))
}
