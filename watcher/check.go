package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/expanova/cita-watcher/common"
	"github.com/expanova/cita-watcher/common/constants"
	"github.com/expanova/cita-watcher/common/logger"
	"github.com/expanova/cita-watcher/common/metrics"
	"github.com/expanova/cita-watcher/common/ratelimit"
	"github.com/expanova/cita-watcher/common/work"
	"github.com/expanova/cita-watcher/portals"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// navigationTimeout bounds loading a portal's landing page.
const navigationTimeout = 30 * time.Second

// check runs one cycle for a watcher: rate limit, scrape, filter, notify.
// It never returns an error; every failure is logged and reported as an outcome.
func (s *Scheduler) check(ctx context.Context, id string) CheckOutcome {
	w, ok := s.snapshot(id)
	if !ok || !w.Active {
		return OutcomeSkipped
	}
	ctx = logger.WithWatcherID(ctx, id)

	portal, ok := s.registry.Classify(w.PortalURL).Get()
	if !ok {
		log.Warn().Ctx(ctx).Str("watcherID", id).Str("portalURL", w.PortalURL).Msg("Unknown portal, skipping check")
		s.setOutcome(id, OutcomeUnknownPortal)
		metrics.ObserveCheck("unknown", string(OutcomeUnknownPortal), 0)
		return OutcomeUnknownPortal
	}
	portalID := string(portal.ID)

	now := s.now()
	if !w.LastChecked.IsZero() && now.Sub(w.LastChecked) < portal.RateLimit {
		log.Debug().Str("watcherID", id).Str("portal", portalID).Msg("Rate limited, skipping check")
		metrics.ObserveCheck(portalID, string(OutcomeRateLimited), 0)
		return OutcomeRateLimited
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, ratelimit.Key(portalID), portal.RateLimit)
		switch {
		case err != nil:
			log.Warn().Ctx(ctx).Err(err).Str("portal", portalID).Msg("Portal limiter unavailable, checking anyway")
		case !allowed:
			log.Debug().Str("watcherID", id).Str("portal", portalID).Msg("Portal checked recently by another watcher")
			metrics.ObserveCheck(portalID, string(OutcomePortalBusy), 0)
			return OutcomePortalBusy
		}
	}

	log.Info().Str("watcherID", id).Str("portal", portal.Name).Msg("Checking appointments")

	started := time.Now()
	slots, shot, err := s.scrape(ctx, portal, w.Location, s.artifacts != nil && s.cfg.CaptureSnapshots)
	s.touch(ctx, id, now)

	outcome := s.conclude(ctx, w, portal, slots, shot, err)
	s.setOutcome(id, outcome)
	metrics.ObserveCheck(portalID, string(outcome), time.Since(started))
	return outcome
}

func (s *Scheduler) conclude(ctx context.Context, w Watcher, portal portals.Portal, slots []Slot, shot []byte, scrapeErr error) CheckOutcome {
	if scrapeErr != nil {
		log.Error().Ctx(ctx).Err(scrapeErr).Str("watcherID", w.ID).Str("portal", string(portal.ID)).Msg("Check failed")
		s.event(ctx, w.ID, constants.CheckFailed, "Check failed", map[string]any{
			"portal": portal.ID,
			"error":  scrapeErr.Error(),
		})
		return OutcomeFailed
	}

	metrics.AddSlotsFound(string(portal.ID), len(slots))
	matches := FilterSlots(slots, w)
	if len(matches) == 0 {
		s.event(ctx, w.ID, constants.CheckCompleted, "No matching appointments", map[string]any{
			"portal": portal.ID,
			"slots":  len(slots),
		})
		return OutcomeNoMatch
	}

	log.Info().
		Str("watcherID", w.ID).
		Str("portal", portal.Name).
		Int("matches", len(matches)).
		Msg("Found preferred appointments")

	if object := s.storeSnapshot(ctx, w, portal, shot); object != "" {
		for i := range matches {
			matches[i].Snapshot = object
		}
	}

	err := s.notify(ctx, w, matches)
	metrics.ObserveNotification(err)
	if err != nil {
		log.Error().Ctx(ctx).Err(err).Str("watcherID", w.ID).Msg("Appointment notification failed")
	}

	s.event(ctx, w.ID, constants.AppointmentFound, "Matching appointments found", map[string]any{
		"portal":   portal.ID,
		"matches":  len(matches),
		"notified": err == nil,
	})
	return OutcomeMatched
}

// scrape opens a page, walks the portal's navigation script and extracts
// the calendar. The page is always closed before returning.
func (s *Scheduler) scrape(ctx context.Context, portal portals.Portal, location string, capture bool) (slots []Slot, shot []byte, err error) {
	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Warn().Ctx(ctx).Err(cerr).Str("portal", string(portal.ID)).Msg("Failed to close page")
		}
	}()

	if err := page.SetUserAgent(s.cfg.UserAgent); err != nil {
		return nil, nil, fmt.Errorf("set user agent: %w", err)
	}

	if err := page.Navigate(portal.BaseURL, navigationTimeout); err != nil {
		return nil, nil, fmt.Errorf("navigate to %s: %w", portal.BaseURL, err)
	}

	if err := s.navigator.Run(ctx, page, portal.Navigation, location); err != nil {
		if banner := portalErrorBanner(page, portal.Selectors.ErrorMessage); banner != "" {
			log.Warn().Ctx(ctx).Str("portal", string(portal.ID)).Str("banner", banner).Msg("Portal reported an error")
		}
		return nil, nil, err
	}

	slots, err = s.extractor.Extract(ctx, page, portal.Selectors, location)
	if err != nil {
		return nil, nil, fmt.Errorf("extract slots: %w", err)
	}

	if capture && len(slots) > 0 {
		shot, err = page.Screenshot()
		if err != nil {
			log.Warn().Ctx(ctx).Err(err).Str("portal", string(portal.ID)).Msg("Failed to capture page")
			shot = nil
		}
	}
	return slots, shot, nil
}

// storeSnapshot uploads a page capture and returns its object name, or ""
// when there is nothing to store or the upload failed.
func (s *Scheduler) storeSnapshot(ctx context.Context, w Watcher, portal portals.Portal, shot []byte) string {
	if s.artifacts == nil || len(shot) == 0 {
		return ""
	}

	name := fmt.Sprintf("%s/%s/%s/%d.png", common.SnapshotPrefix, portal.ID, w.ID, s.now().Unix())
	object, err := s.artifacts.Upload(ctx, name, shot, "image/png")
	if err != nil {
		log.Warn().Ctx(ctx).Err(err).Str("watcherID", w.ID).Msg("Failed to upload page capture")
		return ""
	}
	return object
}

// notify invokes the notifier, converting a panic into an error.
func (s *Scheduler) notify(ctx context.Context, w Watcher, slots []Slot) (err error) {
	if s.notifier == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panicked: %v", r)
		}
	}()
	return s.notifier.AppointmentFound(ctx, w, slots)
}

// CheckNow runs a one-off availability check against the portal serving
// portalURL and returns every visible slot, unfiltered.
func (s *Scheduler) CheckNow(ctx context.Context, portalURL, location string) ([]Slot, error) {
	portal, ok := s.registry.Classify(portalURL).Get()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPortal, portalURL)
	}
	if location == "" {
		location = s.cfg.DefaultLocation
	}

	s.mu.Lock()
	started, closed := s.started, s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrSchedulerClosed
	}
	if !started {
		return nil, ErrSchedulerNotStarted
	}

	limiter := lo.Ternary[PortalLimiter](s.limiter != nil, s.limiter, s.adhoc)
	allowed, err := limiter.Allow(ctx, ratelimit.Key(string(portal.ID)), portal.RateLimit)
	switch {
	case err != nil:
		log.Warn().Ctx(ctx).Err(err).Str("portal", string(portal.ID)).Msg("Portal limiter unavailable, checking anyway")
	case !allowed:
		return nil, fmt.Errorf("%w: %s", ErrPortalBusy, portal.ID)
	}

	type result struct {
		slots []Slot
		err   error
	}
	done := make(chan result, 1)

	task, err := work.NewTask(
		func(ctx context.Context) (CheckOutcome, error) {
			slots, _, err := s.scrape(ctx, portal, location, false)
			done <- result{slots: slots, err: err}
			if err != nil {
				return OutcomeFailed, err
			}
			return OutcomeNoMatch, nil
		},
		work.WithTimeout[CheckOutcome](s.cfg.CheckTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create check task: %w", err)
	}
	if err := s.pool.AddTask(ctx, task); err != nil {
		return nil, fmt.Errorf("queue check: %w", err)
	}

	select {
	case r := <-done:
		return r.slots, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
