package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/expanova/cita-watcher/common/browser"
	"github.com/expanova/cita-watcher/portals"
	"github.com/rs/zerolog/log"
)

// Navigator walks a page through a portal's navigation script.
type Navigator struct {
	// Timeout bounds each element lookup and wait.
	Timeout time.Duration
	// Settle is the pause after every step for client-side rendering.
	Settle time.Duration
}

// Run executes steps in order. The first failing step aborts the run.
func (n Navigator) Run(ctx context.Context, page browser.Page, steps []portals.NavigationStep, location string) error {
	for i, step := range steps {
		log.Debug().
			Int("step", i).
			Str("action", string(step.Action)).
			Str("selector", step.Selector).
			Msg("Executing navigation step")

		if err := n.execute(page, step, location); err != nil {
			return fmt.Errorf("navigation step %d (%s %s): %w", i, step.Action, step.Selector, err)
		}
		if err := sleep(ctx, n.Settle); err != nil {
			return err
		}
	}
	return nil
}

func (n Navigator) execute(page browser.Page, step portals.NavigationStep, location string) error {
	value := step.ResolveValue(location)

	switch step.Action {
	case portals.ActionClick:
		if err := page.Click(step.Selector, n.Timeout); err != nil {
			return err
		}
	case portals.ActionSelect:
		if value != "" {
			if err := page.Select(step.Selector, value, n.Timeout); err != nil {
				return err
			}
		}
	case portals.ActionInput:
		if value != "" {
			if err := page.Input(step.Selector, value, n.Timeout); err != nil {
				return err
			}
		}
	case portals.ActionWait:
		return page.WaitFor(step.Selector, n.Timeout)
	default:
		return fmt.Errorf("%w: %q", portals.ErrUnknownAction, step.Action)
	}

	if step.WaitFor != "" {
		return page.WaitFor(step.WaitFor, n.Timeout)
	}
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
