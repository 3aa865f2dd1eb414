package watcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/expanova/cita-watcher/common/browser"
	"github.com/expanova/cita-watcher/portals"
	"github.com/rs/zerolog/log"
)

// Extractor reads available slots from a page showing a portal calendar.
type Extractor struct {
	Timeout time.Duration
	// Settle is the pause after clicking a date before time slots are read.
	Settle   time.Duration
	MaxDates int
	Now      func() time.Time
}

// Extract returns one slot per time entry of each of the first MaxDates
// parseable dates. A calendar that never shows a date yields no slots and
// no error.
func (e Extractor) Extract(ctx context.Context, page browser.Page, sel portals.Selectors, location string) ([]Slot, error) {
	if err := page.WaitFor(sel.DateSlots, e.Timeout); err != nil {
		log.Debug().Err(err).Str("selector", sel.DateSlots).Msg("No date slots visible")
		return nil, nil
	}

	dates, err := page.Elements(sel.DateSlots)
	if err != nil {
		return nil, fmt.Errorf("collect date slots: %w", err)
	}
	if e.MaxDates > 0 && len(dates) > e.MaxDates {
		dates = dates[:e.MaxDates]
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	var slots []Slot
	for i, el := range dates {
		found, err := e.extractDate(ctx, page, el, sel.TimeSlots, location, now())
		if err != nil {
			if ctx.Err() != nil {
				return slots, ctx.Err()
			}
			log.Warn().Err(err).Int("index", i).Msg("Skipping date slot")
			continue
		}
		slots = append(slots, found...)
	}
	return slots, nil
}

func (e Extractor) extractDate(ctx context.Context, page browser.Page, el browser.Element, timeSelector, location string, now time.Time) ([]Slot, error) {
	text, err := el.Text()
	if err != nil {
		return nil, fmt.Errorf("read date text: %w", err)
	}
	date, ok := ParseCalendarDate(strings.TrimSpace(text), now)
	if !ok {
		log.Debug().Str("text", text).Msg("Unparseable calendar date")
		return nil, nil
	}

	if err := el.Click(e.Timeout); err != nil {
		return nil, fmt.Errorf("click date %q: %w", text, err)
	}
	if err := sleep(ctx, e.Settle); err != nil {
		return nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	times, err := textsOf(html, timeSelector)
	if err != nil {
		return nil, err
	}

	url := page.URL()
	slots := make([]Slot, 0, len(times))
	for _, t := range times {
		slots = append(slots, Slot{
			Date:      date,
			Time:      t,
			Location:  location,
			Available: true,
			URL:       url,
		})
	}
	return slots, nil
}

// textsOf returns the trimmed, non-empty text of every element matching selector.
func textsOf(html, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var texts []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			texts = append(texts, t)
		}
	})
	return texts, nil
}
