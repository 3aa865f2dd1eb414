package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/expanova/cita-watcher/common/browser"
	"github.com/expanova/cita-watcher/portals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dgtSelectors = portals.Selectors{
	DateSlots: ".calendar-date.available",
	TimeSlots: ".hour-slot:not(.occupied)",
}

func testExtractor() Extractor {
	return Extractor{
		Timeout:  time.Second,
		MaxDates: 5,
		Now:      func() time.Time { return testNow },
	}
}

func TestExtractEmitsOneSlotPerTime(t *testing.T) {
	page := newFakePage(`<ul>
		<li class="hour-slot">09:00</li>
		<li class="hour-slot occupied">09:30</li>
		<li class="hour-slot"> </li>
		<li class="hour-slot">11:15</li>
	</ul>`, "15 ene")

	slots, err := testExtractor().Extract(context.Background(), page, dgtSelectors, "Madrid")
	require.NoError(t, err)
	require.Len(t, slots, 2)

	for _, s := range slots {
		assert.True(t, sameDay(day(2026, 1, 15), s.Date))
		assert.Equal(t, "Madrid", s.Location)
		assert.True(t, s.Available)
		assert.Equal(t, page.url, s.URL)
	}
	assert.Equal(t, "09:00", slots[0].Time)
	assert.Equal(t, "11:15", slots[1].Time)
}

func TestExtractCapsDates(t *testing.T) {
	page := newFakePage(`<span class="hour-slot">10:00</span>`, "11", "12", "13", "14", "15", "16", "17")

	slots, err := testExtractor().Extract(context.Background(), page, dgtSelectors, "Valencia")
	require.NoError(t, err)
	assert.Len(t, slots, 5)
	assert.NotContains(t, page.Calls(), "date 16")
	assert.NotContains(t, page.Calls(), "date 17")
}

func TestExtractSkipsBadDates(t *testing.T) {
	page := newFakePage(`<span class="hour-slot">10:00</span>`, "n/a", "12", "13")
	page.failOn["date 12"] = errors.New("detached node")

	slots, err := testExtractor().Extract(context.Background(), page, dgtSelectors, "Valencia")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, sameDay(day(2025, 7, 13), slots[0].Date))
	assert.NotContains(t, page.Calls(), "date n/a")
}

func TestExtractWithoutCalendarIsEmpty(t *testing.T) {
	page := newFakePage("")
	page.failOn["wait .calendar-date.available"] = browser.ErrElementNotFound

	slots, err := testExtractor().Extract(context.Background(), page, dgtSelectors, "Valencia")
	assert.NoError(t, err)
	assert.Empty(t, slots)
	assert.NotContains(t, page.Calls(), "elements .calendar-date.available")
}
