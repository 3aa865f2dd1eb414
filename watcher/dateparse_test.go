package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCalendarDate(t *testing.T) {
	now := time.Date(2025, time.July, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		want time.Time
		ok   bool
	}{
		{"bare day later this month", "15", time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC), true},
		{"month abbreviation in the past rolls over", "15 ene", time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC), true},
		{"upper case month", "3 SEP", time.Date(2025, time.September, 3, 0, 0, 0, 0, time.UTC), true},
		{"weekday name shadows month", "Martes 22 agosto", time.Date(2025, time.March, 22, 0, 0, 0, 0, time.UTC).AddDate(1, 0, 0), true},
		{"bare day earlier this month rolls over", "2", time.Date(2026, time.July, 2, 0, 0, 0, 0, time.UTC), true},
		{"today stays this year", "10", time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC), true},
		{"slashed numeric uses first number", "15/01", time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC), true},
		{"surrounding whitespace", "  28 dic \n", time.Date(2025, time.December, 28, 0, 0, 0, 0, time.UTC), true},
		{"no digits", "n/a", time.Time{}, false},
		{"empty", "", time.Time{}, false},
		{"day zero", "0 ene", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCalendarDate(tt.text, now)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
			}
		})
	}
}

func TestParseCalendarDateYearBoundary(t *testing.T) {
	now := time.Date(2025, time.December, 30, 18, 0, 0, 0, time.UTC)

	got, ok := ParseCalendarDate("5 ene", now)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), got)

	got, ok = ParseCalendarDate("31", now)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), got)
}
