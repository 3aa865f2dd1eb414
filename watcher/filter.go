package watcher

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// FilterSlots keeps the slots matching the watcher's preferred dates and
// times. An empty preference list leaves that dimension unconstrained.
func FilterSlots(slots []Slot, w Watcher) []Slot {
	return lo.Filter(slots, func(s Slot, _ int) bool {
		return matchesDate(s, w.PreferredDates) && matchesTime(s, w.PreferredTimes)
	})
}

func matchesDate(s Slot, preferred []time.Time) bool {
	if len(preferred) == 0 {
		return true
	}
	return lo.SomeBy(preferred, func(d time.Time) bool {
		return sameDay(d, s.Date)
	})
}

// matchesTime accepts containment in either direction so "10:00" matches
// "10:00-10:30" and "10:00 AM".
func matchesTime(s Slot, preferred []string) bool {
	if len(preferred) == 0 {
		return true
	}
	return lo.SomeBy(preferred, func(p string) bool {
		return strings.Contains(s.Time, p) || strings.Contains(p, s.Time)
	})
}
