package watcher

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dayPattern = regexp.MustCompile(`\d{1,2}`)

// spanishMonths is ordered; the first abbreviation found in the text wins.
var spanishMonths = []struct {
	abbr  string
	month time.Month
}{
	{"ene", time.January},
	{"feb", time.February},
	{"mar", time.March},
	{"abr", time.April},
	{"may", time.May},
	{"jun", time.June},
	{"jul", time.July},
	{"ago", time.August},
	{"sep", time.September},
	{"oct", time.October},
	{"nov", time.November},
	{"dic", time.December},
}

// ParseCalendarDate turns portal calendar text ("15", "15 ENE", "15/01")
// into a date relative to now. The first one or two digit number is the
// day. A Spanish month abbreviation anywhere in the text selects the month,
// otherwise the current month is used. Dates before today roll over to the
// next year. Text without a usable day yields false.
func ParseCalendarDate(text string, now time.Time) (time.Time, bool) {
	match := dayPattern.FindString(text)
	if match == "" {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(match)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}

	month := now.Month()
	lower := strings.ToLower(text)
	for _, m := range spanishMonths {
		if strings.Contains(lower, m.abbr) {
			month = m.month
			break
		}
	}

	loc := now.Location()
	date := time.Date(now.Year(), month, day, 0, 0, 0, 0, loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if date.Before(today) {
		date = time.Date(now.Year()+1, month, day, 0, 0, 0, 0, loc)
	}
	return date, true
}

// sameDay compares the calendar day of two dates.
func sameDay(a, b time.Time) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}
