package ticket

import (
	"strconv"
	"strings"
	"time"
)

// FallbackPolicy decides what an unreadable date becomes.
type FallbackPolicy int

const (
	// UseCurrentTime substitutes the processing time. Used for the input
	// and reported dates, which every ticket must carry.
	UseCurrentTime FallbackPolicy = iota

	// LeaveAbsent leaves the date unset. Used for the close date.
	LeaveAbsent
)

// String implements fmt.Stringer.
func (p FallbackPolicy) String() string {
	switch p {
	case UseCurrentTime:
		return "use_current_time"
	case LeaveAbsent:
		return "leave_absent"
	default:
		return "unknown"
	}
}

// DateStrategy is one way of reading a date string. Strategies are tried in
// order until one succeeds.
type DateStrategy struct {
	Name  string
	Parse func(s string, loc *time.Location) (time.Time, bool)
}

// DateStrategies is the ordered list ParseTimestamp walks. Day-first comes
// first because the sheets are kept in Indonesian locale; the layout list
// is the last resort for ISO and month-first values.
var DateStrategies = []DateStrategy{
	{Name: "day_first", Parse: parseDayFirst},
	{Name: "layout", Parse: parseLayouts},
}

// fallbackLayouts are tried against the whole trimmed string.
var fallbackLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"2 January 2006 15:04",
	"2 January 2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ParseTimestamp reads s with each of DateStrategies in turn. It reports
// false when s is blank or no strategy understood it.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, strategy := range DateStrategies {
		if t, ok := strategy.Parse(s, loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDayFirst reads "dd/mm/yyyy[ HH:MM[:SS]]". '-' is accepted as date
// separator and '.' as time separator. Seconds are ignored.
func parseDayFirst(s string, loc *time.Location) (time.Time, bool) {
	datePart, timePart, _ := strings.Cut(s, " ")
	parts := strings.Split(strings.ReplaceAll(datePart, "-", "/"), "/")
	if len(parts) < 3 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}
	if year >= 0 && year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > daysIn(time.Month(month), year) {
		return time.Time{}, false
	}

	hour, minute := clock(timePart)
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), true
}

// clock reads "HH:MM" or "HH.MM" from the start of s. Missing or unreadable
// pieces are 0.
func clock(s string) (hour, minute int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0
	}
	s, _, _ = strings.Cut(s, " ")
	pieces := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == '.' })
	if len(pieces) > 0 {
		if h, err := strconv.Atoi(pieces[0]); err == nil && h >= 0 && h < 24 {
			hour = h
		}
	}
	if len(pieces) > 1 {
		if m, err := strconv.Atoi(pieces[1]); err == nil && m >= 0 && m < 60 {
			minute = m
		}
	}
	return hour, minute
}

func parseLayouts(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
