package period

import (
	"fmt"
	"time"
)

// Period names the query ranges exposed by the on-demand commands.
type Period string

const (
	Today     Period = "today"
	Yesterday Period = "yesterday"
	Week      Period = "week"
	Month     Period = "month"
)

// Parse validates a period name from user input.
func Parse(s string) (Period, error) {
	switch Period(s) {
	case Today, Yesterday, Week, Month:
		return Period(s), nil
	default:
		return "", fmt.Errorf("unknown period %q (want today, yesterday, week or month)", s)
	}
}

// Range returns the half-open interval [start, end) for a period, computed
// in loc. Day boundaries are local to loc; open-ended periods (today, week,
// month) end at now.
func Range(p Period, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch p {
	case Today:
		return midnight, now, nil
	case Yesterday:
		return midnight.AddDate(0, 0, -1), midnight, nil
	case Week:
		// ISO convention: the week starts on Monday.
		offset := (int(local.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset), now, nil
	case Month:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc), now, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", p)
	}
}
