package reconcile

import (
	"time"
)

// Normalize converts a calendar event into property-local civil dates and times.
//
// Timed boundaries are converted to the property timezone; all-day boundaries
// keep their civil date and take the property's default check-in or check-out
// time. A missing end falls back to the start date, and an end before the start
// is clamped to the start date.
func Normalize(ev CalendarEvent, policy PropertyPolicy) (NormalizedEvent, error) {
	if ev.Start.IsZero() {
		return NormalizedEvent{}, ErrNoStartDate
	}

	loc := policy.Location
	if loc == nil {
		loc = time.UTC
	}

	n := NormalizedEvent{
		UID:       ev.UID,
		Cancelled: ev.Cancelled(),
		Summary:   ev.Summary,
	}

	n.StartDate, n.StartTime = localize(ev.Start, loc, policy.CheckInTime)

	if ev.End.IsZero() {
		n.EndDate, n.EndTime = n.StartDate, policy.CheckOutTime
	} else {
		n.EndDate, n.EndTime = localize(ev.End, loc, policy.CheckOutTime)
	}

	if n.EndDate < n.StartDate {
		n.EndDate = n.StartDate
	}

	return n, nil
}

func localize(t EventTime, loc *time.Location, defaultClock string) (string, string) {
	if t.IsDate() {
		return t.Date, defaultClock
	}

	at := t.At
	if t.Floating {
		at = time.Date(at.Year(), at.Month(), at.Day(), at.Hour(), at.Minute(), at.Second(), 0, loc)
	}
	local := at.In(loc)
	return local.Format(DateLayout), local.Format(ClockLayout)
}
