package ics

import (
	"time"

	"staysync/core/reconcile"

	"github.com/teambition/rrule-go"
)

// expand turns parsed VEVENTs into calendar events. Non-recurring events pass
// through unchanged. Recurring events yield one event per occurrence in
// [now-30d, now+horizon], with UIDs of the form "<uid>/<yyyymmdd>"; EXDATEs
// remove occurrences and RECURRENCE-ID overrides replace them.
func expand(events []vevent, opts ParseOptions) []reconcile.CalendarEvent {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	horizon := opts.Horizon
	if horizon <= 0 {
		horizon = 365 * 24 * time.Hour
	}
	limit := opts.MaxOccurrences
	if limit <= 0 {
		limit = 500
	}

	overrides := make(map[string]map[string]vevent)
	for _, ev := range events {
		if ev.recurrenceID == "" || ev.uid == "" {
			continue
		}
		if overrides[ev.uid] == nil {
			overrides[ev.uid] = make(map[string]vevent)
		}
		overrides[ev.uid][ev.recurrenceID] = ev
	}

	var out []reconcile.CalendarEvent
	for _, ev := range events {
		if ev.recurrenceID != "" && ev.uid != "" {
			out = append(out, toEvent(ev, ev.uid+"/"+ev.recurrenceID, ev.start, ev.end))
			continue
		}
		if ev.rrule == "" || ev.start.IsZero() {
			out = append(out, toEvent(ev, ev.uid, ev.start, ev.end))
			continue
		}
		out = append(out, occurrences(ev, overrides[ev.uid], now.Add(-30*24*time.Hour), now.Add(horizon), limit)...)
	}
	return out
}

func occurrences(ev vevent, overridden map[string]vevent, from, to time.Time, limit int) []reconcile.CalendarEvent {
	r, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		// Keep the first instance rather than dropping the booking.
		return []reconcile.CalendarEvent{toEvent(ev, ev.uid, ev.start, ev.end)}
	}

	var dtstart time.Time
	var span time.Duration
	if ev.start.IsDate() {
		dtstart, _ = time.Parse(reconcile.DateLayout, ev.start.Date)
		if ev.end.IsDate() {
			endDay, _ := time.Parse(reconcile.DateLayout, ev.end.Date)
			span = endDay.Sub(dtstart)
		}
	} else {
		dtstart = ev.start.At
		if !ev.end.IsZero() && !ev.end.IsDate() {
			span = ev.end.At.Sub(ev.start.At)
		}
	}
	r.DTStart(dtstart)

	var out []reconcile.CalendarEvent
	for _, at := range r.Between(from, to, true) {
		if len(out) >= limit {
			break
		}
		key := at.Format(icsDate)
		if ev.exdates[key] {
			continue
		}
		if _, ok := overridden[key]; ok {
			continue
		}

		var start, end reconcile.EventTime
		if ev.start.IsDate() {
			start = reconcile.EventTime{Date: at.Format(reconcile.DateLayout)}
			end = reconcile.EventTime{Date: at.Add(span).Format(reconcile.DateLayout)}
		} else {
			start = reconcile.EventTime{At: at, Floating: ev.start.Floating}
			end = reconcile.EventTime{At: at.Add(span), Floating: ev.start.Floating}
		}

		uid := ""
		if ev.uid != "" {
			uid = ev.uid + "/" + key
		}
		out = append(out, toEvent(ev, uid, start, end))
	}
	return out
}

func toEvent(ev vevent, uid string, start, end reconcile.EventTime) reconcile.CalendarEvent {
	return reconcile.CalendarEvent{
		UID:     uid,
		Start:   start,
		End:     end,
		Status:  ev.status,
		Summary: ev.summary,
	}
}
