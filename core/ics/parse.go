package ics

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"staysync/core/reconcile"

	ical "github.com/arran4/golang-ical"
)

const (
	icsDate     = "20060102"
	icsDateTime = "20060102T150405"
	icsUTC      = "20060102T150405Z"
)

// ErrEmptyBody is returned when a feed returns no content.
var ErrEmptyBody = errors.New("empty calendar body")

// vevent is a VEVENT before recurrence expansion.
type vevent struct {
	uid          string
	status       string
	summary      string
	start        reconcile.EventTime
	end          reconcile.EventTime
	rrule        string
	exdates      map[string]bool
	recurrenceID string
}

// ParseOptions controls recurrence expansion.
type ParseOptions struct {
	Now            time.Time
	Horizon        time.Duration
	MaxOccurrences int
}

// Parse reads an iCalendar body into calendar events. Recurring events are
// expanded into one event per occurrence inside the horizon. Events whose
// start cannot be read are kept with a zero start so the caller can report
// them.
func Parse(body []byte, opts ParseOptions) ([]reconcile.CalendarEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var parsed []vevent
	for _, ve := range cal.Events() {
		parsed = append(parsed, readEvent(ve))
	}

	return expand(parsed, opts), nil
}

func readEvent(ve *ical.VEvent) vevent {
	out := vevent{exdates: make(map[string]bool)}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.uid = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty("STATUS"); p != nil {
		out.status = strings.ToLower(strings.TrimSpace(p.Value))
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.summary = p.Value
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if t, err := readBoundary(p.Value, p.ICalParameters, ve.GetStartAt); err == nil {
			out.start = t
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		if t, err := readBoundary(p.Value, p.ICalParameters, ve.GetEndAt); err == nil {
			out.end = t
		}
	} else if p := ve.GetProperty("DURATION"); p != nil && !out.start.IsZero() {
		if d, err := parseDuration(p.Value); err == nil {
			out.end = shift(out.start, d)
		}
	}
	if out.end.IsZero() && out.start.IsDate() {
		// A date-only DTSTART without DTEND covers that single day.
		out.end = shift(out.start, 24*time.Hour)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.rrule = strings.TrimSpace(p.Value)
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if key := occurrenceKey(part); key != "" {
				out.exdates[key] = true
			}
		}
	}
	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		out.recurrenceID = occurrenceKey(p.Value)
	}

	return out
}

// readBoundary reads DTSTART or DTEND. Instants (UTC or a known TZID) come
// from the library accessor. Civil dates and floating times are read by
// readTime, since the library pins them to the process zone and they must be
// placed in the property's zone later.
func readBoundary(value string, params map[string][]string, libraryTime func() (time.Time, error)) (reconcile.EventTime, error) {
	if isInstant(value, params) {
		if at, err := libraryTime(); err == nil && !at.IsZero() {
			return reconcile.EventTime{At: at}, nil
		}
	}
	return readTime(value, params)
}

// isInstant reports whether a value is a DATE-TIME in UTC or with a TZID.
func isInstant(value string, params map[string][]string) bool {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, "T") {
		return false
	}
	if vs := params["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return false
	}
	return strings.HasSuffix(value, "Z") || len(params["TZID"]) > 0
}

// readTime interprets a DTSTART/DTEND value with its VALUE and TZID parameters.
func readTime(value string, params map[string][]string) (reconcile.EventTime, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return reconcile.EventTime{}, errors.New("empty time value")
	}

	isDate := !strings.Contains(value, "T")
	if vs := params["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		isDate = true
	}
	if isDate {
		if len(value) > 8 {
			value = value[:8]
		}
		t, err := time.Parse(icsDate, value)
		if err != nil {
			return reconcile.EventTime{}, err
		}
		return reconcile.EventTime{Date: t.Format(reconcile.DateLayout)}, nil
	}

	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse(icsUTC, value)
		if err != nil {
			return reconcile.EventTime{}, err
		}
		return reconcile.EventTime{At: t}, nil
	}

	if tz := params["TZID"]; len(tz) > 0 {
		if loc, err := time.LoadLocation(strings.Trim(tz[0], `"`)); err == nil {
			t, err := time.ParseInLocation(icsDateTime, value, loc)
			if err != nil {
				return reconcile.EventTime{}, err
			}
			return reconcile.EventTime{At: t}, nil
		}
	}

	// Floating time, or a TZID we cannot resolve: keep the wall clock.
	t, err := time.Parse(icsDateTime, value)
	if err != nil {
		return reconcile.EventTime{}, err
	}
	return reconcile.EventTime{At: t, Floating: true}, nil
}

// occurrenceKey reduces an EXDATE or RECURRENCE-ID value to its date.
func occurrenceKey(value string) string {
	value = strings.TrimSpace(value)
	if len(value) < 8 {
		return ""
	}
	if _, err := time.Parse(icsDate, value[:8]); err != nil {
		return ""
	}
	return value[:8]
}

var durationPattern = regexp.MustCompile(`^([+-])?P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseDuration reads an RFC 5545 DURATION value such as P2D or PT1H30M.
func parseDuration(value string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil || value == "P" || value == "PT" {
		return 0, fmt.Errorf("invalid duration %q", value)
	}

	units := []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, unit := range units {
		if m[i+2] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+2])
		if err != nil {
			return 0, err
		}
		d += time.Duration(n) * unit
	}
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}

// shift moves a boundary by d; civil dates move by whole days.
func shift(t reconcile.EventTime, d time.Duration) reconcile.EventTime {
	if t.IsDate() {
		day, _ := time.Parse(reconcile.DateLayout, t.Date)
		days := int(d / (24 * time.Hour))
		return reconcile.EventTime{Date: day.AddDate(0, 0, days).Format(reconcile.DateLayout)}
	}
	return reconcile.EventTime{At: t.At.Add(d), Floating: t.Floating}
}
