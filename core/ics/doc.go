// Package ics downloads and parses the iCalendar feeds published by OTA channels.
//
// # Fetching
//
// Fetcher performs a GET with a per-attempt timeout, a size cap and one retry
// after a short backoff for transient failures (network errors, 429, 5xx).
// Concurrent requests for the same URL share one download. Feed URLs carry
// private tokens, so only scheme and host are ever logged.
//
// # Parsing
//
// Parse reads VEVENTs with github.com/arran4/golang-ical. DTSTART/DTEND values
// become either civil dates (VALUE=DATE or no time part) or instants (UTC,
// TZID-qualified or floating). STATUS is kept so cancellations reach the
// engine. RRULEs are expanded with github.com/teambition/rrule-go inside a
// bounded horizon.
package ics
