// Package reconcile keeps the internal booking calendar in step with external
// iCalendar feeds published by OTA channels.
//
// A run walks the selected feeds account by account. For each event it:
//
//  1. Normalizes the event into property-local civil dates and times.
//  2. Resolves it against existing bookings through the UID ledger, bookings
//     tagged with the UID, then a unique exact-date match in the feed's scope.
//  3. Merges the decision: creates, updates or cancels a booking, places
//     type-scoped bookings into rooms, and copies guest details from a pending
//     check-in form onto unlocked bookings.
//
// # Invariants
//
//   - At most one confirmed or checked-in booking occupies a room on any night.
//     Room placement goes through Store.ClaimRoom, which re-checks overlap
//     under a row lock, never through a read-then-write in this package.
//   - Re-running a sync over unchanged feeds changes nothing but last-seen stamps.
//   - A cancelled event never creates a booking.
//   - Suppressed UIDs are never re-imported.
//   - Guest details flow from form bookings into ical bookings only, and only
//     until the ical booking is locked.
//
// # Entry Points
//
// RunScheduledSweep, RunPropertySweep and RunSingleFeed are thin wrappers over
// Engine.Run with different feed selections. Each returns a RunSummary; feed and
// event failures are recorded in the summary instead of aborting the run.
//
// # Usage
//
//	engine := reconcile.NewEngine(store, ics.NewSource(fetcher, icsCfg), log, opts,
//	    reconcile.WithPolicy(redisPolicy),
//	    reconcile.WithPublisher(publisher),
//	)
//	summary, err := engine.RunPropertySweep(ctx, propertyID)
package reconcile
