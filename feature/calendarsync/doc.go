// Package calendarsync exposes the reconciliation engine over HTTP.
//
// # HTTP Endpoints
//
//   - POST /sync : Sweeps every active feed.
//   - POST /properties/:id/sync : Syncs the feeds of a property.
//   - POST /feeds/:id/sync : Syncs one feed.
//   - GET /runs, GET /runs/:id : Run history and summaries.
//   - GET /feeds/:id/logs : Per-feed sync history.
//   - POST /properties/:id/suppressions : Removes a UID from the calendar and blocks re-import.
//   - DELETE /properties/:id/suppressions/:uid : Lifts a suppression.
//   - GET /properties/:id/unassigned : Events waiting for a room.
//   - POST /unassigned/:id/assign : Places a queued booking in a room.
//
// Run endpoints accept ?mode=hold|confirmed and ?dry_run=true.
package calendarsync
