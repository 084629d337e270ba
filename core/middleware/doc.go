// Package middleware groups the HTTP middleware of the Fiber application.
//
// # Components
//
//   - auth: rejects requests whose X-API-Key header (or api_key query
//     parameter) does not match the configured key.
//   - rayid: tags every request with a ray id, taken from the incoming
//     X-Ray-ID header or generated, and echoes it in the response.
//
// Both are registered globally in the start command; rayid runs first so the
// request logger and auth failures carry the id.
package middleware
