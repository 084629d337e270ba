// Package integrity provides structural health checks for the service.
//
// # Checks Provided
//
//   - Schema: Compares the live database with the gorm models in core/store
//     (tables, columns, declared column types). Works on MySQL and SQLite.
//   - Storage: Checks that the run archive bucket exists and can create it.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/schema : Runs the schema check.
//   - GET /integrity/storage : Runs the bucket check (supports ?fix=true).
package integrity
