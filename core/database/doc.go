// Package database handles database connections and schema inspection.
//
// It wraps GORM with the MySQL and SQLite dialectors. MySQL is the production
// backend; SQLite serves local runs and tests, where a single pooled connection
// keeps an in-memory database alive.
//
// # Connect
//
// Connect opens the configured driver, tunes the pool and pings the server.
// GORM's own logging is silenced; failures surface as returned errors.
//
// # Schema Inspection
//
// GetTableColumns reads the live column list of a table (SHOW COLUMNS on MySQL,
// PRAGMA table_info on SQLite). The integrity check compares it with the models
// the store migrates.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//
//	columns, err := database.GetTableColumns(db, "bookings")
package database
