// Package config provides configuration management for the calendar sync service.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP port and API key
//   - Database: MySQL or SQLite connection details
//   - Log: Logging level and format
//   - Sync: default booking mode and dry-run behaviour
//   - Fetch: feed download timeout, retry backoff, size limit
//   - Scheduler: cron spec of the periodic sweep
//   - Redis: per-account cooldown and daily quota
//   - Broker: RabbitMQ notifications
//   - Storage: S3/MinIO bucket used to archive run summaries
//
// Every key can be overridden with an environment variable where dots become
// underscores (sync.mode -> SYNC_MODE).
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.Mode)
package config
