package reconcile

// Config holds the reconciliation defaults.
type Config struct {
	// Mode is the status given to imported bookings (hold, confirmed).
	Mode string `mapstructure:"mode" default:"hold"`
	// DryRun computes decisions without writing to the database.
	DryRun bool `mapstructure:"dry_run" default:"false"`
	// SkipPast drops events that would create a new booking for a stay that
	// ended before today. Events for known bookings are always applied.
	SkipPast bool `mapstructure:"skip_past" default:"false"`
	// ArchiveRuns uploads every run summary to object storage.
	ArchiveRuns bool `mapstructure:"archive_runs" default:"false"`
}
