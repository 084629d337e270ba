package scheduler

import "time"

// Config holds configuration for the periodic sweep.
type Config struct {
	// Enabled starts the scheduler together with the HTTP server.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Spec is a cron expression or descriptor such as "@every 15m".
	Spec string `mapstructure:"spec" default:"@every 15m"`
	// RunTimeoutSeconds bounds a single sweep.
	RunTimeoutSeconds int `mapstructure:"run_timeout_seconds" default:"600"`
}

// RunTimeout returns the sweep deadline, defaulting to ten minutes.
func (c Config) RunTimeout() time.Duration {
	if c.RunTimeoutSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}
