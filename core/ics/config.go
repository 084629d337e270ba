package ics

import "time"

// Config holds the feed download and parsing settings.
type Config struct {
	// TimeoutSeconds bounds each download attempt.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"15"`
	// RetryBackoffMillis is the pause before the single retry of a transient failure.
	RetryBackoffMillis int `mapstructure:"retry_backoff_millis" default:"500"`
	// MaxBodyBytes caps the size of a feed body.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" default:"5242880"`
	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent" default:"staysync/1.0"`
	// HorizonDays limits recurrence expansion into the future.
	HorizonDays int `mapstructure:"horizon_days" default:"365"`
	// MaxOccurrences caps the instances produced by one recurring event.
	MaxOccurrences int `mapstructure:"max_occurrences" default:"500"`
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) backoff() time.Duration {
	if c.RetryBackoffMillis < 0 {
		return 0
	}
	return time.Duration(c.RetryBackoffMillis) * time.Millisecond
}

func (c Config) maxBytes() int64 {
	if c.MaxBodyBytes <= 0 {
		return 5 << 20
	}
	return c.MaxBodyBytes
}

func (c Config) horizon() time.Duration {
	if c.HorizonDays <= 0 {
		return 365 * 24 * time.Hour
	}
	return time.Duration(c.HorizonDays) * 24 * time.Hour
}

func (c Config) maxOccurrences() int {
	if c.MaxOccurrences <= 0 {
		return 500
	}
	return c.MaxOccurrences
}
