package server

import "time"

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// ReadTimeoutSeconds bounds reading a request, 0 disables the limit.
	ReadTimeoutSeconds int `mapstructure:"read_timeout_seconds" default:"30"`
	// ShutdownTimeoutSeconds is the grace period for in-flight requests and sync runs.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" default:"30"`
}

// Address returns the listen address for the configured port.
func (c Config) Address() string {
	return ":" + c.Port
}

// ReadTimeout returns the request read timeout.
func (c Config) ReadTimeout() time.Duration {
	if c.ReadTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown window, defaulting to 30 seconds.
func (c Config) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
