package storage

// Config holds the object store settings of the run archive.
type Config struct {
	// Enabled turns run archiving on.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Endpoint is the S3-compatible host, with or without scheme.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL selects https.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the name of the bucket run summaries are written to.
	Bucket string `mapstructure:"bucket" default:"sync-runs"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// Prefix is prepended to every archived object name.
	Prefix string `mapstructure:"prefix" default:"runs"`
	// TimeoutSeconds bounds dialing, TLS handshake and response headers.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
