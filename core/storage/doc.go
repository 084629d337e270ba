// Package storage archives sync run summaries to S3-compatible object storage.
//
// It wraps the MinIO Go client behind a small Client interface so the
// archiver can be tested with the mocks in core/storage/mocks. Objects are
// laid out by day:
//
//	runs/2025/03/10/<run-id>.json
//
// # Usage
//
//	client, err := storage.NewClient(cfg)
//	archiver := storage.NewArchiver(client, cfg)
//	err = archiver.EnsureBucket(ctx)
package storage
