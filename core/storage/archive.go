package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
)

// Archiver writes run summaries as JSON objects.
type Archiver struct {
	client Client
	bucket string
	prefix string
	region string
}

// NewArchiver creates an archiver for the configured bucket.
func NewArchiver(client Client, cfg Config) *Archiver {
	return &Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, region: cfg.Region}
}

// EnsureBucket creates the bucket if it does not exist.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", a.bucket, err)
	}
	return nil
}

// ObjectName returns the key a run is archived under: <prefix>/YYYY/MM/DD/<id>.json.
func (a *Archiver) ObjectName(runID string, at time.Time) string {
	return path.Join(a.prefix, at.UTC().Format("2006/01/02"), runID+".json")
}

// Archive uploads payload for runID.
func (a *Archiver) Archive(ctx context.Context, runID string, at time.Time, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", runID, err)
	}

	name := a.ObjectName(runID, at)
	_, err = a.client.PutObject(ctx, a.bucket, name, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}
