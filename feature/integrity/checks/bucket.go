package checks

import (
	"context"
	"fmt"

	"staysync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// BucketReport describes the run archive bucket.
type BucketReport struct {
	Bucket  string `json:"bucket"`
	Enabled bool   `json:"enabled"`
	Exists  bool   `json:"exists"`
	Created bool   `json:"created,omitempty"`
}

// CheckBucket reports whether the archive bucket exists. A nil client means
// archiving is disabled.
func CheckBucket(ctx context.Context, client storage.Client, bucket string) (*BucketReport, error) {
	report := &BucketReport{Bucket: bucket, Enabled: client != nil}
	if client == nil {
		return report, nil
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	report.Exists = exists
	return report, nil
}

// FixBucket creates the archive bucket when it is missing.
func FixBucket(ctx context.Context, client storage.Client, bucket, region string, logger *zap.Logger) (*BucketReport, error) {
	report, err := CheckBucket(ctx, client, bucket)
	if err != nil || !report.Enabled || report.Exists {
		return report, err
	}

	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		logger.Error("Failed to create bucket", zap.String("bucket", bucket), zap.Error(err))
		return nil, err
	}
	logger.Info("Created missing bucket", zap.String("bucket", bucket))
	report.Exists = true
	report.Created = true
	return report, nil
}
