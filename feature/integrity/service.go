package integrity

import (
	"context"

	"staysync/core/storage"
	"staysync/core/store"
	"staysync/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	db     *gorm.DB
	client storage.Client
	bucket string
	region string
	logger *zap.Logger
}

// NewService creates a new integrity service. client may be nil when run
// archiving is disabled.
func NewService(db *gorm.DB, client storage.Client, cfg storage.Config, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger,
	}
}

// CheckSchema compares the database with the service's models.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, store.Models())
}

// CheckBucket reports on the run archive bucket.
func (s *Service) CheckBucket(ctx context.Context) (*checks.BucketReport, error) {
	return checks.CheckBucket(ctx, s.client, s.bucket)
}

// FixBucket creates the run archive bucket if it is missing.
func (s *Service) FixBucket(ctx context.Context) (*checks.BucketReport, error) {
	return checks.FixBucket(ctx, s.client, s.bucket, s.region, s.logger)
}
