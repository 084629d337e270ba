package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"staysync/core/reconcile"

	"gorm.io/gorm"
)

// Migrate creates or updates every table owned by the service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

var _ reconcile.Store = (*GormStore)(nil)

// GormStore implements reconcile.Store on top of GORM.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a GormStore.
func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB exposes the underlying connection for schema checks.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, reconcile.ErrNotFound)
	}
	return err
}

type feedRow struct {
	Feed
	AccountID string `gorm:"column:account_id"`
}

func (s *GormStore) ListActiveFeeds(ctx context.Context, filter reconcile.FeedFilter) ([]reconcile.Feed, error) {
	q := s.db.WithContext(ctx).
		Table("feeds").
		Select("feeds.*, properties.account_id AS account_id").
		Joins("JOIN properties ON properties.id = feeds.property_id").
		Where("feeds.active = ?", true)
	if filter.PropertyID != "" {
		q = q.Where("feeds.property_id = ?", filter.PropertyID)
	}
	if filter.FeedID != "" {
		q = q.Where("feeds.id = ?", filter.FeedID)
	}

	var rows []feedRow
	if err := q.Order("properties.account_id, feeds.property_id, feeds.id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	feeds := make([]reconcile.Feed, 0, len(rows))
	for _, r := range rows {
		feeds = append(feeds, reconcile.Feed{
			ID:         r.ID,
			AccountID:  r.AccountID,
			PropertyID: r.PropertyID,
			RoomID:     r.RoomID,
			RoomTypeID: r.RoomTypeID,
			Provider:   r.Provider,
			URL:        r.URL,
			Active:     r.Active,
			LastSyncAt: r.LastSyncAt,
		})
	}
	return feeds, nil
}

func (s *GormStore) PropertyPolicy(ctx context.Context, propertyID string) (*reconcile.PropertyPolicy, error) {
	var p Property
	if err := s.db.WithContext(ctx).Where("id = ?", propertyID).Take(&p).Error; err != nil {
		return nil, notFound(err, "property "+propertyID)
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("property %s timezone %q: %w", propertyID, p.Timezone, err)
	}

	return &reconcile.PropertyPolicy{
		PropertyID:   p.ID,
		AccountID:    p.AccountID,
		Location:     loc,
		CheckInTime:  p.CheckInTime,
		CheckOutTime: p.CheckOutTime,
	}, nil
}

func (s *GormStore) MarkFeedSynced(ctx context.Context, feedID string, at time.Time, status reconcile.FeedSyncStatus, message string) error {
	return s.db.WithContext(ctx).Model(&Feed{}).Where("id = ?", feedID).Updates(map[string]any{
		"last_sync_at": at,
		"last_status":  string(status),
		"last_error":   message,
		"updated_at":   s.now(),
	}).Error
}

func (s *GormStore) RecordFeedLog(ctx context.Context, runID string, r reconcile.FeedResult) error {
	status := reconcile.FeedSyncOK
	if !r.OK {
		status = reconcile.FeedSyncError
	}
	return s.db.WithContext(ctx).Create(&FeedSyncLog{
		RunID:       runID,
		FeedID:      r.FeedID,
		Status:      string(status),
		EventsFound: r.EventsFound,
		Imported:    r.ImportedCount,
		Created:     r.Created,
		Updated:     r.Updated,
		Cancelled:   r.Cancelled,
		Skipped:     r.Skipped,
		Unassigned:  r.Unassigned,
		Failed:      r.Failed,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}).Error
}

func (s *GormStore) SaveRun(ctx context.Context, summary *reconcile.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}
	return s.db.WithContext(ctx).Create(&SyncRun{
		ID:            summary.RunID,
		Trigger:       string(summary.Trigger),
		ScopeID:       summary.ScopeID,
		Mode:          string(summary.Mode),
		OK:            summary.OK,
		TotalImported: summary.TotalImported,
		FeedCount:     len(summary.Feeds),
		SkippedCount:  len(summary.Skipped),
		Summary:       string(payload),
		StartedAt:     summary.StartedAt,
		FinishedAt:    summary.FinishedAt,
	}).Error
}

// ListRuns returns the most recent runs, newest first.
func (s *GormStore) ListRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []SyncRun
	err := s.db.WithContext(ctx).Omit("summary").Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// GetRun returns a stored run summary.
func (s *GormStore) GetRun(ctx context.Context, id string) (*reconcile.RunSummary, error) {
	var run SyncRun
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&run).Error; err != nil {
		return nil, notFound(err, "run "+id)
	}
	var summary reconcile.RunSummary
	if err := json.Unmarshal([]byte(run.Summary), &summary); err != nil {
		return nil, fmt.Errorf("decode run summary: %w", err)
	}
	return &summary, nil
}

// ListFeedLogs returns the newest audit rows of a feed.
func (s *GormStore) ListFeedLogs(ctx context.Context, feedID string, limit int) ([]FeedSyncLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []FeedSyncLog
	err := s.db.WithContext(ctx).Where("feed_id = ?", feedID).Order("started_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
