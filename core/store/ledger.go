package store

import (
	"context"
	"time"

	"staysync/core/reconcile"

	"gorm.io/gorm/clause"
)

var ledgerKey = []clause.Column{{Name: "property_id"}, {Name: "external_key"}}

func toMapping(r UIDMapping) *reconcile.UIDMapping {
	return &reconcile.UIDMapping{
		PropertyID: r.PropertyID,
		Key:        r.ExternalKey,
		BookingID:  r.BookingID,
		RoomID:     r.RoomID,
		RoomTypeID: r.RoomTypeID,
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		LastSeenAt: r.LastSeenAt,
	}
}

func fromMapping(m reconcile.UIDMapping) UIDMapping {
	return UIDMapping{
		PropertyID:  m.PropertyID,
		ExternalKey: m.Key,
		BookingID:   m.BookingID,
		RoomID:      m.RoomID,
		RoomTypeID:  m.RoomTypeID,
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		LastSeenAt:  m.LastSeenAt,
	}
}

func (s *GormStore) GetMapping(ctx context.Context, propertyID, key string) (*reconcile.UIDMapping, error) {
	var r UIDMapping
	err := s.db.WithContext(ctx).
		Where("property_id = ? AND external_key = ?", propertyID, key).
		Take(&r).Error
	if err != nil {
		return nil, notFound(err, "ledger key "+key)
	}
	return toMapping(r), nil
}

func (s *GormStore) InsertMapping(ctx context.Context, m reconcile.UIDMapping) (bool, error) {
	r := fromMapping(m)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: ledgerKey, DoNothing: true}).
		Create(&r)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) UpsertMapping(ctx context.Context, m reconcile.UIDMapping) error {
	r := fromMapping(m)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   ledgerKey,
			DoUpdates: clause.AssignmentColumns([]string{"booking_id", "room_id", "room_type_id", "start_date", "end_date", "last_seen_at"}),
		}).
		Create(&r).Error
}

func (s *GormStore) TouchMapping(ctx context.Context, propertyID, key string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&UIDMapping{}).
		Where("property_id = ? AND external_key = ?", propertyID, key).
		Update("last_seen_at", at).Error
}

func (s *GormStore) IsSuppressed(ctx context.Context, propertyID, uid string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&Suppression{}).
		Where("property_id = ? AND uid = ?", propertyID, uid).
		Count(&n).Error
	return n > 0, err
}

// Suppress records that the host removed uid from the internal calendar.
func (s *GormStore) Suppress(ctx context.Context, propertyID, uid string) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "property_id"}, {Name: "uid"}}, DoNothing: true}).
		Create(&Suppression{PropertyID: propertyID, UID: uid}).Error
}

// Unsuppress lifts a suppression. It reports whether one existed.
func (s *GormStore) Unsuppress(ctx context.Context, propertyID, uid string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("property_id = ? AND uid = ?", propertyID, uid).
		Delete(&Suppression{})
	return res.RowsAffected > 0, res.Error
}
