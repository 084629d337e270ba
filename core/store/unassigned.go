package store

import (
	"context"
	"errors"

	"staysync/core/reconcile"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func toUnassigned(r UnassignedEvent) reconcile.UnassignedEvent {
	return reconcile.UnassignedEvent{
		ID:         r.ID,
		PropertyID: r.PropertyID,
		FeedID:     r.FeedID,
		Key:        r.ExternalKey,
		RoomTypeID: r.RoomTypeID,
		BookingID:  r.BookingID,
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		Reason:     r.Reason,
		Resolved:   r.Resolved,
		CreatedAt:  r.CreatedAt,
	}
}

func (s *GormStore) RecordUnassigned(ctx context.Context, ev reconcile.UnassignedEvent) (bool, error) {
	db := s.db.WithContext(ctx)

	// A concurrent insert for the same key loses on the unique index and
	// falls through to the update on the second pass.
	for attempt := 0; ; attempt++ {
		var existing UnassignedEvent
		err := db.Where("property_id = ? AND external_key = ?", ev.PropertyID, ev.Key).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			createErr := db.Create(&UnassignedEvent{
				ID:          uuid.NewString(),
				PropertyID:  ev.PropertyID,
				ExternalKey: ev.Key,
				FeedID:      ev.FeedID,
				RoomTypeID:  ev.RoomTypeID,
				BookingID:   ev.BookingID,
				StartDate:   ev.StartDate,
				EndDate:     ev.EndDate,
				Reason:      ev.Reason,
			}).Error
			if createErr != nil && attempt == 0 {
				continue
			}
			return createErr == nil, createErr
		}
		if err != nil {
			return false, err
		}

		err = db.Model(&UnassignedEvent{}).Where("id = ?", existing.ID).Updates(map[string]any{
			"feed_id":      ev.FeedID,
			"room_type_id": ev.RoomTypeID,
			"booking_id":   ev.BookingID,
			"start_date":   ev.StartDate,
			"end_date":     ev.EndDate,
			"reason":       ev.Reason,
			"resolved":     false,
			"resolved_at":  nil,
			"updated_at":   s.now(),
		}).Error
		return err == nil && existing.Resolved, err
	}
}

func (s *GormStore) ResolveUnassigned(ctx context.Context, propertyID, key, bookingID string) (bool, error) {
	now := s.now()
	res := s.db.WithContext(ctx).
		Model(&UnassignedEvent{}).
		Where("property_id = ? AND external_key = ? AND resolved = ?", propertyID, key, false).
		Updates(map[string]any{
			"resolved":    true,
			"resolved_at": now,
			"booking_id":  bookingID,
			"updated_at":  now,
		})
	return res.RowsAffected > 0, res.Error
}

// ListUnassigned returns the queue of a property, open entries only unless all is set.
func (s *GormStore) ListUnassigned(ctx context.Context, propertyID string, all bool) ([]reconcile.UnassignedEvent, error) {
	tx := s.db.WithContext(ctx).Where("property_id = ?", propertyID)
	if !all {
		tx = tx.Where("resolved = ?", false)
	}

	var rows []UnassignedEvent
	if err := tx.Order("start_date, created_at").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]reconcile.UnassignedEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, toUnassigned(r))
	}
	return out, nil
}

// GetUnassigned returns one queue entry.
func (s *GormStore) GetUnassigned(ctx context.Context, id string) (*reconcile.UnassignedEvent, error) {
	var r UnassignedEvent
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&r).Error; err != nil {
		return nil, notFound(err, "unassigned event "+id)
	}
	ev := toUnassigned(r)
	return &ev, nil
}
