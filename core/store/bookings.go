package store

import (
	"context"
	"encoding/json"
	"fmt"

	"staysync/core/reconcile"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var activeStatuses = []string{string(reconcile.StatusConfirmed), string(reconcile.StatusCheckedIn)}

func toBooking(r Booking) reconcile.Booking {
	b := reconcile.Booking{
		ID:               r.ID,
		PropertyID:       r.PropertyID,
		RoomID:           r.RoomID,
		RoomTypeID:       r.RoomTypeID,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		Status:           reconcile.BookingStatus(r.Status),
		Source:           reconcile.BookingSource(r.Source),
		ExternalUID:      r.ExternalUID,
		FeedID:           r.FeedID,
		Provider:         r.Provider,
		GuestName:        r.GuestName,
		GuestEmail:       r.GuestEmail,
		GuestPhone:       r.GuestPhone,
		GuestAddress:     r.GuestAddress,
		FormSubmissionID: r.FormSubmissionID,
		SubmittedAt:      r.SubmittedAt,
		Version:          r.Version,
	}
	if r.DocumentRefs != "" {
		// Malformed refs are dropped rather than failing the read.
		_ = json.Unmarshal([]byte(r.DocumentRefs), &b.DocumentRefs)
	}
	return b
}

func encodeRefs(refs []string) string {
	if len(refs) == 0 {
		return ""
	}
	raw, _ := json.Marshal(refs)
	return string(raw)
}

func fromBooking(b *reconcile.Booking) Booking {
	return Booking{
		ID:               b.ID,
		PropertyID:       b.PropertyID,
		RoomID:           b.RoomID,
		RoomTypeID:       b.RoomTypeID,
		StartDate:        b.StartDate,
		EndDate:          b.EndDate,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		Status:           string(b.Status),
		Source:           string(b.Source),
		ExternalUID:      b.ExternalUID,
		FeedID:           b.FeedID,
		Provider:         b.Provider,
		GuestName:        b.GuestName,
		GuestEmail:       b.GuestEmail,
		GuestPhone:       b.GuestPhone,
		GuestAddress:     b.GuestAddress,
		DocumentRefs:     encodeRefs(b.DocumentRefs),
		FormSubmissionID: b.FormSubmissionID,
		SubmittedAt:      b.SubmittedAt,
		Version:          b.Version,
	}
}

func (s *GormStore) GetBooking(ctx context.Context, id string) (*reconcile.Booking, error) {
	var r Booking
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&r).Error; err != nil {
		return nil, notFound(err, "booking "+id)
	}
	b := toBooking(r)
	return &b, nil
}

func (s *GormStore) FindBookingByExternalUID(ctx context.Context, propertyID, uid string) (*reconcile.Booking, error) {
	var r Booking
	err := s.db.WithContext(ctx).
		Where("property_id = ? AND external_uid = ? AND status <> ?", propertyID, uid, reconcile.StatusCancelled).
		Order("created_at DESC, id").
		Take(&r).Error
	if err != nil {
		return nil, notFound(err, "booking uid "+uid)
	}
	b := toBooking(r)
	return &b, nil
}

func (s *GormStore) FindBookings(ctx context.Context, q reconcile.BookingQuery) ([]reconcile.Booking, error) {
	tx := s.db.WithContext(ctx).
		Where("property_id = ? AND start_date = ? AND end_date = ? AND status <> ?",
			q.PropertyID, q.StartDate, q.EndDate, reconcile.StatusCancelled)
	if q.Source != "" {
		tx = tx.Where("source = ?", q.Source)
	}

	var rows []Booking
	if err := tx.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]reconcile.Booking, 0, len(rows))
	for _, r := range rows {
		out = append(out, toBooking(r))
	}
	return out, nil
}

// lockRoom takes a row lock on the room for the rest of the transaction.
// SQLite has no row locks; its single writer serializes the transaction instead.
func lockRoom(tx *gorm.DB, roomID string) (*Room, error) {
	var room Room
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", roomID).Take(&room).Error
	if err != nil {
		return nil, notFound(err, "room "+roomID)
	}
	return &room, nil
}

// ensureRoomFree fails with ErrRoomConflict when an active booking other than
// excludeID overlaps [start, end) on the room. Callers must hold the room lock.
func ensureRoomFree(tx *gorm.DB, roomID, start, end, excludeID string) error {
	var n int64
	err := tx.Model(&Booking{}).
		Where("room_id = ? AND status IN ? AND start_date < ? AND end_date > ? AND id <> ?",
			roomID, activeStatuses, end, start, excludeID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return reconcile.ErrRoomConflict
	}
	return nil
}

func (s *GormStore) CreateBooking(ctx context.Context, b *reconcile.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.Version = 1
	r := fromBooking(b)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if b.RoomID != nil && b.Status.Active() {
			if _, err := lockRoom(tx, *b.RoomID); err != nil {
				return err
			}
			if err := ensureRoomFree(tx, *b.RoomID, b.StartDate, b.EndDate, b.ID); err != nil {
				return err
			}
		}
		return tx.Create(&r).Error
	})
}

func (s *GormStore) UpdateBooking(ctx context.Context, b *reconcile.Booking) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if b.RoomID != nil && b.Status.Active() {
			if _, err := lockRoom(tx, *b.RoomID); err != nil {
				return err
			}
			if err := ensureRoomFree(tx, *b.RoomID, b.StartDate, b.EndDate, b.ID); err != nil {
				return err
			}
		}

		r := fromBooking(b)
		res := tx.Model(&Booking{}).
			Where("id = ? AND version = ?", b.ID, b.Version).
			Updates(map[string]any{
				"room_id":            r.RoomID,
				"room_type_id":       r.RoomTypeID,
				"start_date":         r.StartDate,
				"end_date":           r.EndDate,
				"start_time":         r.StartTime,
				"end_time":           r.EndTime,
				"status":             r.Status,
				"source":             r.Source,
				"external_uid":       r.ExternalUID,
				"feed_id":            r.FeedID,
				"provider":           r.Provider,
				"guest_name":         r.GuestName,
				"guest_email":        r.GuestEmail,
				"guest_phone":        r.GuestPhone,
				"guest_address":      r.GuestAddress,
				"document_refs":      r.DocumentRefs,
				"form_submission_id": r.FormSubmissionID,
				"submitted_at":       r.SubmittedAt,
				"version":            b.Version + 1,
				"updated_at":         s.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return reconcile.ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.Version++
	return nil
}

func (s *GormStore) ListRoomsByType(ctx context.Context, propertyID, roomTypeID string) ([]reconcile.Room, error) {
	var rows []Room
	err := s.db.WithContext(ctx).
		Where("property_id = ? AND room_type_id = ?", propertyID, roomTypeID).
		Order("name, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	rooms := make([]reconcile.Room, 0, len(rows))
	for _, r := range rows {
		rooms = append(rooms, reconcile.Room{ID: r.ID, PropertyID: r.PropertyID, RoomTypeID: r.RoomTypeID, Name: r.Name})
	}
	return rooms, nil
}

func (s *GormStore) BusyRooms(ctx context.Context, propertyID string, roomIDs []string, start, end, excludeBookingID string) (map[string]bool, error) {
	busy := make(map[string]bool)
	if len(roomIDs) == 0 {
		return busy, nil
	}

	var ids []string
	err := s.db.WithContext(ctx).
		Model(&Booking{}).
		Distinct("room_id").
		Where("property_id = ? AND room_id IN ? AND status IN ? AND start_date < ? AND end_date > ? AND id <> ?",
			propertyID, roomIDs, activeStatuses, end, start, excludeBookingID).
		Pluck("room_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		busy[id] = true
	}
	return busy, nil
}

func (s *GormStore) ClaimRoom(ctx context.Context, bookingID, roomID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := lockRoom(tx, roomID)
		if err != nil {
			return err
		}

		var b Booking
		if err := tx.Where("id = ?", bookingID).Take(&b).Error; err != nil {
			return notFound(err, "booking "+bookingID)
		}
		if b.PropertyID != room.PropertyID {
			return fmt.Errorf("room %s does not belong to property %s", roomID, b.PropertyID)
		}
		if b.RoomID != nil {
			return reconcile.ErrRoomConflict
		}

		if err := ensureRoomFree(tx, roomID, b.StartDate, b.EndDate, bookingID); err != nil {
			return err
		}

		res := tx.Model(&Booking{}).
			Where("id = ? AND room_id IS NULL", bookingID).
			Updates(map[string]any{
				"room_id":    roomID,
				"version":    gorm.Expr("version + 1"),
				"updated_at": s.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return reconcile.ErrRoomConflict
		}
		return nil
	})
}

func (s *GormStore) MoveRoom(ctx context.Context, bookingID, fromRoomID, toRoomID string, status reconcile.BookingStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := lockRoom(tx, toRoomID)
		if err != nil {
			return err
		}

		var b Booking
		if err := tx.Where("id = ?", bookingID).Take(&b).Error; err != nil {
			return notFound(err, "booking "+bookingID)
		}
		if b.PropertyID != room.PropertyID {
			return fmt.Errorf("room %s does not belong to property %s", toRoomID, b.PropertyID)
		}
		if b.RoomID == nil || *b.RoomID != fromRoomID {
			return reconcile.ErrRoomConflict
		}

		if status.Active() {
			if err := ensureRoomFree(tx, toRoomID, b.StartDate, b.EndDate, bookingID); err != nil {
				return err
			}
		}

		res := tx.Model(&Booking{}).
			Where("id = ? AND room_id = ?", bookingID, fromRoomID).
			Updates(map[string]any{
				"room_id":    toRoomID,
				"status":     string(status),
				"version":    gorm.Expr("version + 1"),
				"updated_at": s.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return reconcile.ErrRoomConflict
		}
		return nil
	})
}
