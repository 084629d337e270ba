package reconcile

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Store lookups when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrRoomConflict is returned when a room is already taken for an overlapping stay.
	ErrRoomConflict = errors.New("room already booked for overlapping dates")
	// ErrVersionConflict is returned when a conditional booking update lost a race.
	ErrVersionConflict = errors.New("booking was modified concurrently")
	// ErrInvalidMode is returned for unknown sync modes.
	ErrInvalidMode = errors.New("invalid sync mode")
	// ErrNoStartDate marks events that carry no usable start boundary.
	ErrNoStartDate = errors.New("event has no start date")
)

// FeedFilter narrows the feeds a run processes. Empty fields match everything.
type FeedFilter struct {
	PropertyID string
	FeedID     string
}

// BookingQuery selects bookings for exact date matches.
type BookingQuery struct {
	PropertyID string
	StartDate  string
	EndDate    string
	Source     BookingSource
}

// FeedSyncStatus is the outcome recorded on a feed after a sync attempt.
type FeedSyncStatus string

const (
	FeedSyncOK    FeedSyncStatus = "success"
	FeedSyncError FeedSyncStatus = "error"
)

// Store is the persistence contract of the reconciliation engine.
// Lookups return ErrNotFound when nothing matches.
type Store interface {
	// ListActiveFeeds returns active feeds ordered by account, property and id.
	ListActiveFeeds(ctx context.Context, filter FeedFilter) ([]Feed, error)
	// PropertyPolicy loads timezone and default times for a property.
	PropertyPolicy(ctx context.Context, propertyID string) (*PropertyPolicy, error)
	// MarkFeedSynced stamps the last sync attempt on a feed.
	MarkFeedSynced(ctx context.Context, feedID string, at time.Time, status FeedSyncStatus, message string) error
	// RecordFeedLog appends a per-feed audit row for a run.
	RecordFeedLog(ctx context.Context, runID string, result FeedResult) error
	// SaveRun persists the run summary.
	SaveRun(ctx context.Context, summary *RunSummary) error

	// GetMapping returns the ledger row for (property, key).
	GetMapping(ctx context.Context, propertyID, key string) (*UIDMapping, error)
	// InsertMapping adds a ledger row only if the key is free. It reports whether the row was written.
	InsertMapping(ctx context.Context, m UIDMapping) (bool, error)
	// UpsertMapping writes a ledger row, replacing an existing one for the same key.
	UpsertMapping(ctx context.Context, m UIDMapping) error
	// TouchMapping refreshes the last-seen stamp of a ledger row.
	TouchMapping(ctx context.Context, propertyID, key string, at time.Time) error

	// IsSuppressed reports whether the host removed the UID from the internal calendar.
	IsSuppressed(ctx context.Context, propertyID, uid string) (bool, error)

	GetBooking(ctx context.Context, id string) (*Booking, error)
	// FindBookingByExternalUID returns the newest non-cancelled booking tagged with uid.
	FindBookingByExternalUID(ctx context.Context, propertyID, uid string) (*Booking, error)
	// FindBookings returns non-cancelled bookings with exactly the queried dates.
	FindBookings(ctx context.Context, q BookingQuery) ([]Booking, error)
	// CreateBooking inserts a booking, assigning an ID when empty. A booking
	// created with a room and an active status fails with ErrRoomConflict on overlap.
	CreateBooking(ctx context.Context, b *Booking) error
	// UpdateBooking writes b if its Version is still current and increments it.
	// It returns ErrVersionConflict on a stale version and ErrRoomConflict when
	// an active booking would overlap another on its room.
	UpdateBooking(ctx context.Context, b *Booking) error

	// ListRoomsByType returns the rooms of a type ordered by name then id.
	ListRoomsByType(ctx context.Context, propertyID, roomTypeID string) ([]Room, error)
	// BusyRooms returns the subset of roomIDs holding an active booking that
	// overlaps [start, end), ignoring excludeBookingID.
	BusyRooms(ctx context.Context, propertyID string, roomIDs []string, start, end, excludeBookingID string) (map[string]bool, error)
	// ClaimRoom atomically assigns roomID to an unassigned booking after
	// re-checking overlap under a room lock. It returns ErrRoomConflict when
	// the room was taken or the booking already has a room.
	ClaimRoom(ctx context.Context, bookingID, roomID string) error
	// MoveRoom atomically moves a booking from fromRoomID to toRoomID and
	// sets its status, re-checking overlap on the target under its lock. It
	// returns ErrRoomConflict when the target is taken or the booking is no
	// longer on fromRoomID. The old room is left untouched on failure.
	MoveRoom(ctx context.Context, bookingID, fromRoomID, toRoomID string, status BookingStatus) error

	// RecordUnassigned adds or refreshes the queue entry for (property, key).
	// It reports whether the entry is newly open.
	RecordUnassigned(ctx context.Context, ev UnassignedEvent) (bool, error)
	// ResolveUnassigned closes the open entry for (property, key), if any.
	ResolveUnassigned(ctx context.Context, propertyID, key, bookingID string) (bool, error)
}

// EventSource fetches and parses the events of a feed.
type EventSource interface {
	Events(ctx context.Context, feed Feed) ([]CalendarEvent, error)
}

// SyncPolicy gates how often an account may sync.
type SyncPolicy interface {
	CanSyncNow(ctx context.Context, accountID, eventType string) (PolicyDecision, error)
	RegisterSyncUsage(ctx context.Context, accountID, eventType string) error
}

// Publisher delivers notifications about runs and unassigned events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Archiver stores a copy of each run summary.
type Archiver interface {
	Archive(ctx context.Context, runID string, at time.Time, payload any) error
}

// Notification topics.
const (
	TopicSyncCompleted     = "calendar.sync.completed"
	TopicBookingUnassigned = "booking.unassigned"
)

// AllowAll is a SyncPolicy that never throttles.
type AllowAll struct{}

func (AllowAll) CanSyncNow(context.Context, string, string) (PolicyDecision, error) {
	return PolicyDecision{Allowed: true}, nil
}

func (AllowAll) RegisterSyncUsage(context.Context, string, string) error {
	return nil
}
