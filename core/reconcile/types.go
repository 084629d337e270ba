package reconcile

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the civil date format used for stay boundaries.
	DateLayout = "2006-01-02"
	// ClockLayout is the wall clock format used for check-in/check-out times.
	ClockLayout = "15:04"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusHold      BookingStatus = "hold"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCheckedIn BookingStatus = "checked_in"
	StatusCancelled BookingStatus = "cancelled"
)

// Active reports whether the status occupies a room for conflict purposes.
// Holds are tentative and never block allocation.
func (s BookingStatus) Active() bool {
	return s == StatusConfirmed || s == StatusCheckedIn
}

func (s BookingStatus) rank() int {
	switch s {
	case StatusHold:
		return 1
	case StatusConfirmed:
		return 2
	case StatusCheckedIn:
		return 3
	default:
		return 0
	}
}

// BookingSource records how a booking entered the system.
type BookingSource string

const (
	SourceICal   BookingSource = "ical"
	SourceForm   BookingSource = "form"
	SourceManual BookingSource = "manual"
)

// Mode selects the status newly imported bookings receive.
type Mode string

const (
	ModeHold      Mode = "hold"
	ModeConfirmed Mode = "confirmed"
)

// ParseMode validates a mode string. An empty string yields ModeHold.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHold:
		return ModeHold, nil
	case ModeConfirmed:
		return ModeConfirmed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Status returns the booking status written for imported events in this mode.
func (m Mode) Status() BookingStatus {
	if m == ModeConfirmed {
		return StatusConfirmed
	}
	return StatusHold
}

// EventTime is a calendar boundary: either an absolute instant or a civil date.
type EventTime struct {
	// At is the instant for timed boundaries.
	At time.Time

	// Date is the civil date (YYYY-MM-DD) for all-day boundaries.
	Date string

	// Floating marks a timed boundary without zone information; its wall clock
	// is interpreted in the property's timezone.
	Floating bool
}

// IsZero reports whether the boundary is absent.
func (t EventTime) IsZero() bool {
	return t.Date == "" && t.At.IsZero()
}

// IsDate reports whether the boundary is a civil date.
func (t EventTime) IsDate() bool {
	return t.Date != ""
}

// CalendarEvent is one VEVENT read from an external feed.
type CalendarEvent struct {
	UID     string
	Start   EventTime
	End     EventTime
	Status  string
	Summary string
}

// Cancelled reports whether the feed marks the event as cancelled.
func (e CalendarEvent) Cancelled() bool {
	return strings.EqualFold(strings.TrimSpace(e.Status), "cancelled")
}

// PropertyPolicy carries the per-property rules used to normalize events.
type PropertyPolicy struct {
	PropertyID   string
	AccountID    string
	Location     *time.Location
	CheckInTime  string
	CheckOutTime string
}

// NormalizedEvent is a calendar event expressed in property-local civil terms.
type NormalizedEvent struct {
	UID       string `json:"uid,omitempty"`
	Cancelled bool   `json:"cancelled"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Summary   string `json:"summary,omitempty"`
}

// Key returns the ledger key for the event: its UID, or a synthetic key derived
// from the feed and the stay dates when the feed omits UIDs.
func (n NormalizedEvent) Key(feedID string) string {
	if n.UID != "" {
		return n.UID
	}
	return SyntheticKey(feedID, n.StartDate, n.EndDate)
}

// SyntheticKey builds the ledger key used for events without a UID.
func SyntheticKey(feedID, startDate, endDate string) string {
	return "feed:" + feedID + ":" + startDate + ":" + endDate
}

// Feed is one external calendar integration.
// At most one of RoomID and RoomTypeID is set; neither means the feed is unscoped.
type Feed struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"account_id"`
	PropertyID string     `json:"property_id"`
	RoomID     *string    `json:"room_id,omitempty"`
	RoomTypeID *string    `json:"room_type_id,omitempty"`
	Provider   string     `json:"provider"`
	URL        string     `json:"-"`
	Active     bool       `json:"active"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

// Booking is a guest stay held in the internal calendar.
type Booking struct {
	ID         string
	PropertyID string
	RoomID     *string
	RoomTypeID *string
	StartDate  string
	EndDate    string
	StartTime  string
	EndTime    string
	Status     BookingStatus
	Source     BookingSource

	// ExternalUID and FeedID tag bookings imported from a feed.
	ExternalUID *string
	FeedID      *string
	Provider    string

	GuestName    string
	GuestEmail   string
	GuestPhone   string
	GuestAddress string
	DocumentRefs []string

	// FormSubmissionID and SubmittedAt are set once a guest form is merged.
	FormSubmissionID *string
	SubmittedAt      *time.Time

	// Version increases on every write and guards conditional updates.
	Version int
}

// Locked reports whether guest-entered details are present. Locked bookings
// never receive form data again.
func (b *Booking) Locked() bool {
	return b.GuestName != "" || b.SubmittedAt != nil
}

// Room is a physical rentable unit.
type Room struct {
	ID         string
	PropertyID string
	RoomTypeID *string
	Name       string
}

// UIDMapping is a ledger row binding an external key to a booking.
type UIDMapping struct {
	PropertyID string
	Key        string
	BookingID  string
	RoomID     *string
	RoomTypeID *string
	StartDate  string
	EndDate    string
	LastSeenAt time.Time
}

// UnassignedEvent is a type-scoped event the allocator could not place.
type UnassignedEvent struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	FeedID     string    `json:"feed_id"`
	Key        string    `json:"key"`
	RoomTypeID *string   `json:"room_type_id,omitempty"`
	BookingID  *string   `json:"booking_id,omitempty"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	Reason     string    `json:"reason"`
	Resolved   bool      `json:"resolved"`
	CreatedAt  time.Time `json:"created_at"`
}

// Unassigned reasons.
const (
	ReasonNoCapacity   = "no_capacity"
	ReasonNoRooms      = "no_rooms_of_type"
	ReasonRoomConflict = "room_conflict"
)

// PolicyDecision is the answer of a SyncPolicy for one account.
type PolicyDecision struct {
	Allowed           bool          `json:"allowed"`
	Reason            string        `json:"reason,omitempty"`
	CooldownRemaining time.Duration `json:"cooldown_remaining,omitempty"`
}

// Sync event types passed to the policy.
const (
	EventScheduledSync = "scheduled_sync"
	EventManualSync    = "manual_sync"
)

// Trigger names the entry point of a run.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerProperty  Trigger = "property"
	TriggerFeed      Trigger = "feed"
)

// EventType maps the trigger onto the policy event type.
func (t Trigger) EventType() string {
	if t == TriggerScheduled {
		return EventScheduledSync
	}
	return EventManualSync
}
