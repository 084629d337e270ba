package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DecisionKind is the action the resolver picks for an event.
type DecisionKind string

const (
	DecisionCreate DecisionKind = "create"
	DecisionUpdate DecisionKind = "update"
	DecisionCancel DecisionKind = "cancel"
	DecisionSkip   DecisionKind = "skip"
)

// Resolution reasons.
const (
	ReasonLedger          = "ledger"
	ReasonExternalUID     = "external_uid"
	ReasonDateMatch       = "date_match"
	ReasonNew             = "new"
	ReasonStaleLedger     = "stale_ledger"
	ReasonSuppressed      = "suppressed"
	ReasonCancelledNoUID  = "cancelled_without_uid"
	ReasonCancelledNoBook = "cancelled_unknown"
	ReasonPastStay        = "past_stay"
	ReasonInvalid         = "invalid_event"
)

// Decision tells the merger what to do with one normalized event.
type Decision struct {
	Kind      DecisionKind
	Key       string
	BookingID string
	Reason    string

	// ReplaceMapping is set when the ledger points at a booking that no
	// longer exists and must be overwritten on create.
	ReplaceMapping bool
}

// Resolver matches normalized events to existing bookings.
type Resolver struct {
	store Store
	now   func() time.Time
}

// NewResolver creates a resolver backed by store.
func NewResolver(store Store, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{store: store, now: now}
}

// Resolve decides whether the event creates, updates, cancels or is skipped.
//
// Lookup order is the ledger, then bookings tagged with the UID, then a unique
// exact-date ical booking in the feed's scope. A cancelled event only ever
// cancels a booking known through the ledger and never creates one.
func (r *Resolver) Resolve(ctx context.Context, feed Feed, ev NormalizedEvent) (Decision, error) {
	key := ev.Key(feed.ID)

	if ev.Cancelled {
		if ev.UID == "" {
			return Decision{Kind: DecisionSkip, Key: key, Reason: ReasonCancelledNoUID}, nil
		}
		m, err := r.store.GetMapping(ctx, feed.PropertyID, ev.UID)
		if errors.Is(err, ErrNotFound) {
			return Decision{Kind: DecisionSkip, Key: key, Reason: ReasonCancelledNoBook}, nil
		}
		if err != nil {
			return Decision{}, fmt.Errorf("ledger lookup: %w", err)
		}
		if err := r.store.TouchMapping(ctx, feed.PropertyID, key, r.now()); err != nil {
			return Decision{}, fmt.Errorf("touch ledger: %w", err)
		}
		return Decision{Kind: DecisionCancel, Key: key, BookingID: m.BookingID, Reason: ReasonLedger}, nil
	}

	if ev.UID != "" {
		suppressed, err := r.store.IsSuppressed(ctx, feed.PropertyID, ev.UID)
		if err != nil {
			return Decision{}, fmt.Errorf("suppression lookup: %w", err)
		}
		if suppressed {
			return Decision{Kind: DecisionSkip, Key: key, Reason: ReasonSuppressed}, nil
		}
	}

	stale := false
	m, err := r.store.GetMapping(ctx, feed.PropertyID, key)
	switch {
	case err == nil:
		_, err := r.store.GetBooking(ctx, m.BookingID)
		if err == nil {
			return Decision{Kind: DecisionUpdate, Key: key, BookingID: m.BookingID, Reason: ReasonLedger}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Decision{}, fmt.Errorf("load mapped booking: %w", err)
		}
		stale = true
	case !errors.Is(err, ErrNotFound):
		return Decision{}, fmt.Errorf("ledger lookup: %w", err)
	}

	if ev.UID != "" {
		b, err := r.store.FindBookingByExternalUID(ctx, feed.PropertyID, ev.UID)
		if err == nil {
			return Decision{Kind: DecisionUpdate, Key: key, BookingID: b.ID, Reason: ReasonExternalUID, ReplaceMapping: stale}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Decision{}, fmt.Errorf("external uid lookup: %w", err)
		}
	}

	candidates, err := r.store.FindBookings(ctx, BookingQuery{
		PropertyID: feed.PropertyID,
		StartDate:  ev.StartDate,
		EndDate:    ev.EndDate,
		Source:     SourceICal,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("date match lookup: %w", err)
	}

	var matches []Booking
	for _, b := range candidates {
		if inFeedScope(feed, b) && claimableBy(ev.UID, b) {
			matches = append(matches, b)
		}
	}
	if len(matches) == 1 {
		return Decision{Kind: DecisionUpdate, Key: key, BookingID: matches[0].ID, Reason: ReasonDateMatch, ReplaceMapping: stale}, nil
	}

	reason := ReasonNew
	if stale {
		reason = ReasonStaleLedger
	}
	return Decision{Kind: DecisionCreate, Key: key, Reason: reason, ReplaceMapping: stale}, nil
}

// inFeedScope reports whether a booking belongs to the room or room type the feed covers.
func inFeedScope(feed Feed, b Booking) bool {
	switch {
	case feed.RoomID != nil:
		return b.RoomID != nil && *b.RoomID == *feed.RoomID
	case feed.RoomTypeID != nil:
		return b.RoomTypeID != nil && *b.RoomTypeID == *feed.RoomTypeID
	default:
		return b.RoomID == nil && b.RoomTypeID == nil
	}
}

// claimableBy rejects bookings already tagged with a different UID.
func claimableBy(uid string, b Booking) bool {
	if b.ExternalUID == nil || *b.ExternalUID == "" {
		return true
	}
	return *b.ExternalUID == uid
}
