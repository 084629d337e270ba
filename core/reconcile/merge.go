package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome is what happened to a booking for one event.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// EventResult reports the handling of one event.
type EventResult struct {
	Key        string  `json:"key" yaml:"key"`
	Outcome    Outcome `json:"outcome" yaml:"outcome"`
	BookingID  string  `json:"booking_id,omitempty" yaml:"booking_id,omitempty"`
	Reason     string  `json:"reason,omitempty" yaml:"reason,omitempty"`
	RoomID     string  `json:"room_id,omitempty" yaml:"room_id,omitempty"`
	Unassigned bool    `json:"unassigned,omitempty" yaml:"unassigned,omitempty"`
	FormMerged bool    `json:"form_merged,omitempty" yaml:"form_merged,omitempty"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`

	// opened is set when this event put a new entry on the unassigned queue.
	opened *UnassignedEvent
}

const reasonAlreadyCancelled = "already_cancelled"

// Merger applies resolver decisions to the booking store.
type Merger struct {
	store     Store
	allocator *Allocator
	now       func() time.Time
}

// NewMerger creates a merger that places type-scoped bookings with allocator.
func NewMerger(store Store, allocator *Allocator, now func() time.Time) *Merger {
	if now == nil {
		now = time.Now
	}
	return &Merger{store: store, allocator: allocator, now: now}
}

// Apply executes a decision. Guest details are never written from feed data;
// they only arrive through MergeForm.
func (m *Merger) Apply(ctx context.Context, feed Feed, ev NormalizedEvent, dec Decision, mode Mode) (EventResult, error) {
	switch dec.Kind {
	case DecisionSkip:
		return EventResult{Key: dec.Key, Outcome: OutcomeSkipped, Reason: dec.Reason}, nil
	case DecisionCancel:
		return m.cancel(ctx, feed, dec)
	case DecisionCreate:
		return m.create(ctx, feed, ev, dec, mode)
	case DecisionUpdate:
		return m.update(ctx, feed, ev, dec, mode)
	default:
		return EventResult{}, fmt.Errorf("unknown decision %q", dec.Kind)
	}
}

func (m *Merger) cancel(ctx context.Context, feed Feed, dec Decision) (EventResult, error) {
	res := EventResult{Key: dec.Key, BookingID: dec.BookingID, Reason: dec.Reason}

	for attempt := 0; ; attempt++ {
		b, err := m.store.GetBooking(ctx, dec.BookingID)
		if errors.Is(err, ErrNotFound) {
			res.Outcome, res.Reason = OutcomeSkipped, ReasonCancelledNoBook
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("load booking: %w", err)
		}
		if b.Status == StatusCancelled {
			res.Outcome, res.Reason = OutcomeSkipped, reasonAlreadyCancelled
			return res, nil
		}

		b.Status = StatusCancelled
		err = m.store.UpdateBooking(ctx, b)
		if errors.Is(err, ErrVersionConflict) && attempt == 0 {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("cancel booking: %w", err)
		}
		break
	}

	if _, err := m.store.ResolveUnassigned(ctx, feed.PropertyID, dec.Key, dec.BookingID); err != nil {
		return res, fmt.Errorf("resolve unassigned: %w", err)
	}
	res.Outcome = OutcomeCancelled
	return res, nil
}

func (m *Merger) create(ctx context.Context, feed Feed, ev NormalizedEvent, dec Decision, mode Mode) (EventResult, error) {
	id := uuid.NewString()

	// Claim the ledger key first; a concurrent run that got there earlier
	// owns the booking and this event becomes an update of it.
	claim := m.mapping(feed, ev, dec.Key, &Booking{ID: id, RoomID: feed.RoomID, RoomTypeID: feed.RoomTypeID})
	if dec.ReplaceMapping {
		if err := m.store.UpsertMapping(ctx, claim); err != nil {
			return EventResult{Key: dec.Key}, fmt.Errorf("replace ledger: %w", err)
		}
	} else {
		inserted, err := m.store.InsertMapping(ctx, claim)
		if err != nil {
			return EventResult{Key: dec.Key}, fmt.Errorf("claim ledger: %w", err)
		}
		if !inserted {
			existing, err := m.store.GetMapping(ctx, feed.PropertyID, dec.Key)
			if err != nil {
				return EventResult{Key: dec.Key}, fmt.Errorf("ledger lookup: %w", err)
			}
			return m.update(ctx, feed, ev, Decision{Kind: DecisionUpdate, Key: dec.Key, BookingID: existing.BookingID, Reason: ReasonLedger}, mode)
		}
	}

	b := &Booking{
		ID:         id,
		PropertyID: feed.PropertyID,
		RoomID:     cloneString(feed.RoomID),
		RoomTypeID: cloneString(feed.RoomTypeID),
		StartDate:  ev.StartDate,
		EndDate:    ev.EndDate,
		StartTime:  ev.StartTime,
		EndTime:    ev.EndTime,
		Status:     mode.Status(),
		Source:     SourceICal,
		FeedID:     &feed.ID,
		Provider:   feed.Provider,
	}
	if ev.UID != "" {
		b.ExternalUID = &ev.UID
	}

	conflict := false
	err := m.store.CreateBooking(ctx, b)
	if errors.Is(err, ErrRoomConflict) {
		// The feed's fixed room is taken; keep the stay as a hold so the host sees it.
		conflict = true
		b.Status = StatusHold
		err = m.store.CreateBooking(ctx, b)
	}
	if err != nil {
		return EventResult{Key: dec.Key}, fmt.Errorf("create booking: %w", err)
	}

	res := EventResult{Key: dec.Key, Outcome: OutcomeCreated, BookingID: b.ID, Reason: dec.Reason}
	if err := m.finish(ctx, feed, ev, dec.Key, b, conflict, &res); err != nil {
		return res, err
	}
	return res, nil
}

func (m *Merger) update(ctx context.Context, feed Feed, ev NormalizedEvent, dec Decision, mode Mode) (EventResult, error) {
	res := EventResult{Key: dec.Key, BookingID: dec.BookingID, Reason: dec.Reason, Outcome: OutcomeUnchanged}

	var b *Booking
	conflict := false
	for attempt := 0; ; attempt++ {
		var err error
		b, err = m.store.GetBooking(ctx, dec.BookingID)
		if err != nil {
			return res, fmt.Errorf("load booking: %w", err)
		}
		if !refresh(b, feed, ev, mode) {
			break
		}

		conflict = false
		err = m.store.UpdateBooking(ctx, b)
		if errors.Is(err, ErrRoomConflict) {
			// New dates collide on the room. A hold does not occupy it, so
			// the booking keeps its room while it waits for the host.
			desired := b.Status
			conflict = true
			b.Status = StatusHold
			err = m.store.UpdateBooking(ctx, b)
			if err == nil && feed.RoomTypeID != nil && feed.RoomID == nil && desired.Active() {
				moved, rerr := m.allocator.Relocate(ctx, b, desired)
				if rerr != nil {
					return res, fmt.Errorf("relocate: %w", rerr)
				}
				conflict = !moved
			}
		}
		if errors.Is(err, ErrVersionConflict) && attempt == 0 {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("update booking: %w", err)
		}
		res.Outcome = OutcomeUpdated
		break
	}

	if err := m.finish(ctx, feed, ev, dec.Key, b, conflict, &res); err != nil {
		return res, err
	}
	return res, nil
}

// finish places the booking, refreshes the ledger and merges a pending guest form.
func (m *Merger) finish(ctx context.Context, feed Feed, ev NormalizedEvent, key string, b *Booking, conflict bool, res *EventResult) error {
	reason := ReasonRoomConflict
	if !conflict && b.RoomID == nil && b.RoomTypeID != nil {
		alloc, err := m.allocator.Allocate(ctx, b)
		if err != nil {
			return fmt.Errorf("allocate: %w", err)
		}
		if !alloc.Placed {
			conflict = true
			reason = alloc.Reason
		}
	}

	if conflict {
		queued := UnassignedEvent{
			PropertyID: b.PropertyID,
			FeedID:     feed.ID,
			Key:        key,
			RoomTypeID: cloneString(b.RoomTypeID),
			BookingID:  &b.ID,
			StartDate:  b.StartDate,
			EndDate:    b.EndDate,
			Reason:     reason,
			CreatedAt:  m.now(),
		}
		opened, err := m.store.RecordUnassigned(ctx, queued)
		if err != nil {
			return fmt.Errorf("record unassigned: %w", err)
		}
		res.Unassigned = true
		if opened {
			res.opened = &queued
		}
	} else if b.RoomID != nil {
		res.RoomID = *b.RoomID
		if _, err := m.store.ResolveUnassigned(ctx, b.PropertyID, key, b.ID); err != nil {
			return fmt.Errorf("resolve unassigned: %w", err)
		}
	}

	if err := m.store.UpsertMapping(ctx, m.mapping(feed, ev, key, b)); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}

	merged, err := m.MergeForm(ctx, b)
	if err != nil {
		return fmt.Errorf("merge form: %w", err)
	}
	res.FormMerged = merged
	return nil
}

func (m *Merger) mapping(feed Feed, ev NormalizedEvent, key string, b *Booking) UIDMapping {
	return UIDMapping{
		PropertyID: feed.PropertyID,
		Key:        key,
		BookingID:  b.ID,
		RoomID:     cloneString(b.RoomID),
		RoomTypeID: cloneString(b.RoomTypeID),
		StartDate:  ev.StartDate,
		EndDate:    ev.EndDate,
		LastSeenAt: m.now(),
	}
}

// refresh copies feed-owned fields onto b and reports whether anything changed.
// Status only moves forward, except that a cancelled booking reopens.
func refresh(b *Booking, feed Feed, ev NormalizedEvent, mode Mode) bool {
	before := *b

	b.StartDate, b.EndDate = ev.StartDate, ev.EndDate
	b.StartTime, b.EndTime = ev.StartTime, ev.EndTime

	target := mode.Status()
	if b.Status == StatusCancelled || target.rank() > b.Status.rank() {
		b.Status = target
	}

	if feed.Provider != "" {
		b.Provider = feed.Provider
	}
	if b.FeedID == nil || *b.FeedID != feed.ID {
		b.FeedID = &feed.ID
	}
	if ev.UID != "" && (b.ExternalUID == nil || *b.ExternalUID != ev.UID) {
		b.ExternalUID = &ev.UID
	}
	if b.RoomID == nil && feed.RoomID != nil {
		b.RoomID = cloneString(feed.RoomID)
	}
	if b.RoomTypeID == nil && feed.RoomTypeID != nil {
		b.RoomTypeID = cloneString(feed.RoomTypeID)
	}

	return before.StartDate != b.StartDate ||
		before.EndDate != b.EndDate ||
		before.StartTime != b.StartTime ||
		before.EndTime != b.EndTime ||
		before.Status != b.Status ||
		before.Provider != b.Provider ||
		!sameString(before.FeedID, b.FeedID) ||
		!sameString(before.ExternalUID, b.ExternalUID) ||
		!sameString(before.RoomID, b.RoomID) ||
		!sameString(before.RoomTypeID, b.RoomTypeID)
}

// MergeForm copies guest details from a matching form booking onto an
// unlocked ical booking. Candidates share the exact dates; an exact room match
// wins, then a room-type match, then a sole candidate. Ambiguity merges nothing.
// The write is conditional on the booking version, so a concurrent merge
// cannot overwrite details that just landed.
func (m *Merger) MergeForm(ctx context.Context, b *Booking) (bool, error) {
	if b.Source != SourceICal || b.Locked() || b.Status == StatusCancelled {
		return false, nil
	}

	forms, err := m.store.FindBookings(ctx, BookingQuery{
		PropertyID: b.PropertyID,
		StartDate:  b.StartDate,
		EndDate:    b.EndDate,
		Source:     SourceForm,
	})
	if err != nil {
		return false, err
	}

	form, ok := pickForm(b, forms)
	if !ok {
		return false, nil
	}

	b.GuestName = form.GuestName
	b.GuestEmail = form.GuestEmail
	b.GuestPhone = form.GuestPhone
	b.GuestAddress = form.GuestAddress
	if len(form.DocumentRefs) > 0 {
		b.DocumentRefs = append([]string(nil), form.DocumentRefs...)
	}

	submissionID := form.ID
	if form.FormSubmissionID != nil && *form.FormSubmissionID != "" {
		submissionID = *form.FormSubmissionID
	}
	b.FormSubmissionID = &submissionID

	submittedAt := m.now()
	if form.SubmittedAt != nil {
		submittedAt = *form.SubmittedAt
	}
	b.SubmittedAt = &submittedAt

	err = m.store.UpdateBooking(ctx, b)
	if errors.Is(err, ErrVersionConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func pickForm(b *Booking, forms []Booking) (Booking, bool) {
	if len(forms) == 0 {
		return Booking{}, false
	}

	if b.RoomID != nil {
		if f, ok := single(forms, func(f Booking) bool { return sameString(f.RoomID, b.RoomID) }); ok {
			return f, true
		}
	}
	if b.RoomTypeID != nil {
		if f, ok := single(forms, func(f Booking) bool { return sameString(f.RoomTypeID, b.RoomTypeID) }); ok {
			return f, true
		}
	}
	if len(forms) == 1 {
		return forms[0], true
	}
	return Booking{}, false
}

func single(forms []Booking, match func(Booking) bool) (Booking, bool) {
	var found []Booking
	for _, f := range forms {
		if match(f) {
			found = append(found, f)
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	return Booking{}, false
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
