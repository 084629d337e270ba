package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// dryRunStore reads through to the wrapped store and discards every write,
// reporting each as successful so decisions can be previewed.
type dryRunStore struct {
	Store
}

func (dryRunStore) MarkFeedSynced(context.Context, string, time.Time, FeedSyncStatus, string) error {
	return nil
}

func (dryRunStore) RecordFeedLog(context.Context, string, FeedResult) error { return nil }

func (dryRunStore) SaveRun(context.Context, *RunSummary) error { return nil }

func (dryRunStore) InsertMapping(context.Context, UIDMapping) (bool, error) { return true, nil }

func (dryRunStore) UpsertMapping(context.Context, UIDMapping) error { return nil }

func (dryRunStore) TouchMapping(context.Context, string, string, time.Time) error { return nil }

func (dryRunStore) CreateBooking(_ context.Context, b *Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

func (dryRunStore) UpdateBooking(_ context.Context, b *Booking) error {
	b.Version++
	return nil
}

func (dryRunStore) ClaimRoom(context.Context, string, string) error { return nil }

func (dryRunStore) MoveRoom(context.Context, string, string, string, BookingStatus) error {
	return nil
}

func (dryRunStore) RecordUnassigned(context.Context, UnassignedEvent) (bool, error) {
	return true, nil
}

func (dryRunStore) ResolveUnassigned(context.Context, string, string, string) (bool, error) {
	return false, nil
}
