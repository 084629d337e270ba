package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// PickRoom returns the first room, in name then id order, that is not busy.
// It returns false when every candidate is busy.
func PickRoom(candidates []Room, busy map[string]bool) (Room, bool) {
	ordered := sortedRooms(candidates)
	for _, room := range ordered {
		if !busy[room.ID] {
			return room, true
		}
	}
	return Room{}, false
}

func sortedRooms(rooms []Room) []Room {
	ordered := make([]Room, len(rooms))
	copy(ordered, rooms)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Name != ordered[j].Name {
			return ordered[i].Name < ordered[j].Name
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// Allocation is the outcome of placing a booking into a room.
type Allocation struct {
	Placed bool
	RoomID string
	// Reason explains a failed placement.
	Reason string
}

// Allocator places type-scoped bookings into concrete rooms.
type Allocator struct {
	store Store
}

// NewAllocator creates an allocator backed by store.
func NewAllocator(store Store) *Allocator {
	return &Allocator{store: store}
}

// Allocate claims the first free room of the booking's type.
//
// Each candidate is claimed through Store.ClaimRoom, which re-checks overlap
// under a room lock; a lost race moves on to the next candidate, so two
// concurrent allocations never end up on the same room for overlapping dates.
// On success the booking's RoomID and Version are updated in place.
func (a *Allocator) Allocate(ctx context.Context, b *Booking) (Allocation, error) {
	if b.RoomID != nil {
		return Allocation{Placed: true, RoomID: *b.RoomID}, nil
	}
	if b.RoomTypeID == nil {
		return Allocation{Reason: ReasonNoRooms}, nil
	}

	rooms, busy, err := a.candidates(ctx, b)
	if err != nil {
		return Allocation{}, err
	}
	if len(rooms) == 0 {
		return Allocation{Reason: ReasonNoRooms}, nil
	}

	for {
		room, ok := PickRoom(rooms, busy)
		if !ok {
			break
		}
		err := a.store.ClaimRoom(ctx, b.ID, room.ID)
		if errors.Is(err, ErrRoomConflict) {
			busy[room.ID] = true
			continue
		}
		if err != nil {
			return Allocation{}, fmt.Errorf("claim room %s: %w", room.ID, err)
		}
		roomID := room.ID
		b.RoomID = &roomID
		b.Version++
		return Allocation{Placed: true, RoomID: roomID}, nil
	}

	return Allocation{Reason: ReasonNoCapacity}, nil
}

// Relocate moves a placed booking whose dates now collide on its room to
// another free room of its type and sets status on the move. The current room
// is only given up by a successful Store.MoveRoom, so when no other room is
// free the booking keeps it and Relocate reports false.
func (a *Allocator) Relocate(ctx context.Context, b *Booking, status BookingStatus) (bool, error) {
	if b.RoomID == nil || b.RoomTypeID == nil {
		return false, nil
	}
	from := *b.RoomID

	rooms, busy, err := a.candidates(ctx, b)
	if err != nil {
		return false, err
	}
	busy[from] = true

	for {
		room, ok := PickRoom(rooms, busy)
		if !ok {
			return false, nil
		}
		err := a.store.MoveRoom(ctx, b.ID, from, room.ID, status)
		if errors.Is(err, ErrRoomConflict) {
			busy[room.ID] = true
			continue
		}
		if err != nil {
			return false, fmt.Errorf("move to room %s: %w", room.ID, err)
		}
		roomID := room.ID
		b.RoomID = &roomID
		b.Status = status
		b.Version++
		return true, nil
	}
}

// candidates lists the rooms of the booking's type and those busy for its dates.
func (a *Allocator) candidates(ctx context.Context, b *Booking) ([]Room, map[string]bool, error) {
	rooms, err := a.store.ListRoomsByType(ctx, b.PropertyID, *b.RoomTypeID)
	if err != nil {
		return nil, nil, fmt.Errorf("list rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil, map[string]bool{}, nil
	}

	ids := make([]string, 0, len(rooms))
	for _, room := range rooms {
		ids = append(ids, room.ID)
	}
	busy, err := a.store.BusyRooms(ctx, b.PropertyID, ids, b.StartDate, b.EndDate, b.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("busy rooms: %w", err)
	}
	if busy == nil {
		busy = make(map[string]bool)
	}
	return rooms, busy, nil
}
