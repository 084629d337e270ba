package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickRoom(t *testing.T) {
	rooms := []Room{
		{ID: "r3", Name: "Room 3"},
		{ID: "r1", Name: "Room 1"},
		{ID: "r2", Name: "Room 2"},
	}

	tests := []struct {
		name   string
		busy   map[string]bool
		wantID string
		wantOK bool
	}{
		{"None busy", nil, "r1", true},
		{"First busy", map[string]bool{"r1": true}, "r2", true},
		{"Only last free", map[string]bool{"r1": true, "r2": true}, "r3", true},
		{"All busy", map[string]bool{"r1": true, "r2": true, "r3": true}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, ok := PickRoom(rooms, tt.busy)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, room.ID)
		})
	}
}

func TestPickRoom_TieBreaksOnID(t *testing.T) {
	rooms := []Room{{ID: "b", Name: "Twin"}, {ID: "a", Name: "Twin"}}
	room, ok := PickRoom(rooms, nil)
	assert.True(t, ok)
	assert.Equal(t, "a", room.ID)
}

func TestPickRoom_DoesNotReorderInput(t *testing.T) {
	rooms := []Room{{ID: "r2", Name: "B"}, {ID: "r1", Name: "A"}}
	PickRoom(rooms, nil)
	assert.Equal(t, "r2", rooms[0].ID)
}
