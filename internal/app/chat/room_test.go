package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoom_Membership(t *testing.T) {
	req := require.New(t)

	room := NewRoom("r1")
	req.True(room.AddMember("a"))
	req.True(room.AddMember("b"))
	req.False(room.AddMember("a"))
	req.Equal([]string{"a", "b"}, room.Members())

	req.True(room.RemoveMember("a"))
	req.False(room.RemoveMember("a"))
	req.False(room.HasMember("a"))
	req.True(room.HasMember("b"))
}

func TestRoom_ListMessagesReturnsCopy(t *testing.T) {
	req := require.New(t)

	room := NewRoom("r1")
	room.AppendMessage(NewMessage("hi", "A", "a", "r1"))

	msgs := room.ListMessages()
	msgs[0].Text = "changed"

	req.Equal("hi", room.ListMessages()[0].Text)
}

func TestRoom_SnapshotOfEmptyRoomHasEmptySlices(t *testing.T) {
	req := require.New(t)

	snap := NewRoom("r1").Snapshot()
	req.NotNil(snap.Messages)
	req.NotNil(snap.Members)
}

func TestManager_GetOrCreate(t *testing.T) {
	req := require.New(t)

	m := NewManager()
	r1, created := m.GetOrCreate("r1")
	req.True(created)

	again, created := m.GetOrCreate("r1")
	req.False(created)
	req.Same(r1, again)

	_, _ = m.GetOrCreate("r2")
	req.Equal(2, m.Len())
	req.Nil(m.Get("missing"))

	snaps := m.Snapshot()
	req.Len(snaps, 2)
	req.Equal("r1", snaps[0].Name)
	req.Equal("r2", snaps[1].Name)
}
