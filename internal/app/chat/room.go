/*
Package chat implements the room relay: rooms and their message logs, the relay that
applies connection events to the registries, and the WebSocket hub that drives it.

This file defines Room, a named broadcast group owning a message log and an ordered
member set.
*/
package chat

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Room is a named broadcast group. Members are connection ids kept in join order,
// which is also the fan-out order.
type Room struct {
	// Name is the user-supplied room identity.
	Name string

	mu       sync.RWMutex
	messages []Message
	members  []string
}

// RoomSnapshot is the exported form of a Room.
type RoomSnapshot struct {
	Name     string    `json:"name"`
	Messages []Message `json:"messages"`
	Members  []string  `json:"members"`
}

// NewRoom returns an empty room.
func NewRoom(name string) *Room {
	return &Room{
		Name:     name,
		messages: []Message{},
		members:  []string{},
	}
}

// AddMember adds id unless it is already a member. It reports whether id was added.
func (r *Room) AddMember(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.members, id) {
		return false
	}

	r.members = append(r.members, id)
	return true
}

// RemoveMember drops every membership entry for id. It reports whether any was removed.
func (r *Room) RemoveMember(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.members)
	r.members = lo.Without(r.members, id)

	return len(r.members) != before
}

// HasMember reports whether id is a member.
func (r *Room) HasMember(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Contains(r.members, id)
}

// Members returns a copy of the member ids in join order.
func (r *Room) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.members)
}

// AppendMessage adds msg to the end of the room log.
func (r *Room) AppendMessage(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)
}

// ListMessages returns a copy of the room log, oldest first.
func (r *Room) ListMessages() []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append(make([]Message, 0, len(r.messages)), r.messages...)
}

// Snapshot returns the exported form of the room.
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RoomSnapshot{
		Name:     r.Name,
		Messages: append(make([]Message, 0, len(r.messages)), r.messages...),
		Members:  append(make([]string, 0, len(r.members)), r.members...),
	}
}
