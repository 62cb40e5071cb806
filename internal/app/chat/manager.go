package chat

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"roomrelay/internal/pkg/logx"
)

// Manager is the room registry. Rooms are created lazily on first join and are
// kept after their last member leaves.
type Manager struct {
	// rooms maps room name to Room.
	rooms map[string]*Room

	// order keeps creation order for snapshots and listings.
	order []string

	// mu protects rooms and order.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewManager returns an empty room registry.
func NewManager() *Manager {
	return &Manager{
		rooms:  make(map[string]*Room),
		logger: logx.Component("rooms"),
	}
}

// GetOrCreate returns the room called name, creating it if needed.
// created reports whether this call created it.
func (m *Manager) GetOrCreate(name string) (room *Room, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.rooms[name]; ok {
		return existing, false
	}

	room = NewRoom(name)
	m.rooms[name] = room
	m.order = append(m.order, name)

	m.logger.Info().Str("room", name).Int("total_rooms", len(m.rooms)).Msg("Room created.")
	return room, true
}

// Get returns the room called name, or nil.
func (m *Manager) Get(name string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.rooms[name]
}

// Len returns the number of rooms.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.rooms)
}

// Snapshot returns every room in creation order.
func (m *Manager) Snapshot() []RoomSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return lo.Map(m.order, func(name string, _ int) RoomSnapshot {
		return m.rooms[name].Snapshot()
	})
}
