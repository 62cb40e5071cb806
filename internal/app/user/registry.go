package user

import (
	"sync"

	"github.com/samber/lo"

	"roomrelay/internal/pkg/errs"
	"roomrelay/internal/pkg/randx"
)

// Sessions is the session-management contract used by the relay.
// Implementations own identity generation; callers never invent connection ids.
type Sessions interface {
	Create() User
	Add(u User) *errs.CustomError
	Find(id string) (User, bool)
	Remove(id string) bool
	SetProfile(id, name, room string) bool
	ClearRoom(id string) bool
	AppendMessage(id, text string) bool
	IDs() []string
	Snapshot() []User
	Len() int
}

// Registry is the in-memory Sessions implementation.
// Lookups go through a map; order keeps insertion order for broadcasts and snapshots.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*User
	order []string
	newID func() string
}

var _ Sessions = (*Registry)(nil)

// Option customises a Registry.
type Option func(*Registry)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		r.newID = gen
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		users: make(map[string]*User),
		newID: randx.ConnectionID,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create registers a new user with a fresh id, empty name and no room.
func (r *Registry) Create() User {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, taken := r.users[id]; !taken {
			break
		}
		id = r.newID()
	}

	u := &User{ID: id, Messages: []string{}}
	r.users[id] = u
	r.order = append(r.order, id)

	return u.clone()
}

// Add registers an existing user. A second user with the same id is rejected.
func (r *Registry) Add(u User) *errs.CustomError {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if _, exists := r.users[u.ID]; exists {
		return errs.NewError(errs.ErrDuplicateUser)
	}

	stored := u.clone()
	r.users[u.ID] = &stored
	r.order = append(r.order, u.ID)

	return nil
}

// Find returns a copy of the user with id.
func (r *Registry) Find(id string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return User{}, false
	}

	return u.clone(), true
}

// Remove deletes the user with id. It reports whether a user was removed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return false
	}

	delete(r.users, id)
	r.order = lo.Without(r.order, id)

	return true
}

// SetProfile overwrites the user's display name and current room.
func (r *Registry) SetProfile(id, name, room string) bool {
	return r.update(id, func(u *User) {
		u.Name = name
		u.Room = room
	})
}

// ClearRoom detaches the user from its room.
func (r *Registry) ClearRoom(id string) bool {
	return r.update(id, func(u *User) {
		u.Room = ""
	})
}

// AppendMessage appends text to the user's own message log.
func (r *Registry) AppendMessage(id, text string) bool {
	return r.update(id, func(u *User) {
		u.Messages = append(u.Messages, text)
	})
}

func (r *Registry) update(id string, fn func(u *User)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return false
	}

	fn(u)
	return true
}

// IDs returns the connection ids in insertion order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Snapshot returns copies of all users in insertion order.
func (r *Registry) Snapshot() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(id string, _ int) User {
		return r.users[id].clone()
	})
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users)
}
