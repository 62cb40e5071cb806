package chat

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"roomrelay/internal/app/persist"
	"roomrelay/internal/app/user"
	"roomrelay/internal/pkg/errs"
	"roomrelay/internal/pkg/logx"
)

// MaxContentBytes is the largest accepted message body.
const MaxContentBytes = 5000

var errMissingPayload = errors.New("missing event payload")

// Emitter delivers an outbound event to the given connections.
// Delivery is best effort: unknown ids and full queues are skipped.
type Emitter interface {
	Emit(to []string, event string, payload any)
}

// Relay applies connection events to the user and room registries, exports the
// registries after each mutation and fans results out through the Emitter.
//
// Relay is not safe for concurrent use; the Hub calls it from a single goroutine.
type Relay struct {
	users   user.Sessions
	rooms   *Manager
	store   persist.Snapshotter
	emitter Emitter

	validate *validator.Validate

	// saveErrs holds the latest export error per snapshot name.
	errMu    sync.RWMutex
	saveErrs map[string]error

	logger zerolog.Logger
}

// NewRelay wires a relay. store may be persist.Discard{} when no export is wanted.
func NewRelay(users user.Sessions, rooms *Manager, store persist.Snapshotter, emitter Emitter) *Relay {
	return &Relay{
		users:    users,
		rooms:    rooms,
		store:    store,
		emitter:  emitter,
		saveErrs: make(map[string]error),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logx.Component("relay"),
	}
}

// Connect creates the session for a new connection.
func (r *Relay) Connect(ctx context.Context) user.User {
	u := r.users.Create()
	r.saveUsers(ctx)

	r.logger.Info().Str("conn_id", u.ID).Int("total_users", r.users.Len()).Msg("User connected.")
	return u
}

// Join sets the user's name and room, creating the room if needed, and sends the
// room's earlier messages to the joining connection only.
//
// A user switching rooms is removed from the previous room first, and that room's
// remaining members get an Alert carrying the user's previous name.
func (r *Relay) Join(ctx context.Context, id string, p JoinPayload) *errs.CustomError {
	u, ok := r.users.Find(id)
	if !ok {
		return errs.NewError(errs.ErrUnknownUser)
	}

	if err := r.validate.Struct(p); err != nil {
		r.logger.Debug().Err(err).Str("conn_id", id).Msg("Rejected JOIN payload.")
		return errs.NewError(errs.ErrInvalidParams)
	}

	if u.InRoom() && u.Room != p.Room {
		r.depart(id, u.Name, u.Room)
	}

	r.users.SetProfile(id, p.Name, p.Room)

	room, _ := r.rooms.GetOrCreate(p.Room)
	room.AddMember(id)

	r.saveUsers(ctx)
	r.saveRooms(ctx)

	r.logger.Info().
		Str("conn_id", id).
		Str("room", p.Room).
		Str("name", p.Name).
		Int("members", len(room.Members())).
		Msg("User joined room.")

	r.emitter.Emit([]string{id}, EventPreviousMessages, room.ListMessages())
	return nil
}

// MessageRoom appends text to the sender's room log and own log and relays it to every
// member of the room, the sender included. The sender must be a member of a room.
func (r *Relay) MessageRoom(ctx context.Context, id, text string) *errs.CustomError {
	u, ok := r.users.Find(id)
	if !ok {
		return errs.NewError(errs.ErrUnknownUser)
	}

	if customErr := r.validateText(text); customErr != nil {
		return customErr
	}

	if !u.InRoom() {
		return errs.NewError(errs.ErrNotInRoom)
	}

	room := r.rooms.Get(u.Room)
	if room == nil {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	if !room.HasMember(id) {
		return errs.NewError(errs.ErrNotInRoom)
	}

	msg := NewMessage(text, u.Name, id, u.Room)
	room.AppendMessage(msg)
	r.users.AppendMessage(id, text)

	r.saveUsers(ctx)
	r.saveRooms(ctx)

	r.emitter.Emit(room.Members(), EventMessage, msg)
	return nil
}

// MessageAll relays text to every connected user regardless of rooms.
// Only the sender's own log records it.
func (r *Relay) MessageAll(ctx context.Context, id, text string) *errs.CustomError {
	u, ok := r.users.Find(id)
	if !ok {
		return errs.NewError(errs.ErrUnknownUser)
	}

	if customErr := r.validateText(text); customErr != nil {
		return customErr
	}

	msg := NewMessage(text, u.Name, id, "")
	r.users.AppendMessage(id, text)

	r.saveUsers(ctx)

	r.emitter.Emit(r.users.IDs(), EventMessage, msg)
	return nil
}

// LeaveRoom detaches the user from its room and alerts the remaining members.
func (r *Relay) LeaveRoom(ctx context.Context, id string) *errs.CustomError {
	u, ok := r.users.Find(id)
	if !ok {
		return errs.NewError(errs.ErrUnknownUser)
	}

	if !u.InRoom() {
		return errs.NewError(errs.ErrNotInRoom)
	}

	r.depart(id, u.Name, u.Room)
	r.saveRooms(ctx)

	r.users.ClearRoom(id)
	r.saveUsers(ctx)

	r.logger.Info().Str("conn_id", id).Str("room", u.Room).Msg("User left room.")
	return nil
}

// Disconnect removes the session. Room membership is pruned as well, so a closed
// connection never stays behind as a room member.
func (r *Relay) Disconnect(ctx context.Context, id string) *errs.CustomError {
	u, ok := r.users.Find(id)
	if !ok {
		return errs.NewError(errs.ErrUnknownUser)
	}

	if u.InRoom() {
		r.depart(id, u.Name, u.Room)
		r.saveRooms(ctx)
	}

	r.users.Remove(id)
	r.saveUsers(ctx)

	r.logger.Info().Str("conn_id", id).Int("total_users", r.users.Len()).Msg("User disconnected.")
	return nil
}

// HandleEvent decodes a named inbound event and applies it.
func (r *Relay) HandleEvent(ctx context.Context, id string, env Envelope) *errs.CustomError {
	switch env.Event {
	case EventJoin:
		var p JoinPayload
		if err := decodeData(env.Data, &p); err != nil {
			return errs.NewError(errs.ErrInvalidJSONFormat)
		}
		return r.Join(ctx, id, p)

	case EventMessageRoom, EventMessage:
		var text string
		if err := decodeData(env.Data, &text); err != nil {
			return errs.NewError(errs.ErrInvalidJSONFormat)
		}
		if env.Event == EventMessage {
			return r.MessageAll(ctx, id, text)
		}
		return r.MessageRoom(ctx, id, text)

	case EventLeaveRoom:
		return r.LeaveRoom(ctx, id)

	default:
		return errs.NewError(errs.ErrUnknownEvent, env.Event)
	}
}

// LastSaveError reports every snapshot whose latest export failed, or nil once each
// snapshot exports cleanly again. A store that reports its own state, such as an
// asynchronous writer, is asked directly.
func (r *Relay) LastSaveError() error {
	if reporter, ok := r.store.(persist.Reporter); ok {
		return reporter.Err()
	}

	r.errMu.RLock()
	defer r.errMu.RUnlock()

	errList := make([]error, 0, len(r.saveErrs))
	for _, name := range slices.Sorted(maps.Keys(r.saveErrs)) {
		errList = append(errList, r.saveErrs[name])
	}
	return errors.Join(errList...)
}

// depart removes id from roomName and alerts the members left behind.
func (r *Relay) depart(id, name, roomName string) {
	room := r.rooms.Get(roomName)
	if room == nil || !room.RemoveMember(id) {
		return
	}

	r.emitter.Emit(room.Members(), EventMessage, NewAlert(name, roomName))
}

func (r *Relay) validateText(text string) *errs.CustomError {
	if len(text) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong, MaxContentBytes)
	}

	if err := r.validate.Var(text, "required"); err != nil {
		return errs.NewError(errs.ErrInvalidParams)
	}

	return nil
}

func (r *Relay) saveUsers(ctx context.Context) {
	r.save(ctx, persist.UsersSnapshot, r.users.Snapshot())
}

func (r *Relay) saveRooms(ctx context.Context) {
	r.save(ctx, persist.RoomsSnapshot, r.rooms.Snapshot())
}

// save exports a snapshot. Failures are logged and remembered; in-memory state
// stays authoritative, so the event itself still succeeds.
func (r *Relay) save(ctx context.Context, name string, v any) {
	err := r.store.Save(ctx, name, v)
	if err != nil {
		r.logger.Error().Err(err).Str("snapshot", name).Msg("Failed to export snapshot.")
	}

	r.errMu.Lock()
	if err != nil {
		r.saveErrs[name] = err
	} else {
		delete(r.saveErrs, name)
	}
	r.errMu.Unlock()
}

// decodeData unmarshals an event payload; a missing payload is an error.
func decodeData(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return errMissingPayload
	}
	return json.Unmarshal(data, dst)
}
