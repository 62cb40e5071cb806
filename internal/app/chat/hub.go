package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roomrelay/internal/app/persist"
	"roomrelay/internal/app/user"
	"roomrelay/internal/pkg/errs"
	"roomrelay/internal/pkg/logx"
)

// eventTimeout bounds the persistence work done for one event.
const eventTimeout = 10 * time.Second

// ErrHubStopped is returned by Hub methods once Stop has been called.
var ErrHubStopped = errors.New("hub stopped")

type connectRequest struct {
	client *Client
	reply  chan string
}

type inboundFrame struct {
	client *Client
	raw    []byte
}

type query struct {
	fn   func()
	done chan struct{}
}

// Hub owns the live connections and runs every relay operation on one goroutine,
// so events are applied strictly one at a time in arrival order.
type Hub struct {
	relay *Relay

	// clients maps connection id to Client. Only the Run goroutine touches it.
	clients map[string]*Client

	connect chan connectRequest
	inbound chan inboundFrame
	leave   chan *Client
	queries chan query

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}

	logger zerolog.Logger
}

// NewHub builds a hub and the relay it drives.
func NewHub(users user.Sessions, rooms *Manager, store persist.Snapshotter) *Hub {
	h := &Hub{
		clients:  make(map[string]*Client),
		connect:  make(chan connectRequest),
		inbound:  make(chan inboundFrame, 256),
		leave:    make(chan *Client),
		queries:  make(chan query),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logx.Component("hub"),
	}
	h.relay = NewRelay(users, rooms, store, h)

	return h
}

// Relay returns the relay driven by the hub.
func (h *Hub) Relay() *Relay {
	return h.relay
}

// Run is the event loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.done)

	h.logger.Info().Msg("Hub event loop started.")

	for {
		select {
		case req := <-h.connect:
			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			u := h.relay.Connect(ctx)
			cancel()

			req.client.bind(u.ID)
			h.clients[u.ID] = req.client
			h.Emit([]string{u.ID}, EventConnected, ConnectedPayload{ID: u.ID})
			req.reply <- u.ID

		case frame := <-h.inbound:
			h.handleFrame(frame)

		case client := <-h.leave:
			h.removeClient(client)

		case q := <-h.queries:
			q.fn()
			close(q.done)

		case <-h.stopChan:
			h.shutdownClients()
			h.logger.Info().Msg("Hub event loop stopped.")
			return
		}
	}
}

// Stop ends the event loop and closes every client's send queue.
// It is safe to call more than once, but only after Run has been started.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
	<-h.done
}

// Connect registers client, creating its session. It returns the connection id.
func (h *Hub) Connect(ctx context.Context, client *Client) (string, error) {
	req := connectRequest{client: client, reply: make(chan string, 1)}

	select {
	case h.connect <- req:
	case <-h.done:
		return "", ErrHubStopped
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return <-req.reply, nil
}

// Dispatch queues a raw inbound frame from client. It blocks while the queue is
// full, which throttles the client's read loop.
func (h *Hub) Dispatch(client *Client, raw []byte) error {
	select {
	case h.inbound <- inboundFrame{client: client, raw: raw}:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Disconnect removes client and its session.
func (h *Hub) Disconnect(client *Client) {
	select {
	case h.leave <- client:
	case <-h.done:
	}
}

// Query runs fn on the event loop, after every event queued before it.
func (h *Hub) Query(ctx context.Context, fn func()) error {
	q := query{fn: fn, done: make(chan struct{})}

	select {
	case h.queries <- q:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	<-q.done
	return nil
}

// Emit implements Emitter. The frame is encoded once and queued on each target.
// It must only be called from the event loop.
func (h *Hub) Emit(to []string, event string, payload any) {
	if len(to) == 0 {
		return
	}

	frame, err := encodeEnvelope(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Failed to encode outbound event.")
		return
	}

	for _, id := range to {
		client, ok := h.clients[id]
		if !ok {
			h.logger.Debug().Str("conn_id", id).Str("event", event).Msg("Skipping emit to unknown connection.")
			continue
		}

		select {
		case client.send <- frame:
		default:
			h.logger.Warn().
				Str("conn_id", id).
				Str("event", event).
				Int("queue_len", len(client.send)).
				Msg("Client send queue full, dropping frame.")
		}
	}
}

func (h *Hub) handleFrame(frame inboundFrame) {
	client := frame.client
	if current, ok := h.clients[client.id]; !ok || current != client {
		return
	}

	var env Envelope
	if err := json.Unmarshal(frame.raw, &env); err != nil {
		client.logger.Warn().Err(err).Msg("Client sent invalid JSON.")
		h.sendError(client, errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if customErr := h.relay.HandleEvent(ctx, client.id, env); customErr != nil {
		client.logger.Warn().
			Str("event", env.Event).
			Int("code", customErr.Code).
			Msg("Event rejected.")
		h.sendError(client, customErr)
	}
}

func (h *Hub) sendError(client *Client, customErr *errs.CustomError) {
	h.Emit([]string{client.id}, EventError, ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}

func (h *Hub) removeClient(client *Client) {
	current, ok := h.clients[client.id]
	if !ok || current != client {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if customErr := h.relay.Disconnect(ctx, client.id); customErr != nil {
		h.logger.Warn().Str("conn_id", client.id).Int("code", customErr.Code).Msg("Disconnect for unknown session.")
	}

	delete(h.clients, client.id)
	close(client.send)
}

func (h *Hub) shutdownClients() {
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
}
