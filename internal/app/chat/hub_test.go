package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"roomrelay/internal/app/persist"
	"roomrelay/internal/app/user"
	"roomrelay/internal/pkg/errs"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(user.NewRegistry(), NewManager(), persist.Discard{})
	go hub.Run()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = NewClient(hub, conn, 0).Start(r.Context())
	}))

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return hub, server
}

func dial(t *testing.T, server *httptest.Server) (*websocket.Conn, string) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	env := readEnvelope(t, conn)
	require.Equal(t, EventConnected, env.Event)

	var connected ConnectedPayload
	require.NoError(t, json.Unmarshal(env.Data, &connected))
	require.NotEmpty(t, connected.ID)

	return conn, connected.ID
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	frame, err := encodeEnvelope(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	env := readEnvelope(t, conn)
	require.Equal(t, EventMessage, env.Event)

	var msg Message
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	return msg
}

func join(t *testing.T, conn *websocket.Conn, room, name string) []Message {
	t.Helper()

	send(t, conn, EventJoin, JoinPayload{Room: room, Name: name})

	env := readEnvelope(t, conn)
	require.Equal(t, EventPreviousMessages, env.Event)

	var history []Message
	require.NoError(t, json.Unmarshal(env.Data, &history))
	return history
}

func TestHub_RoomScenario(t *testing.T) {
	req := require.New(t)

	// Given A and B connected and joined to r1
	hub, server := newTestHub(t)
	connA, idA := dial(t, server)
	connB, idB := dial(t, server)

	req.Empty(join(t, connA, "r1", "A"))
	req.Empty(join(t, connB, "r1", "B"))

	// When A says hi
	send(t, connA, EventMessageRoom, "hi")

	// Then both receive it
	for _, conn := range []*websocket.Conn{connA, connB} {
		msg := readMessage(t, conn)
		req.Equal("hi", msg.Text)
		req.Equal("A", msg.Name)
		req.Equal(idA, msg.Client)
	}

	// When B leaves and A says bye
	send(t, connB, EventLeaveRoom, nil)

	alert := readMessage(t, connA)
	req.Equal(TypeAlert, alert.Type)
	req.Equal("B", alert.Name)

	send(t, connA, EventMessageRoom, "bye")
	req.Equal("bye", readMessage(t, connA).Text)

	// Then B never sees bye: its next frame is its own global broadcast
	send(t, connB, EventMessage, "ping")
	req.Equal("ping", readMessage(t, connB).Text)
	req.Equal("ping", readMessage(t, connA).Text)

	var logged []Message
	req.NoError(hub.Query(context.Background(), func() {
		logged = hub.Relay().rooms.Get("r1").ListMessages()
	}))
	req.Len(logged, 2)
	req.Equal(idA, logged[1].Client)
	req.NotEqual(idA, idB)
}

func TestHub_InvalidFramesGetErrorEvents(t *testing.T) {
	req := require.New(t)

	_, server := newTestHub(t)
	conn, _ := dial(t, server)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	env := readEnvelope(t, conn)
	req.Equal(EventError, env.Event)

	var payload ErrorPayload
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal(errs.ErrInvalidJSONFormat, payload.Code)

	send(t, conn, EventMessageRoom, "nobody listening")
	env = readEnvelope(t, conn)
	req.Equal(EventError, env.Event)
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal(errs.ErrNotInRoom, payload.Code)
}

func TestHub_DisconnectRemovesSession(t *testing.T) {
	req := require.New(t)

	// Given A and B in r1
	hub, server := newTestHub(t)
	connA, _ := dial(t, server)
	connB, idB := dial(t, server)
	join(t, connA, "r1", "A")
	join(t, connB, "r1", "B")

	// When B's socket closes
	req.NoError(connB.Close())

	// Then A is alerted and B's session is gone
	alert := readMessage(t, connA)
	req.Equal(TypeAlert, alert.Type)
	req.Equal("B", alert.Name)

	var found bool
	var members []string
	req.NoError(hub.Query(context.Background(), func() {
		_, found = hub.Relay().users.Find(idB)
		members = hub.Relay().rooms.Get("r1").Members()
	}))
	req.False(found)
	req.Len(members, 1)
}

func TestHub_StopClosesClientsAndRejectsWork(t *testing.T) {
	req := require.New(t)

	hub, server := newTestHub(t)
	conn, _ := dial(t, server)

	hub.Stop()
	hub.Stop()

	req.NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.Error(err)

	req.ErrorIs(hub.Query(context.Background(), func() {}), ErrHubStopped)
}

func TestHub_EmitDropsFramesForFullQueue(t *testing.T) {
	req := require.New(t)

	// Given a registered client with room for one frame and no write loop draining it
	hub := NewHub(user.NewRegistry(), NewManager(), persist.Discard{})
	go hub.Run()
	t.Cleanup(hub.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewClient(hub, nil, 1)
	id, err := hub.Connect(ctx, client)
	req.NoError(err)
	req.Equal(EventConnected, decodeFrame(t, <-client.send).Event)

	// When two frames are emitted from the loop
	req.NoError(hub.Query(ctx, func() {
		hub.Emit([]string{id}, EventMessage, NewAlert("first", "r1"))
		hub.Emit([]string{id}, EventMessage, NewAlert("second", "r1"))
	}))

	// Then the loop did not block, the first frame is queued and the second was dropped
	req.Len(client.send, 1)

	var msg Message
	req.NoError(json.Unmarshal(decodeFrame(t, <-client.send).Data, &msg))
	req.Equal("first", msg.Name)
	req.Empty(client.send)

	// And the hub keeps serving
	req.NoError(hub.Query(ctx, func() {}))
}

func decodeFrame(t *testing.T, frame []byte) Envelope {
	t.Helper()

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	return env
}
