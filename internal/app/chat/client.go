package chat

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"roomrelay/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of one inbound frame.
	maxFrameSize = 16384

	// DefaultSendQueueSize is used when NewClient is given a non-positive size.
	DefaultSendQueueSize = 256
)

// Client is one live WebSocket connection. Its id is assigned by the Hub on connect.
type Client struct {
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// id is the connection id; empty until the hub registers the client.
	id string

	// outbound frames. Only the hub loop sends on or closes it.
	send chan []byte

	logger zerolog.Logger
}

// NewClient wraps conn. Call Start to register it with hub and run its pumps.
func NewClient(hub *Hub, conn *websocket.Conn, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}

	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, queueSize),
		logger: logx.Component("client"),
	}
}

// ID returns the connection id assigned by the hub.
func (c *Client) ID() string {
	return c.id
}

// bind is called on the hub loop when the client is registered.
func (c *Client) bind(id string) {
	c.id = id
	c.logger = c.logger.With().Str("conn_id", id).Logger()
}

// Start registers the client and serves it until the connection closes.
// It blocks in the read loop; the write loop runs on its own goroutine.
func (c *Client) Start(ctx context.Context) error {
	if _, err := c.hub.Connect(ctx, c); err != nil {
		_ = c.conn.Close()
		return err
	}

	go c.WritePump()
	c.ReadPump()
	return nil
}

// ReadPump forwards inbound frames to the hub until the connection fails,
// then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
	}()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			return
		}

		if err := c.hub.Dispatch(c, raw); err != nil {
			return
		}
	}
}

// WritePump drains the send queue to the socket and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeFrame writes one queued frame, or a close frame when the queue was closed.
// It returns false when the write loop should stop.
func (c *Client) writeFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
