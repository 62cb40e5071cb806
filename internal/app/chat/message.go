package chat

import (
	"encoding/json"
	"time"

	"roomrelay/internal/pkg/randx"
)

// MessageType tags a relayed message.
type MessageType string

const (
	// TypeMessage is a chat message written by a user.
	TypeMessage MessageType = "Message"

	// TypeAlert is a presence notice, e.g. a user leaving a room.
	TypeAlert MessageType = "Alert"
)

// Inbound event names.
const (
	EventJoin        = "JOIN"
	EventMessageRoom = "MESSAGEROOM"
	EventMessage     = "MESSAGE"
	EventLeaveRoom   = "leaveRoom"
)

// Outbound event names. EventMessage is used in both directions.
const (
	EventPreviousMessages = "previousMessages"
	EventConnected        = "connected"
	EventError            = "error"
)

// Message is one entry of a room log and the payload of an outbound MESSAGE event.
// Name is the sender's display name at send time and is never rewritten afterwards.
type Message struct {
	ID        string      `json:"id,omitempty"`
	Text      string      `json:"text,omitempty"`
	Name      string      `json:"name,omitempty"`
	Client    string      `json:"client,omitempty"`
	Room      string      `json:"room,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

// NewMessage builds a chat message stamped with the sender's current profile.
func NewMessage(text, senderName, senderID, room string) Message {
	return Message{
		ID:        randx.MessageID(),
		Text:      text,
		Name:      senderName,
		Client:    senderID,
		Room:      room,
		Type:      TypeMessage,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewAlert builds a presence alert carrying the affected user's name.
func NewAlert(name, room string) Message {
	return Message{
		Name:      name,
		Room:      room,
		Type:      TypeAlert,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Envelope is the frame exchanged over the socket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload is the data of an inbound JOIN event.
type JoinPayload struct {
	Room string `json:"room" validate:"required,max=128"`
	Name string `json:"name" validate:"max=64"`
}

// ConnectedPayload tells a new socket its connection id.
type ConnectedPayload struct {
	ID string `json:"id"`
}

// ErrorPayload is the data of an outbound error event.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// encodeEnvelope marshals an outbound frame.
func encodeEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
