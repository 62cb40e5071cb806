/*
Package randx generates the identifiers used by the relay.

Connection ids name a live WebSocket session; message ids name a relayed message.
Both are random UUID v4 strings.
*/
package randx

import "github.com/google/uuid"

// ConnectionID returns a new identifier for a connection (and therefore a user session).
func ConnectionID() string {
	return uuid.NewString()
}

// MessageID returns a new identifier for a relayed message.
func MessageID() string {
	return uuid.NewString()
}
