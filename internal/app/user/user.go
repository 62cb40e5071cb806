/*
Package user holds the connected users of the relay and the session registry that owns them.

A user lives exactly as long as its WebSocket connection: it is created on connect,
mutated by join, message and leave events, and removed on disconnect.
*/
package user

// User is the mutable profile attached to one live connection.
type User struct {
	// ID is the connection id. It is generated by the session registry.
	ID string `json:"id"`

	// Name is the display name; empty until the first JOIN.
	Name string `json:"name"`

	// Room is the current room name; empty means "no room".
	Room string `json:"room"`

	// Messages is the ordered log of message bodies sent by this user.
	Messages []string `json:"messages"`
}

// InRoom reports whether the user is currently attached to a room.
func (u User) InRoom() bool {
	return u.Room != ""
}

func (u User) clone() User {
	c := u
	c.Messages = append(make([]string, 0, len(u.Messages)), u.Messages...)
	return c
}
