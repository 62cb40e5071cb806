/*
Package errs provides the application error type and its numeric error codes.

The same codes are used in HTTP JSON responses and in the "error" event sent over a
WebSocket connection, so clients can branch on them without parsing messages.
*/
package errs

// 1xxx: request and payload errors
const (
	// ErrInvalidParams indicates that a request or event payload failed validation.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that a frame or request body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrRateLimitExceeded indicates that the client exceeded the connection rate limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: room and message errors
const (
	// ErrRoomNotFound indicates that the referenced room does not exist.
	ErrRoomNotFound = 2103

	// ErrMessageContentTooLong indicates that a message body exceeded the size limit.
	ErrMessageContentTooLong = 2201

	// ErrUnknownEvent indicates that a frame named an event the relay does not handle.
	ErrUnknownEvent = 2202
)

// 3xxx: session errors
const (
	// ErrUnknownUser indicates that no session exists for the connection id.
	// It is distinct from a known user whose name or room is still empty.
	ErrUnknownUser = 3001

	// ErrNotInRoom indicates that the user is not a member of any room (or of the room it claims).
	ErrNotInRoom = 3002

	// ErrDuplicateUser indicates that a session with the same id is already registered.
	ErrDuplicateUser = 3003
)

// 5xxx: internal errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000

	// ErrPersistenceFailed indicates that a registry snapshot could not be exported.
	ErrPersistenceFailed = 5001
)
