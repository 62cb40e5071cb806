package errs

import "net/http"

// errorMap holds the template CustomError for every known code.
var errorMap = map[int]CustomError{
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Malformed JSON.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	ErrRoomNotFound:          {Code: ErrRoomNotFound, Message: "Room not found.", Status: http.StatusNotFound},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d bytes)."},
	ErrUnknownEvent:          {Code: ErrUnknownEvent, Message: "Unsupported event %q."},

	ErrUnknownUser:   {Code: ErrUnknownUser, Message: "No session for this connection."},
	ErrNotInRoom:     {Code: ErrNotInRoom, Message: "Join a room before sending room messages."},
	ErrDuplicateUser: {Code: ErrDuplicateUser, Message: "Session already registered."},

	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrPersistenceFailed: {Code: ErrPersistenceFailed, Message: "State export failed.", Status: http.StatusInternalServerError},
}
