package errs

import (
	"fmt"
	"net/http"
	"strings"

	"roomrelay/internal/pkg/logx"
)

// CustomError is the error type returned by the relay and the HTTP handlers.
// It carries a business code, a client-facing message and the HTTP status to use.
type CustomError struct {
	// Code is the business error code (see error_codes.go).
	Code int `json:"code"`

	// Message is the client-facing description.
	Message string `json:"message"`

	// Status is the HTTP status used when the error is written as a response.
	Status int `json:"-"`
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a *CustomError from a registered code.
// details are printf arguments for messages that contain verbs; for ErrUnknown the first
// detail may be the underlying error, which is logged. Unregistered codes map to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("error code %d is not registered", code),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	switch {
	case len(details) == 0:
	case code == ErrUnknown || code == ErrPersistenceFailed:
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Internal error", "code", code)
		}
	case strings.Contains(customErr.Message, "%"):
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	default:
		logx.Warn("Details provided for an error without format verbs. Details ignored.", "code", code)
	}

	return &customErr
}
