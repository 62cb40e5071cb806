package errs

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewError_FormatsDetails(t *testing.T) {
	err := NewError(ErrUnknownEvent, "PING")

	require.Equal(t, ErrUnknownEvent, err.Code)
	require.Equal(t, `Unsupported event "PING".`, err.Message)
	require.Equal(t, http.StatusOK, err.Status)
}

func TestNewError_UnregisteredCodeFallsBackToUnknown(t *testing.T) {
	err := NewError(4242)

	require.Equal(t, ErrUnknown, err.Code)
	require.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestNewError_KeepsTemplateStatus(t *testing.T) {
	require.Equal(t, http.StatusNotFound, NewError(ErrRoomNotFound).Status)
	require.Equal(t, http.StatusTooManyRequests, NewError(ErrRateLimitExceeded).Status)
}
