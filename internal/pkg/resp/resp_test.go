package resp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"roomrelay/internal/pkg/errs"
)

func TestRespondSuccess(t *testing.T) {
	req := require.New(t)
	rec := httptest.NewRecorder()

	RespondSuccess(rec, map[string]string{"status": "ok"})

	req.Equal(http.StatusOK, rec.Code)
	req.Equal("application/json", rec.Header().Get("Content-Type"))
	req.JSONEq(`{"code":0,"message":"success","data":{"status":"ok"}}`, rec.Body.String())
}

func TestRespondError(t *testing.T) {
	req := require.New(t)
	rec := httptest.NewRecorder()

	RespondError(rec, errs.NewError(errs.ErrRoomNotFound))

	req.Equal(http.StatusNotFound, rec.Code)

	var body JSONResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.Equal(errs.ErrRoomNotFound, body.Code)
	req.Nil(body.Data)
}

func TestRespondError_NilBecomesUnknown(t *testing.T) {
	rec := httptest.NewRecorder()

	RespondError(rec, nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
