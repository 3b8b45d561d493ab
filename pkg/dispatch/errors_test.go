package dispatch

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wantNoValidSession = `{"jsonrpc":"2.0","error":{"code":-32000,"message":"Bad Request: No valid session ID provided"},"id":null}`

func TestProtocolError_MarshalJSON(t *testing.T) {
	b, err := ErrNoValidSession.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, wantNoValidSession, string(b))
}

func TestProtocolError_Error(t *testing.T) {
	assert.Equal(t, "protocol error -32000: Bad Request: No valid session ID provided", ErrNoValidSession.Error())
}

func TestWriteProtocolError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeProtocolError(rr, http.StatusBadRequest, ErrNoValidSession)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, wantNoValidSession, rr.Body.String())
}
