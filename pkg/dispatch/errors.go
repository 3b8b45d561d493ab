package dispatch

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// CodeBadSession is the JSON-RPC error code for a request that cannot be
// routed to a session.
const CodeBadSession = -32000

// ProtocolError is a request-level failure reported to the client as a
// JSON-RPC error with a null id. The server keeps running.
type ProtocolError struct {
	Code    int64
	Message string
}

// ErrNoValidSession rejects a POST that neither names a live session nor
// initializes a new one.
var ErrNoValidSession = &ProtocolError{
	Code:    CodeBadSession,
	Message: "Bad Request: No valid session ID provided",
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

type protocolErrorBody struct {
	JSONRPC string         `json:"jsonrpc"`
	Error   *jsonrpc.Error `json:"error"`
	ID      any            `json:"id"`
}

// MarshalJSON encodes e as a JSON-RPC error response.
func (e *ProtocolError) MarshalJSON() ([]byte, error) {
	body := protocolErrorBody{
		JSONRPC: "2.0",
		Error:   &jsonrpc.Error{Code: e.Code, Message: e.Message},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding protocol error: %w", err)
	}
	return b, nil
}

// writeProtocolError answers with status and e as the body.
func writeProtocolError(w http.ResponseWriter, status int, e *ProtocolError) {
	b, err := e.MarshalJSON()
	if err != nil {
		http.Error(w, e.Message, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
