package dispatch

import (
	"bytes"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

const methodInitialize = "initialize"

// isInitialize reports whether body is an initialize request, either alone
// or as a member of a batch. Malformed frames are not initialize requests.
func isInitialize(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}

	if trimmed[0] != '[' {
		return isInitializeMessage(trimmed)
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(trimmed, &batch); err != nil {
		return false
	}
	for _, raw := range batch {
		if isInitializeMessage(raw) {
			return true
		}
	}
	return false
}

func isInitializeMessage(raw []byte) bool {
	msg, err := jsonrpc.DecodeMessage(raw)
	if err != nil {
		return false
	}
	req, ok := msg.(*jsonrpc.Request)
	return ok && req.Method == methodInitialize && req.ID.IsValid()
}
