// Package toolkittest connects toolkits to an in-memory MCP client for tests.
package toolkittest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// Registrar is the part of a toolkit that installs its tools.
type Registrar interface {
	RegisterTools(s *mcp.Server)
}

// Connect registers r on a fresh server and returns a client session
// connected to it. Both ends are closed when the test ends.
func Connect(t *testing.T, r Registrar) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "0.0.0"}, nil)
	r.RegisterTools(server)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Close()
	})
	return cs
}

// Call invokes tool with args and returns the result.
func Call(t *testing.T, cs *mcp.ClientSession, tool string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: tool, Arguments: args})
	require.NoError(t, err)
	return res
}

// Text returns the single text content of res.
func Text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

// Decode unmarshals the text content of res into v.
func Decode(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(Text(t, res)), v))
}

// ErrorMessage returns the "error" field of an error result.
func ErrorMessage(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError, "expected an error result, got %s", Text(t, res))
	var body struct {
		Error string `json:"error"`
	}
	Decode(t, res, &body)
	return body.Error
}

// ToolNames lists the tools the session's server exposes.
func ToolNames(t *testing.T, cs *mcp.ClientSession) []string {
	t.Helper()
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	return names
}
