package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/auth"
	apphttp "github.com/jonathanscholtes/azure-devops-mcp/pkg/http"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/mcpcontext"
)

const testObjectID = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"

func tokenInfo(t *testing.T, token string) *sdkauth.TokenInfo {
	t.Helper()
	info, err := apphttp.VerifyBearer(context.Background(), token, nil)
	require.NoError(t, err)
	return info
}

func callRequest(name string, extra *mcp.RequestExtra) *mcp.CallToolRequest {
	return &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name},
		Extra:  extra,
	}
}

// captured is what a handler saw in its context.
type captured struct {
	token    string
	identity auth.Identity
	hasID    bool
}

func capture(out *captured) mcp.MethodHandler {
	return func(ctx context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		out.token = mcpcontext.ExternalToken(ctx)
		out.identity, out.hasID = auth.GetIdentity(ctx)
		return &mcp.CallToolResult{}, nil
	}
}

func TestMCPIdentityMiddleware_BindsBearer(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"oid": testObjectID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	var got captured
	handler := MCPIdentityMiddleware(nil)(capture(&got))

	_, err = handler(context.Background(), methodToolsCall, callRequest("t", &mcp.RequestExtra{TokenInfo: tokenInfo(t, raw)}))
	require.NoError(t, err)

	assert.Equal(t, raw, got.token)
	require.True(t, got.hasID)
	assert.Equal(t, testObjectID, got.identity.Owner())
}

func TestMCPIdentityMiddleware_OpaqueBearer(t *testing.T) {
	var got captured
	handler := MCPIdentityMiddleware(nil)(capture(&got))

	_, err := handler(context.Background(), methodToolsCall, callRequest("t", &mcp.RequestExtra{TokenInfo: tokenInfo(t, "opaque")}))
	require.NoError(t, err)

	assert.Equal(t, "opaque", got.token)
	assert.False(t, got.hasID)
}

func TestMCPIdentityMiddleware_NoBearer(t *testing.T) {
	tests := []struct {
		name string
		req  mcp.Request
	}{
		{name: "nil request"},
		{name: "no extra", req: callRequest("t", nil)},
		{name: "no token info", req: callRequest("t", &mcp.RequestExtra{})},
		{name: "token info without assertion", req: callRequest("t", &mcp.RequestExtra{TokenInfo: &sdkauth.TokenInfo{}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got captured
			handler := MCPIdentityMiddleware(nil)(capture(&got))

			_, err := handler(context.Background(), methodToolsCall, tt.req)
			require.NoError(t, err)

			assert.Empty(t, got.token)
			assert.False(t, got.hasID)
		})
	}
}

func TestMCPIdentityMiddleware_ConcurrentCallsIsolated(t *testing.T) {
	handler := MCPIdentityMiddleware(nil)(func(ctx context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		// Yield so calls interleave.
		time.Sleep(time.Millisecond)
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: mcpcontext.ExternalToken(ctx)}}}, nil
	})

	tokens := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	got := make([]string, len(tokens))
	var wg sync.WaitGroup
	for i, tok := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var extra *mcp.RequestExtra
			if tok != "d" {
				extra = &mcp.RequestExtra{TokenInfo: tokenInfo(t, tok)}
			}
			res, err := handler(context.Background(), methodToolsCall, callRequest("t", extra))
			if err == nil {
				got[i] = res.(*mcp.CallToolResult).Content[0].(*mcp.TextContent).Text
			}
		}()
	}
	wg.Wait()

	want := append([]string(nil), tokens...)
	want[3] = ""
	assert.Equal(t, want, got)
}
