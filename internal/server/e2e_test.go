package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/auth"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops/devopstest"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkit/toolkittest"
)

// exchangeBackend stands in for an on-behalf-of exchange.
type exchangeBackend struct{}

func (exchangeBackend) Mode() auth.Mode { return auth.ModeOnBehalfOf }

func (exchangeBackend) Acquire(_ context.Context, assertion string) (*oauth2.Token, error) {
	if assertion == "" {
		return nil, &auth.AuthError{Mode: auth.ModeOnBehalfOf, Op: "exchange", Err: auth.ErrMissingAssertion}
	}
	return &oauth2.Token{AccessToken: "exchanged-" + assertion, TokenType: "Bearer"}, nil
}

type bearerTransport struct {
	token string
}

func (b *bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return http.DefaultTransport.RoundTrip(r)
}

// serve runs s on a loopback listener until the test ends and returns the
// MCP endpoint URL.
func serve(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(testTimeout):
			t.Error("server did not shut down")
		}
	})

	require.Eventually(t, s.Health().IsReady, testTimeout, 10*time.Millisecond)
	return "http://" + ln.Addr().String() + MCPPath
}

func connectHTTP(t *testing.T, endpoint, bearer string) *mcp.ClientSession {
	t.Helper()
	httpClient := http.DefaultClient
	if bearer != "" {
		httpClient = &http.Client{Transport: &bearerTransport{token: bearer}}
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "copilot", Version: "1.2.0"}, nil)
	cs, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint:   endpoint,
		HTTPClient: httpClient,
		MaxRetries: -1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callListProjects(t *testing.T, cs *mcp.ClientSession) *mcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "core_list_projects", Arguments: map[string]any{}})
	require.NoError(t, err)
	return res
}

func newModeServer(t *testing.T, mode auth.Mode, backend auth.Backend) (*Server, *recordingFactory) {
	t.Helper()
	cfg := testConfig(t, "core")
	cfg.Authentication = string(mode)
	factory := &recordingFactory{client: &devopstest.Client{
		Projects: []devops.Project{{ID: "1", Name: "Fabrikam"}},
	}}
	s, err := New(cfg, backend, WithClientFactory(factory))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, factory
}

func TestE2E_ExternalWithoutBearerFailsBeforeOrgCall(t *testing.T) {
	s, factory := newModeServer(t, auth.ModeExternal, auth.NewPassthroughBackend())
	cs := connectHTTP(t, serve(t, s), "")

	res := callListProjects(t, cs)
	require.True(t, res.IsError)
	assert.Contains(t, toolkittest.Text(t, res), "external authentication")

	factory.mu.Lock()
	defer factory.mu.Unlock()
	assert.Empty(t, factory.tokens)
}

func TestE2E_ExternalBearerReachesOrgClient(t *testing.T) {
	s, factory := newModeServer(t, auth.ModeExternal, auth.NewPassthroughBackend())
	cs := connectHTTP(t, serve(t, s), "user-token")

	res := callListProjects(t, cs)
	require.False(t, res.IsError)

	factory.mu.Lock()
	defer factory.mu.Unlock()
	assert.Equal(t, []string{"user-token"}, factory.tokens)
}

func TestE2E_OnBehalfOfUsesExchangedToken(t *testing.T) {
	s, factory := newModeServer(t, auth.ModeOnBehalfOf, exchangeBackend{})
	cs := connectHTTP(t, serve(t, s), "U")

	res := callListProjects(t, cs)
	require.False(t, res.IsError)

	factory.mu.Lock()
	defer factory.mu.Unlock()
	require.Len(t, factory.tokens, 1)
	assert.NotEqual(t, "U", factory.tokens[0])
	assert.Equal(t, "exchanged-U", factory.tokens[0])
}

func TestE2E_OnBehalfOfWithoutBearerIsRejected(t *testing.T) {
	s, _ := newModeServer(t, auth.ModeOnBehalfOf, exchangeBackend{})
	endpoint := serve(t, s)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, endpoint, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, s.Sessions().Len())
}
