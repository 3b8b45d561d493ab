package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/auth"
	apphttp "github.com/jonathanscholtes/azure-devops-mcp/pkg/http"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/session"
)

const e2eTimeout = 5 * time.Second

// bearerTransport adds a fixed bearer to every outgoing request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(r)
}

func newE2EServer(t *testing.T, mode auth.Mode) (*httptest.Server, *session.Registry) {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{Name: "e2e", Version: "0.0.1"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "whoami", Description: "Echo the caller's bearer."},
		func(_ context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
			who := "anonymous"
			if req.Extra != nil {
				if a := apphttp.Assertion(req.Extra.TokenInfo); a != "" {
					who = a
				}
			}
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: who}}}, nil, nil
		})

	registry := session.NewRegistry()
	d := New(Config{
		Registry: registry,
		Connect: SessionConnector(func(ctx context.Context, id string) (*session.Connection, error) {
			return session.Connect(ctx, server, id)
		}),
		Mode: mode,
	})

	ts := httptest.NewServer(d)
	t.Cleanup(func() {
		_ = registry.CloseAll()
		ts.Close()
	})
	return ts, registry
}

func connectClient(t *testing.T, endpoint, bearer string) *mcp.ClientSession {
	t.Helper()
	httpClient := &http.Client{Transport: &bearerTransport{token: bearer, base: http.DefaultTransport}}
	if bearer == "" {
		httpClient = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(context.Background(), e2eTimeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "e2e-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint:   endpoint,
		HTTPClient: httpClient,
		MaxRetries: -1,
	}, nil)
	require.NoError(t, err)
	return cs
}

func callWhoami(t *testing.T, cs *mcp.ClientSession) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), e2eTimeout)
	defer cancel()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "whoami"})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestE2E_SessionLifecycle(t *testing.T) {
	ts, registry := newE2EServer(t, auth.ModeInteractive)

	cs := connectClient(t, ts.URL, "")
	id := cs.ID()
	require.NotEmpty(t, id)

	_, ok := registry.Get(id)
	require.True(t, ok)
	assert.Equal(t, "anonymous", callWhoami(t, cs))

	require.NoError(t, cs.Close())
	assert.Eventually(t, func() bool { return registry.Len() == 0 }, e2eTimeout, 10*time.Millisecond)

	req, err := http.NewRequest(http.MethodGet, ts.URL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set(session.HeaderID, id)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestE2E_ExternalIdentityPerSession(t *testing.T) {
	ts, registry := newE2EServer(t, auth.ModeExternal)

	alice := connectClient(t, ts.URL, "token-alice")
	bob := connectClient(t, ts.URL, "token-bob")
	defer alice.Close()
	defer bob.Close()

	assert.NotEqual(t, alice.ID(), bob.ID())
	assert.Equal(t, 2, registry.Len())
	assert.Equal(t, "token-alice", callWhoami(t, alice))
	assert.Equal(t, "token-bob", callWhoami(t, bob))
}

func TestE2E_RejectsNonInitializeWithoutSession(t *testing.T) {
	ts, registry := newE2EServer(t, auth.ModeInteractive)

	resp, err := http.Post(ts.URL, "application/json", strings.NewReader(toolsListBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, registry.Len())
}
