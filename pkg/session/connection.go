package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Connection is a Conn backed by an MCP streamable HTTP transport and the
// server session running on it.
type Connection struct {
	transport *mcp.StreamableServerTransport
	ss        *mcp.ServerSession

	closeOnce sync.Once
	closeErr  error

	mu     sync.Mutex
	ended  bool
	hooks  []func()
	doneCh chan struct{}
}

// Connect starts a server session for id on a new streamable transport.
// The session ends when the client deletes it, when Close is called, or when
// the transport fails.
func Connect(ctx context.Context, server *mcp.Server, id string) (*Connection, error) {
	t := &mcp.StreamableServerTransport{SessionID: id}
	ss, err := server.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting session %s: %w", id, err)
	}

	c := &Connection{
		transport: t,
		ss:        ss,
		doneCh:    make(chan struct{}),
	}
	go c.watch()
	return c, nil
}

// watch waits for the server session to end and runs the close hooks.
func (c *Connection) watch() {
	_ = c.ss.Wait()

	c.mu.Lock()
	c.ended = true
	hooks := c.hooks
	c.hooks = nil
	c.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	close(c.doneCh)
}

// ServeHTTP implements http.Handler.
func (c *Connection) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.transport.ServeHTTP(w, r)
}

// Close implements Conn.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.ss.Close()
	})
	return c.closeErr
}

// OnClose implements Conn.
func (c *Connection) OnClose(fn func()) {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		fn()
		return
	}
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// Done is closed once the session has ended and its close hooks have run.
func (c *Connection) Done() <-chan struct{} {
	return c.doneCh
}

// Initialized reports whether the client completed the initialize
// handshake.
func (c *Connection) Initialized() bool {
	return c.ss.InitializeParams() != nil
}

// ClientInfo returns the implementation details the client sent in its
// initialize request, or nil before the handshake.
func (c *Connection) ClientInfo() *mcp.Implementation {
	if p := c.ss.InitializeParams(); p != nil {
		return p.ClientInfo
	}
	return nil
}

// ServerSession returns the underlying MCP session.
func (c *Connection) ServerSession() *mcp.ServerSession {
	return c.ss
}

var _ Conn = (*Connection)(nil)
