// Package mcpcontext provides context helpers for per-call MCP state.
// These are in a separate package to avoid import cycles between
// auth, middleware and toolkit packages.
package mcpcontext

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// contextKey is a private type for context keys.
type contextKey int

const (
	serverSessionKey contextKey = iota
	externalTokenKey
	userAgentKey
)

// WithServerSession adds a ServerSession to the context.
func WithServerSession(ctx context.Context, ss *mcp.ServerSession) context.Context {
	return context.WithValue(ctx, serverSessionKey, ss)
}

// GetServerSession retrieves the ServerSession from the context.
func GetServerSession(ctx context.Context) *mcp.ServerSession {
	ss, _ := ctx.Value(serverSessionKey).(*mcp.ServerSession)
	return ss
}

// WithExternalToken binds the caller-supplied bearer token to one call.
// An empty token leaves ctx unchanged.
func WithExternalToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, externalTokenKey, token)
}

// ExternalToken returns the bearer token bound to this call, or "" when the
// call did not supply one.
func ExternalToken(ctx context.Context) string {
	tok, _ := ctx.Value(externalTokenKey).(string)
	return tok
}

// WithUserAgent records the user agent to present to Azure DevOps.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey, ua)
}

// UserAgent returns the user agent recorded for this call, or "".
func UserAgent(ctx context.Context) string {
	ua, _ := ctx.Value(userAgentKey).(string)
	return ua
}
