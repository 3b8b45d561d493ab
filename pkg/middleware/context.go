// Package middleware provides MCP protocol-level middleware: per-call
// identity binding, tool call logging and client log notifications.
package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// contextKey is a private type for context keys.
type contextKey int

const (
	callContextKey contextKey = iota
)

const methodToolsCall = "tools/call"

// CallContext describes one tool call as it moves through the middleware.
type CallContext struct {
	// Request identification
	RequestID string
	SessionID string
	StartTime time.Time

	// Owner is the caller's stable identity, when known.
	Owner string

	ToolName string

	// Results (populated after the handler)
	Success      bool
	ErrorMessage string
	Duration     time.Duration
}

// NewCallContext creates a call context with a fresh request id.
func NewCallContext() *CallContext {
	return &CallContext{
		RequestID: uuid.NewString(),
		StartTime: time.Now(),
	}
}

// WithCallContext adds cc to the context.
func WithCallContext(ctx context.Context, cc *CallContext) context.Context {
	return context.WithValue(ctx, callContextKey, cc)
}

// GetCallContext retrieves the call context, or nil.
func GetCallContext(ctx context.Context) *CallContext {
	if cc, ok := ctx.Value(callContextKey).(*CallContext); ok {
		return cc
	}
	return nil
}
