package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/mcpcontext"
)

// loggerName identifies this server in client log notifications.
const loggerName = "azure-devops-mcp"

// sessionLogger abstracts the ServerSession.Log method for testability.
type sessionLogger interface {
	Log(ctx context.Context, params *mcp.LoggingMessageParams) error
}

// ClientLoggingConfig configures server-to-client logging middleware.
type ClientLoggingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MCPClientLoggingMiddleware creates MCP protocol-level middleware that sends
// a log notification to the client when a tool call fails. It must run
// inside MCPToolCallMiddleware, which provides the CallContext.
//
// The client only receives the log if it has previously called
// logging/setLevel; otherwise ServerSession.Log() is a silent no-op.
func MCPClientLoggingMiddleware(cfg ClientLoggingConfig) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		if !cfg.Enabled {
			return next
		}

		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			result, err := next(ctx, method, req)

			sendClientLog(ctx, result, err)

			return result, err
		}
	}
}

// sendClientLog notifies the client of a failed call. All errors are
// ignored: client logging is best-effort.
func sendClientLog(ctx context.Context, result mcp.Result, handlerErr error) {
	if handlerErr == nil && !isErrorResult(result) {
		return
	}

	cc := GetCallContext(ctx)
	if cc == nil {
		return
	}

	session := mcpcontext.GetServerSession(ctx)
	if session == nil {
		return
	}

	emitClientLog(ctx, session, cc.ToolName, errorMessage(result, handlerErr))
}

// emitClientLog builds and sends a log notification to the client.
func emitClientLog(ctx context.Context, logger sessionLogger, tool, reason string) {
	if err := logger.Log(ctx, &mcp.LoggingMessageParams{
		Level:  "warning",
		Logger: loggerName,
		Data:   fmt.Sprintf("%s failed: %s", tool, reason),
	}); err != nil {
		slog.Debug("client logging: failed to send log notification", slogKeyError, err)
	}
}
