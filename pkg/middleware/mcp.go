package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/auth"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/mcpcontext"
)

const slogKeyError = "error"

// ToolCallObserver records completed tool calls.
type ToolCallObserver interface {
	ObserveToolCall(tool string, isError bool, elapsed time.Duration)
}

// MCPToolCallMiddleware creates MCP protocol-level middleware that wraps
// tools/call requests with a CallContext, logs their outcome and reports
// them to observer, which may be nil.
func MCPToolCallMiddleware(observer ToolCallObserver) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			toolName, err := extractToolName(req)
			if err != nil {
				return createErrorResult(fmt.Sprintf("invalid request: %v", err)), nil
			}

			cc := NewCallContext()
			cc.ToolName = toolName
			if ss := mcpcontext.GetServerSession(ctx); ss != nil {
				cc.SessionID = ss.ID()
			}
			if id, ok := auth.GetIdentity(ctx); ok {
				cc.Owner = id.Owner()
			}
			ctx = WithCallContext(ctx, cc)

			result, err := next(ctx, method, req)

			cc.Duration = time.Since(cc.StartTime)
			cc.Success = err == nil && !isErrorResult(result)
			cc.ErrorMessage = errorMessage(result, err)

			logToolCall(cc)
			if observer != nil {
				observer.ObserveToolCall(cc.ToolName, !cc.Success, cc.Duration)
			}
			return result, err
		}
	}
}

func logToolCall(cc *CallContext) {
	attrs := []any{
		"request_id", cc.RequestID,
		"session_id", cc.SessionID,
		"tool", cc.ToolName,
		"owner", cc.Owner,
		"duration_ms", cc.Duration.Milliseconds(),
	}
	if cc.Success {
		slog.Info("tool call completed", attrs...)
		return
	}
	slog.Warn("tool call failed", append(attrs, slogKeyError, cc.ErrorMessage)...)
}

// extractToolName extracts the tool name from a tools/call request.
func extractToolName(req mcp.Request) (string, error) {
	if req == nil {
		return "", errors.New("missing params")
	}
	params := req.GetParams()
	if params == nil {
		return "", errors.New("missing params")
	}

	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok {
		return "", fmt.Errorf("unexpected params type: %T", params)
	}

	// The type assertion succeeds for a typed nil pointer.
	if callParams == nil {
		return "", errors.New("missing params")
	}

	if callParams.Name == "" {
		return "", errors.New("missing tool name")
	}

	return callParams.Name, nil
}

func isErrorResult(result mcp.Result) bool {
	r, ok := result.(*mcp.CallToolResult)
	return ok && r != nil && r.IsError
}

func errorMessage(result mcp.Result, err error) string {
	if err != nil {
		return err.Error()
	}
	r, ok := result.(*mcp.CallToolResult)
	if !ok || r == nil || !r.IsError {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// createErrorResult creates a tool result carrying errMsg.
func createErrorResult(errMsg string) mcp.Result {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: errMsg},
		},
	}
}
