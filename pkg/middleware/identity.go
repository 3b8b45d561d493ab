package middleware

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/auth"
	apphttp "github.com/jonathanscholtes/azure-devops-mcp/pkg/http"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/mcpcontext"
)

// UserAgentFunc builds the user agent presented to Azure DevOps from the
// client's initialize details, which may be nil.
type UserAgentFunc func(client *mcp.Implementation) string

// MCPIdentityMiddleware binds the state of the inbound request to the call
// context: the caller's bearer token (when the transport supplied one), the
// caller identity read from it, the server session and the user agent.
//
// The bearer is taken from the request itself, so each call sees exactly the
// token its own HTTP request carried and nothing once the call returns.
func MCPIdentityMiddleware(userAgent UserAgentFunc) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if req == nil {
				return next(ctx, method, req)
			}

			ctx = bindIdentity(ctx, req.GetExtra())

			if ss, ok := req.GetSession().(*mcp.ServerSession); ok && ss != nil {
				ctx = mcpcontext.WithServerSession(ctx, ss)
				if userAgent != nil {
					ctx = mcpcontext.WithUserAgent(ctx, userAgent(clientInfo(ss)))
				}
			}

			return next(ctx, method, req)
		}
	}
}

func bindIdentity(ctx context.Context, extra *mcp.RequestExtra) context.Context {
	if extra == nil || extra.TokenInfo == nil {
		return ctx
	}
	token := apphttp.Assertion(extra.TokenInfo)
	if token == "" {
		return ctx
	}

	ctx = mcpcontext.WithExternalToken(ctx, token)
	if id, ok := auth.InspectToken(token); ok {
		ctx = auth.WithIdentity(ctx, id)
	}
	return ctx
}

func clientInfo(ss *mcp.ServerSession) *mcp.Implementation {
	if p := ss.InitializeParams(); p != nil {
		return p.ClientInfo
	}
	return nil
}
