// Package http provides HTTP middleware that carries the caller's bearer
// token from the inbound request into the MCP call it triggers.
package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/auth"
)

const (
	// MissingUserTokenMessage is the response body for an on-behalf-of
	// request that carries no bearer token.
	MissingUserTokenMessage = "Bad Request: missing user token for on-behalf-of authentication"

	// assertionKey holds the raw bearer in TokenInfo.Extra.
	assertionKey = "assertion"

	// opaqueTokenLifetime is the assumed lifetime of a bearer that is not a
	// JWT and so carries no expiry of its own.
	opaqueTokenLifetime = time.Hour
)

// BearerToken returns the bearer token from the Authorization header, or ""
// when there is none. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) string {
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return ""
	}
	return fields[1]
}

// VerifyBearer is a TokenVerifier that accepts any well-formed bearer. It
// does not check signatures: the token is only forwarded to Entra ID or
// Azure DevOps, which do. Identity and expiry are read from the token when
// it is a JWT.
func VerifyBearer(_ context.Context, token string, _ *http.Request) (*sdkauth.TokenInfo, error) {
	info := &sdkauth.TokenInfo{
		Expiration: time.Now().Add(opaqueTokenLifetime),
		Extra:      map[string]any{assertionKey: token},
	}
	if id, ok := auth.InspectToken(token); ok {
		info.UserID = id.Owner()
		if !id.Expiry.IsZero() {
			info.Expiration = id.Expiry
		}
	}
	return info, nil
}

// Assertion returns the raw bearer carried by info, or "".
func Assertion(info *sdkauth.TokenInfo) string {
	if info == nil {
		return ""
	}
	tok, _ := info.Extra[assertionKey].(string)
	return tok
}

// RequestIdentity returns middleware that attaches the request's bearer
// token to the request for modes that act as the caller. In on-behalf-of
// mode a request without a bearer is rejected with 400; in other modes the
// request proceeds without an identity.
func RequestIdentity(mode auth.Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !mode.UsesRequestIdentity() {
			return next
		}
		withToken := sdkauth.RequireBearerToken(VerifyBearer, nil)(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if BearerToken(r) != "" {
				withToken.ServeHTTP(w, r)
				return
			}
			if mode.RequiresUserToken() {
				http.Error(w, MissingUserTokenMessage, http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Owner returns the stable identity of the request's caller: the JWT object
// id or subject of its bearer, or "" for anonymous and opaque-token callers.
func Owner(r *http.Request) string {
	if info := sdkauth.TokenInfoFromContext(r.Context()); info != nil {
		return info.UserID
	}
	if id, ok := auth.InspectToken(BearerToken(r)); ok {
		return id.Owner()
	}
	return ""
}
