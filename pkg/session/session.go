// Package session tracks the live MCP sessions served over a single HTTP
// endpoint. A Session is created for an initialize request, looked up by id
// for every later request, and removed when its connection closes.
package session

import (
	"net/http"
	"time"
)

// HeaderID is the MCP session header name.
const HeaderID = "Mcp-Session-Id"

// Conn is a live protocol connection bound to one session. ServeHTTP accepts
// the session's GET and POST requests.
type Conn interface {
	http.Handler

	// Close ends the connection. It is safe to call more than once.
	Close() error

	// OnClose registers fn to run once the connection has ended, whether it
	// was closed locally or by the peer. If the connection has already
	// ended, fn runs immediately.
	OnClose(fn func())
}

// Session represents an active client session.
type Session struct {
	// ID is the unique session identifier. It never changes.
	ID string

	// Owner identifies the user that established the session, taken from
	// the bearer token. Empty for sessions established without one.
	Owner string

	// CreatedAt is when the session was established.
	CreatedAt time.Time

	Conn Conn
}

// OwnedBy reports whether a request from owner may use this session.
// Sessions without an owner accept any caller.
func (s *Session) OwnedBy(owner string) bool {
	return s.Owner == "" || s.Owner == owner
}
