// Package dispatch multiplexes many MCP sessions over one HTTP endpoint.
// Every inbound request either continues a live session, establishes a new
// one, or is rejected.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/auth"
	apphttp "github.com/jonathanscholtes/azure-devops-mcp/pkg/http"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/metrics"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/session"
)

const (
	// DefaultMaxBodyBytes bounds the size of a POST body.
	DefaultMaxBodyBytes int64 = 4 << 20

	// InvalidSessionMessage is the body for GET and DELETE requests that do
	// not name a live session.
	InvalidSessionMessage = "Invalid or missing session ID"

	allowedMethods = "GET, POST, DELETE"

	slogKeyError = "error"
)

// Conn is a session connection that can report whether the client finished
// the initialize handshake.
type Conn interface {
	session.Conn
	Initialized() bool
}

// ConnectFunc starts a new connection for session id.
type ConnectFunc func(ctx context.Context, id string) (Conn, error)

// Observer records dispatch outcomes.
type Observer interface {
	ObserveDispatch(method, outcome string)
}

// Config configures a Dispatcher.
type Config struct {
	Registry *session.Registry
	Connect  ConnectFunc

	// Mode decides how the caller's bearer token is carried into calls.
	Mode auth.Mode

	// MaxBodyBytes bounds POST bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	Observer Observer
}

// Dispatcher is the http.Handler for the MCP endpoint.
type Dispatcher struct {
	registry *session.Registry
	connect  ConnectFunc
	mode     auth.Mode
	maxBody  int64
	observer Observer

	post http.Handler
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		registry: cfg.Registry,
		connect:  cfg.Connect,
		mode:     cfg.Mode,
		maxBody:  cfg.MaxBodyBytes,
		observer: cfg.Observer,
	}
	if d.maxBody <= 0 {
		d.maxBody = DefaultMaxBodyBytes
	}
	d.post = apphttp.RequestIdentity(cfg.Mode)(http.HandlerFunc(d.servePOST))
	return d
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		d.post.ServeHTTP(w, r)
	case http.MethodGet, http.MethodDelete:
		d.serveExisting(w, r)
	default:
		w.Header().Set("Allow", allowedMethods)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// servePOST runs after the caller's identity has been attached to r. The
// body is bounded before any routing decision.
func (d *Dispatcher) servePOST(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			d.observe(r.Method, metrics.OutcomeReject)
			http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	if id := r.Header.Get(session.HeaderID); id != "" {
		sess, ok := d.registry.Get(id)
		if !ok {
			slog.Debug("dispatch: unknown session", "session_id", id)
			d.reject(w, r)
			return
		}
		d.continueSession(w, r, sess)
		return
	}

	if !isInitialize(body) {
		d.reject(w, r)
		return
	}
	d.establish(w, r)
}

// establish creates a session for an initialize request.
func (d *Dispatcher) establish(w http.ResponseWriter, r *http.Request) {
	id := d.registry.NewID()
	conn, err := d.connect(r.Context(), id)
	if err != nil {
		slog.Error("dispatch: failed to connect session", "session_id", id, slogKeyError, err)
		http.Error(w, "failed connection", http.StatusInternalServerError)
		return
	}

	owner := d.owner(r)
	d.registry.Create(id, owner, conn)
	d.observe(r.Method, metrics.OutcomeEstablish)
	slog.Debug("dispatch: establishing session", "session_id", id, "owner", owner)

	conn.ServeHTTP(w, r)

	if !conn.Initialized() {
		slog.Debug("dispatch: initialize failed, closing session", "session_id", id)
		_ = conn.Close()
	}
}

// continueSession routes r to an existing session owned by the caller.
func (d *Dispatcher) continueSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !sess.OwnedBy(d.owner(r)) {
		slog.Warn("dispatch: session owner mismatch", "session_id", sess.ID)
		d.observe(r.Method, metrics.OutcomeReject)
		http.Error(w, "Forbidden: session owner mismatch", http.StatusForbidden)
		return
	}

	d.observe(r.Method, metrics.OutcomeContinue)
	sess.Conn.ServeHTTP(w, r)
}

// serveExisting handles GET and DELETE, which only address live sessions.
func (d *Dispatcher) serveExisting(w http.ResponseWriter, r *http.Request) {
	sess, ok := d.registry.Get(r.Header.Get(session.HeaderID))
	if !ok {
		d.observe(r.Method, metrics.OutcomeReject)
		http.Error(w, InvalidSessionMessage, http.StatusBadRequest)
		return
	}

	if r.Method != http.MethodDelete {
		d.continueSession(w, r, sess)
		return
	}

	if !sess.OwnedBy(d.owner(r)) {
		d.observe(r.Method, metrics.OutcomeReject)
		http.Error(w, "Forbidden: session owner mismatch", http.StatusForbidden)
		return
	}
	if err := sess.Conn.Close(); err != nil {
		slog.Debug("dispatch: close failed", "session_id", sess.ID, slogKeyError, err)
		d.registry.Remove(sess.ID)
	}
	d.observe(r.Method, metrics.OutcomeContinue)
	slog.Debug("dispatch: session deleted", "session_id", sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// owner returns the caller identity sessions are bound to. Only modes that
// act as the caller have one; elsewhere the Authorization header is ignored.
func (d *Dispatcher) owner(r *http.Request) string {
	if !d.mode.UsesRequestIdentity() {
		return ""
	}
	return apphttp.Owner(r)
}

func (d *Dispatcher) reject(w http.ResponseWriter, r *http.Request) {
	d.observe(r.Method, metrics.OutcomeReject)
	writeProtocolError(w, http.StatusBadRequest, ErrNoValidSession)
}

func (d *Dispatcher) observe(method, outcome string) {
	if d.observer != nil {
		d.observer.ObserveDispatch(method, outcome)
	}
}

// SessionConnector adapts session.Connect to a ConnectFunc.
func SessionConnector(connect func(ctx context.Context, id string) (*session.Connection, error)) ConnectFunc {
	return func(ctx context.Context, id string) (Conn, error) {
		c, err := connect(ctx, id)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

var _ http.Handler = (*Dispatcher)(nil)
