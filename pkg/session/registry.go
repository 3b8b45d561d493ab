package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// slogKeyError is the slog attribute key for error values.
const slogKeyError = "error"

// Registry maps session ids to live sessions. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// NewID returns a fresh, globally unique session id.
func (*Registry) NewID() string {
	return uuid.NewString()
}

// Create registers conn under id. If id is already registered the new
// session replaces it. The session is removed when conn closes.
func (r *Registry) Create(id, owner string, conn Conn) *Session {
	sess := &Session{
		ID:        id,
		Owner:     owner,
		CreatedAt: r.now(),
		Conn:      conn,
	}

	r.mu.Lock()
	_, replaced := r.sessions[id]
	r.sessions[id] = sess
	r.mu.Unlock()

	if replaced {
		slog.Warn("session: replaced existing session", "session_id", id)
	}
	slog.Debug("session: created", "session_id", id)

	conn.OnClose(func() {
		r.remove(id, sess)
	})
	return sess
}

// Get returns the session registered under id.
func (r *Registry) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Remove drops id from the registry without closing its connection.
// Removing an unknown id is a no-op. Sessions normally leave through their
// connection's close hook; Remove covers connections that fail to close.
func (r *Registry) Remove(id string) {
	r.remove(id, nil)
}

// remove is the single removal path. A non-nil sess drops id only while it
// still maps to sess, so closing a replaced connection cannot evict its
// successor.
func (r *Registry) remove(id string, sess *Session) bool {
	r.mu.Lock()
	cur, ok := r.sessions[id]
	if !ok || (sess != nil && cur != sess) {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	slog.Debug("session: removed", "session_id", id)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns a snapshot of the live sessions.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// CloseAll closes every live connection. Sessions leave the registry through
// their close hooks.
func (r *Registry) CloseAll() error {
	var errs []error
	for _, s := range r.List() {
		if err := s.Conn.Close(); err != nil {
			slog.Debug("session: close failed", "session_id", s.ID, slogKeyError, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
