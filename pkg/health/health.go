// Package health serves liveness and readiness for the MCP endpoint.
// Readiness combines the server's lifecycle state with named dependency
// checks and reports the number of live sessions.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// State is a point in the server's readiness lifecycle.
type State int32

// Lifecycle states. A server starts in Starting, becomes Ready once its
// transport is serving, and moves to Draining on shutdown.
const (
	Starting State = iota
	Ready
	Draining
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Draining:
		return "draining"
	default:
		return "starting"
	}
}

const (
	checkOK      = "ok"
	checkTimeout = 2 * time.Second
)

// CheckFunc reports whether a dependency the server needs is usable.
type CheckFunc func(ctx context.Context) error

type namedCheck struct {
	name string
	fn   CheckFunc
}

// Checker tracks readiness. It is safe for concurrent use.
type Checker struct {
	state    atomic.Int32
	started  time.Time
	version  string
	sessions func() int
	checks   []namedCheck
}

// Option configures a Checker.
type Option func(*Checker)

// WithSessions reports the live session count in readiness responses.
func WithSessions(count func() int) Option {
	return func(c *Checker) {
		c.sessions = count
	}
}

// WithVersion includes the server version in readiness responses.
func WithVersion(version string) Option {
	return func(c *Checker) {
		c.version = version
	}
}

// WithCheck adds a named dependency check. A failing check makes the server
// unready even while its state is Ready.
func WithCheck(name string, fn CheckFunc) Option {
	return func(c *Checker) {
		c.checks = append(c.checks, namedCheck{name: name, fn: fn})
	}
}

// NewChecker creates a Checker in the Starting state.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{started: time.Now()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetReady transitions to Ready.
func (c *Checker) SetReady() {
	c.state.Store(int32(Ready))
}

// SetDraining transitions to Draining.
func (c *Checker) SetDraining() {
	c.state.Store(int32(Draining))
}

// Current returns the lifecycle state.
func (c *Checker) Current() State {
	return State(c.state.Load())
}

// IsReady reports whether the lifecycle state is Ready. Dependency checks
// are only run by the readiness handler.
func (c *Checker) IsReady() bool {
	return c.Current() == Ready
}

// State returns the lifecycle state as a string.
func (c *Checker) State() string {
	return c.Current().String()
}

// Report is the readiness response body.
type Report struct {
	Status        string            `json:"status"`
	Version       string            `json:"version,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Sessions      *int              `json:"sessions,omitempty"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// Evaluate runs every check and reports whether the server can take
// traffic.
func (c *Checker) Evaluate(ctx context.Context) (Report, bool) {
	ready := c.IsReady()
	report := Report{
		Status:        c.State(),
		Version:       c.version,
		UptimeSeconds: int64(time.Since(c.started).Seconds()),
	}
	if c.sessions != nil {
		n := c.sessions()
		report.Sessions = &n
	}

	if len(c.checks) > 0 {
		report.Checks = make(map[string]string, len(c.checks))
		for _, check := range c.checks {
			if err := check.fn(ctx); err != nil {
				report.Checks[check.name] = err.Error()
				ready = false
				continue
			}
			report.Checks[check.name] = checkOK
		}
	}
	if !ready && c.IsReady() {
		report.Status = "degraded"
	}
	return report, ready
}

// LivenessHandler always answers 200 while the process can serve HTTP.
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": checkOK})
	}
}

// ReadinessHandler answers 200 when Ready and every check passes, and 503
// otherwise.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		report, ready := c.Evaluate(ctx)
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
