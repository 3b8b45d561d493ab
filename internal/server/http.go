package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/dispatch"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/session"
)

const (
	// MCPPath is the streamable HTTP endpoint.
	MCPPath = "/mcp"

	readHeaderTimeout = 10 * time.Second
)

// Handler returns the HTTP handler for the MCP endpoint and the operational
// endpoints.
func (s *Server) Handler() http.Handler {
	d := dispatch.New(dispatch.Config{
		Registry: s.sessions,
		Connect: dispatch.SessionConnector(func(ctx context.Context, id string) (*session.Connection, error) {
			return session.Connect(ctx, s.mcp, id)
		}),
		Mode:         s.provider.Mode(),
		MaxBodyBytes: s.cfg.Server.MaxBodyBytes,
		Observer:     s.metrics,
	})

	mux := http.NewServeMux()
	mux.Handle(MCPPath, d)
	mux.Handle("GET /healthz", s.health.LivenessHandler())
	mux.Handle("GET /readyz", s.health.ReadinessHandler())
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

// ServeHTTP listens on addr and serves until ctx is cancelled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves HTTP on ln until ctx is cancelled. Shutdown drains readiness,
// closes live sessions, then stops the listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.life.onStop("http", srv.Shutdown)
	s.life.onStop("sessions", func(context.Context) error { return s.sessions.CloseAll() })

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.health.SetReady()
	slog.Info("serving over http", "address", ln.Addr().String(), "path", MCPPath)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return joinShutdown(err, s.Close())
	case <-ctx.Done():
		slog.Info("shutting down", "sessions", s.sessions.Len())
		if err := s.Close(); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func joinShutdown(serveErr, closeErr error) error {
	if closeErr != nil {
		closeErr = fmt.Errorf("shutdown: %w", closeErr)
	}
	return errors.Join(serveErr, closeErr)
}
