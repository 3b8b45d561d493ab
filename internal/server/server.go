// Package server assembles the Azure DevOps MCP server from configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/auth"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/config"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/health"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/metrics"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/middleware"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/registry"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/session"
)

// Version is the version of the server, set at build time.
var Version = "dev"

const slogKeyError = "error"

var errNoTools = errors.New("no tools registered")

// Server is an assembled MCP server: tools, identity, sessions and the
// operational endpoints.
type Server struct {
	cfg      *config.Config
	mcp      *mcp.Server
	provider *auth.Provider
	toolkits *registry.Registry
	sessions *session.Registry
	metrics  *metrics.Metrics
	health   *health.Checker

	life lifecycle
}

// Option configures a Server.
type Option func(*options)

type options struct {
	factory devops.Factory
}

// WithClientFactory replaces the factory that builds organization clients.
func WithClientFactory(f devops.Factory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// New assembles a server for cfg whose tools act through backend.
func New(cfg *config.Config, backend auth.Backend, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if backend == nil {
		return nil, errors.New("authentication backend is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.factory == nil {
		f, err := devops.NewClientFactory(cfg.Organization)
		if err != nil {
			return nil, err
		}
		o.factory = f
	}

	s := &Server{
		cfg:      cfg,
		sessions: session.NewRegistry(),
	}
	s.metrics = metrics.New(Version, s.sessions.Len)
	s.health = health.NewChecker(
		health.WithVersion(Version),
		health.WithSessions(s.sessions.Len),
		health.WithCheck("toolkits", s.checkToolkits),
	)
	s.provider = auth.NewProvider(backend, auth.WithObserver(s.metrics))

	clients := devops.NewClients(s.provider, o.factory, devops.UserAgent(Version, nil))
	s.toolkits = registry.NewRegistry(clients)
	registry.RegisterBuiltinFactories(s.toolkits)

	domains := cfg.EnabledDomains()
	if err := registry.NewLoader(s.toolkits).Load(registry.LoaderConfig{
		Domains:  domains,
		Toolkits: cfg.Toolkits,
	}); err != nil {
		_ = s.toolkits.Close()
		return nil, fmt.Errorf("loading toolkits: %w", err)
	}
	s.life.onClose("toolkits", s.toolkits)

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: Version,
	}, &mcp.ServerOptions{
		Instructions: cfg.Server.Instructions,
	})

	// Receiving middleware runs first-to-last: identity binds the caller,
	// tool-call observes the call, client logging reports failures.
	s.mcp.AddReceivingMiddleware(
		middleware.MCPIdentityMiddleware(devops.UserAgentFunc(Version)),
		middleware.MCPToolCallMiddleware(s.metrics),
		middleware.MCPClientLoggingMiddleware(middleware.ClientLoggingConfig{
			Enabled: cfg.ClientLogging.Enabled,
		}),
	)

	s.toolkits.RegisterAllTools(s.mcp)
	registerPrompts(s.mcp, cfg.Server.Prompts)

	slog.Info("server assembled",
		"organization", cfg.Organization,
		"authentication", backend.Mode().String(),
		"domains", domains.String(),
		"tools", len(s.toolkits.AllTools()))

	return s, nil
}

// NewFromConfig builds the authentication backend for cfg and assembles a
// server around it. Interactive sign-in without a configured tenant uses the
// tenant that backs the organization.
func NewFromConfig(ctx context.Context, cfg *config.Config, resolver *devops.TenantResolver, opts ...Option) (*Server, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}

	tenant := cfg.Tenant
	if tenant == "" && mode == auth.ModeInteractive && resolver != nil {
		tenant = resolver.Resolve(ctx, cfg.Organization)
	}

	authCfg, err := cfg.AuthConfig(tenant)
	if err != nil {
		return nil, err
	}
	backend, err := auth.NewBackend(authCfg)
	if err != nil {
		return nil, err
	}
	return New(cfg, backend, opts...)
}

// checkToolkits fails readiness when no tool is registered.
func (s *Server) checkToolkits(context.Context) error {
	if s.toolkits == nil || len(s.toolkits.AllTools()) == 0 {
		return errNoTools
	}
	return nil
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Sessions returns the live HTTP session registry.
func (s *Server) Sessions() *session.Registry {
	return s.sessions
}

// Metrics returns the server's metrics.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Health returns the readiness checker.
func (s *Server) Health() *health.Checker {
	return s.health
}

// Toolkits returns the loaded toolkits.
func (s *Server) Toolkits() *registry.Registry {
	return s.toolkits
}

// Run serves the configured transport until ctx is cancelled, then shuts
// down.
func (s *Server) Run(ctx context.Context) error {
	switch s.cfg.Server.Transport {
	case config.TransportHTTP:
		return s.ServeHTTP(ctx, s.cfg.ListenAddress())
	case config.TransportStdio, "":
		return s.ServeStdio(ctx)
	default:
		return &auth.ConfigurationError{
			Field:  "server.transport",
			Reason: fmt.Sprintf("unknown transport %q", s.cfg.Server.Transport),
		}
	}
}

// ServeStdio serves a single session over standard input and output.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.health.SetReady()
	slog.Info("serving over stdio")

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if ctx.Err() != nil {
		err = nil
	}
	return joinShutdown(err, s.Close())
}

// Close releases every resource the server holds. It is safe to call more
// than once.
func (s *Server) Close() error {
	s.health.SetDraining()
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer cancel()
	return s.life.stop(ctx)
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.cfg.Server.ShutdownTimeout > 0 {
		return s.cfg.Server.ShutdownTimeout
	}
	return config.DefaultShutdownTimeout
}
