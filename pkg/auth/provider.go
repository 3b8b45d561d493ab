package auth

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/mcpcontext"
)

// slogKeyError is the structured-log key for error values.
const slogKeyError = "error"

// Acquisition outcomes reported to an AcquisitionObserver.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AcquisitionObserver records token acquisitions.
type AcquisitionObserver interface {
	ObserveTokenAcquisition(mode, outcome string, elapsed time.Duration)
}

// Provider is the single token source used by every tool call. It resolves
// which user assertion applies to the call and delegates to its Backend.
type Provider struct {
	backend  Backend
	observer AcquisitionObserver
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithObserver reports every acquisition to o.
func WithObserver(o AcquisitionObserver) ProviderOption {
	return func(p *Provider) {
		p.observer = o
	}
}

// NewProvider wraps backend.
func NewProvider(backend Backend, opts ...ProviderOption) *Provider {
	p := &Provider{backend: backend}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mode returns the backend's mode.
func (p *Provider) Mode() Mode {
	return p.backend.Mode()
}

// Acquire returns a bearer token for this call. The assertion passed to the
// backend is, in order of precedence: assertion when non-empty, the external
// token bound to ctx, or nothing.
func (p *Provider) Acquire(ctx context.Context, assertion string) (*oauth2.Token, error) {
	if assertion == "" {
		assertion = mcpcontext.ExternalToken(ctx)
	}

	start := time.Now()
	tok, err := p.backend.Acquire(ctx, assertion)
	elapsed := time.Since(start)

	mode := p.backend.Mode().String()
	if err != nil {
		p.observe(mode, OutcomeFailure, elapsed)
		slog.Warn("token acquisition failed",
			"mode", mode,
			"assertion", Fingerprint(assertion),
			slogKeyError, err)
		return nil, err
	}

	p.observe(mode, OutcomeSuccess, elapsed)
	slog.Debug("token acquired",
		"mode", mode,
		"assertion", Fingerprint(assertion),
		"expires", tok.Expiry,
		"duration_ms", elapsed.Milliseconds())
	return tok, nil
}

// TokenSource adapts the provider to oauth2.TokenSource. ctx supplies the
// per-call identity and bounds each acquisition.
func (p *Provider) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &providerTokenSource{ctx: ctx, provider: p}
}

func (p *Provider) observe(mode, outcome string, elapsed time.Duration) {
	if p.observer != nil {
		p.observer.ObserveTokenAcquisition(mode, outcome, elapsed)
	}
}

type providerTokenSource struct {
	ctx      context.Context //nolint:containedctx // oauth2.TokenSource has no context parameter
	provider *Provider
}

func (s *providerTokenSource) Token() (*oauth2.Token, error) {
	return s.provider.Acquire(s.ctx, "")
}
