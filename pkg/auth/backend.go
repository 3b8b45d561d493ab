// Package auth acquires Azure DevOps bearer tokens. One Backend is selected
// at startup from configuration and wrapped by a Provider, which hands every
// call the identity that belongs to it.
package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	// AzureDevOpsScope is the resource scope requested by every backend.
	AzureDevOpsScope = "499b84ac-1321-427f-aa17-267ca6975798/.default"

	// authorityHost is the Microsoft Entra ID login endpoint.
	authorityHost = "https://login.microsoftonline.com/"

	// defaultTenant lets any work or school account sign in when no tenant
	// is configured.
	defaultTenant = "organizations"

	tokenTypeBearer = "Bearer"
)

// Backend produces a bearer token for one trust model. assertion is the
// caller-supplied user token; backends that do not need one ignore it.
type Backend interface {
	Acquire(ctx context.Context, assertion string) (*oauth2.Token, error)
	Mode() Mode
}

// ServiceCredentials is a confidential-client identity.
type ServiceCredentials struct {
	ClientID     string
	ClientSecret string
}

// Config selects and parameterizes a backend. It is immutable once the
// process has started.
type Config struct {
	Mode               Mode
	TenantID           string
	ServiceCredentials *ServiceCredentials
}

// NewBackend constructs the backend for cfg.Mode. Every mode has exactly one
// constructor; an unknown mode is a ConfigurationError.
func NewBackend(cfg Config) (Backend, error) {
	switch cfg.Mode {
	case ModeInteractive:
		return NewInteractiveBackend(cfg.TenantID)
	case ModeServiceChainCLI, ModeServiceChainEnv:
		return NewServiceChainBackend(cfg.Mode, cfg.TenantID)
	case ModeExternal:
		return NewPassthroughBackend(), nil
	case ModeOnBehalfOf:
		return NewOnBehalfOfBackend(cfg.TenantID, cfg.ServiceCredentials)
	default:
		return nil, &ConfigurationError{
			Field:  "authentication",
			Reason: fmt.Sprintf("unknown mode %q", cfg.Mode),
		}
	}
}

// authorityURL returns the Entra ID authority for tenantID.
func authorityURL(tenantID string) string {
	if tenantID == "" {
		tenantID = defaultTenant
	}
	return authorityHost + tenantID
}

func scopes() []string {
	return []string{AzureDevOpsScope}
}
