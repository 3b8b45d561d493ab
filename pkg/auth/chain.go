package auth

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"golang.org/x/oauth2"
)

// ServiceChainBackend tries an ordered list of non-interactive credential
// sources and returns the first token any of them yields.
type ServiceChainBackend struct {
	mode Mode
	cred azcore.TokenCredential
}

// NewServiceChainBackend builds the credential chain for mode. When tenantID
// is set, an Azure CLI credential pinned to that tenant is tried first.
func NewServiceChainBackend(mode Mode, tenantID string) (*ServiceChainBackend, error) {
	sources, err := chainSources(mode, tenantID)
	if err != nil {
		return nil, err
	}

	chain, err := azidentity.NewChainedTokenCredential(sources, nil)
	if err != nil {
		return nil, &ConfigurationError{Field: "authentication", Reason: fmt.Sprintf("building credential chain: %v", err)}
	}
	return newServiceChainBackend(mode, chain), nil
}

func newServiceChainBackend(mode Mode, cred azcore.TokenCredential) *ServiceChainBackend {
	return &ServiceChainBackend{mode: mode, cred: cred}
}

// chainSources returns the credential sources for mode in the order they are
// tried.
func chainSources(mode Mode, tenantID string) ([]azcore.TokenCredential, error) {
	var sources []azcore.TokenCredential

	if tenantID != "" {
		pinned, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{TenantID: tenantID})
		if err != nil {
			return nil, &ConfigurationError{Field: "tenant", Reason: err.Error()}
		}
		sources = append(sources, pinned)
	}

	switch mode {
	case ModeServiceChainCLI:
		cli, err := azidentity.NewAzureCLICredential(nil)
		if err != nil {
			return nil, fmt.Errorf("creating azure cli credential: %w", err)
		}
		azd, err := azidentity.NewAzureDeveloperCLICredential(nil)
		if err != nil {
			return nil, fmt.Errorf("creating azure developer cli credential: %w", err)
		}
		sources = append(sources, cli, azd)
	case ModeServiceChainEnv:
		def, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("creating default azure credential: %w", err)
		}
		sources = append(sources, def)
	default:
		return nil, &ConfigurationError{
			Field:  "authentication",
			Reason: fmt.Sprintf("mode %q is not a credential chain", mode),
		}
	}

	return sources, nil
}

// Mode implements Backend.
func (b *ServiceChainBackend) Mode() Mode {
	return b.mode
}

// Acquire implements Backend. The assertion is ignored.
func (b *ServiceChainBackend) Acquire(ctx context.Context, _ string) (*oauth2.Token, error) {
	tok, err := b.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: scopes()})
	if err != nil {
		return nil, authErr(b.mode, "credential chain", err)
	}
	if tok.Token == "" {
		return nil, authErr(b.mode, "credential chain", ErrNoToken)
	}
	return &oauth2.Token{
		AccessToken: tok.Token,
		TokenType:   tokenTypeBearer,
		Expiry:      tok.ExpiresOn,
	}, nil
}

var _ Backend = (*ServiceChainBackend)(nil)
