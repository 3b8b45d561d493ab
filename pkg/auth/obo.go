package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"
	"golang.org/x/oauth2"
)

// errAssertionEchoed is returned when the exchange hands back the token it
// was given instead of a token for the downstream resource.
var errAssertionEchoed = errors.New("exchange returned the user assertion unchanged")

// confidentialClient is the subset of the MSAL confidential client used here.
type confidentialClient interface {
	AcquireTokenOnBehalfOf(ctx context.Context, userAssertion string, scopes []string, opts ...confidential.AcquireOnBehalfOfOption) (confidential.AuthResult, error)
}

// OnBehalfOfBackend exchanges an inbound user token for an Azure DevOps
// token issued to the same user, using this server's client credentials.
type OnBehalfOfBackend struct {
	client confidentialClient
}

// NewOnBehalfOfBackend creates the backend. Both client id and secret are
// required.
func NewOnBehalfOfBackend(tenantID string, creds *ServiceCredentials) (*OnBehalfOfBackend, error) {
	if creds == nil || strings.TrimSpace(creds.ClientID) == "" || strings.TrimSpace(creds.ClientSecret) == "" {
		return nil, &ConfigurationError{
			Field:  "AZURE_CLIENT_ID/AZURE_CLIENT_SECRET",
			Reason: "on-behalf-of authentication requires a client id and client secret",
		}
	}

	cred, err := confidential.NewCredFromSecret(creds.ClientSecret)
	if err != nil {
		return nil, &ConfigurationError{Field: "AZURE_CLIENT_SECRET", Reason: err.Error()}
	}

	client, err := confidential.New(authorityURL(tenantID), creds.ClientID, cred)
	if err != nil {
		return nil, &ConfigurationError{
			Field:  "AZURE_CLIENT_ID",
			Reason: fmt.Sprintf("creating confidential client: %v", err),
		}
	}
	return newOnBehalfOfBackend(client), nil
}

func newOnBehalfOfBackend(client confidentialClient) *OnBehalfOfBackend {
	return &OnBehalfOfBackend{client: client}
}

// Mode implements Backend.
func (*OnBehalfOfBackend) Mode() Mode {
	return ModeOnBehalfOf
}

// Acquire exchanges assertion. A missing assertion fails without any network
// call.
func (b *OnBehalfOfBackend) Acquire(ctx context.Context, assertion string) (*oauth2.Token, error) {
	assertion = strings.TrimSpace(assertion)
	if assertion == "" {
		return nil, authErr(ModeOnBehalfOf, "token exchange", ErrMissingAssertion)
	}

	res, err := b.client.AcquireTokenOnBehalfOf(ctx, assertion, scopes())
	if err != nil {
		return nil, authErr(ModeOnBehalfOf, "token exchange", err)
	}
	switch res.AccessToken {
	case "":
		return nil, authErr(ModeOnBehalfOf, "token exchange", ErrNoToken)
	case assertion:
		return nil, authErr(ModeOnBehalfOf, "token exchange", errAssertionEchoed)
	}

	return &oauth2.Token{
		AccessToken: res.AccessToken,
		TokenType:   tokenTypeBearer,
		Expiry:      res.ExpiresOn,
	}, nil
}

var _ Backend = (*OnBehalfOfBackend)(nil)
