package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredential struct {
	token   azcore.AccessToken
	err     error
	request policy.TokenRequestOptions
}

func (f *fakeCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.request = opts
	return f.token, f.err
}

func TestServiceChainBackend_Acquire(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	cred := &fakeCredential{token: azcore.AccessToken{Token: "svc-token", ExpiresOn: exp}}
	b := newServiceChainBackend(ModeServiceChainCLI, cred)

	tok, err := b.Acquire(context.Background(), "ignored-assertion")
	require.NoError(t, err)

	assert.Equal(t, "svc-token", tok.AccessToken)
	assert.Equal(t, exp, tok.Expiry)
	assert.Equal(t, []string{AzureDevOpsScope}, cred.request.Scopes)
	assert.Equal(t, ModeServiceChainCLI, b.Mode())
}

func TestServiceChainBackend_ExhaustedChain(t *testing.T) {
	upstream := errors.New("no credential source available")
	b := newServiceChainBackend(ModeServiceChainEnv, &fakeCredential{err: upstream})

	_, err := b.Acquire(context.Background(), "")

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ModeServiceChainEnv, ae.Mode)
	assert.ErrorIs(t, err, upstream)
}

func TestServiceChainBackend_EmptyToken(t *testing.T) {
	b := newServiceChainBackend(ModeServiceChainCLI, &fakeCredential{})

	_, err := b.Acquire(context.Background(), "")

	require.ErrorIs(t, err, ErrNoToken)
	assert.True(t, IsAuthError(err))
}

func TestChainSources(t *testing.T) {
	t.Run("cli without tenant", func(t *testing.T) {
		sources, err := chainSources(ModeServiceChainCLI, "")
		require.NoError(t, err)
		require.Len(t, sources, 2)
		assert.IsType(t, &azidentity.AzureCLICredential{}, sources[0])
		assert.IsType(t, &azidentity.AzureDeveloperCLICredential{}, sources[1])
	})

	t.Run("tenant pins cli credential first", func(t *testing.T) {
		sources, err := chainSources(ModeServiceChainCLI, testTenantID)
		require.NoError(t, err)
		require.Len(t, sources, 3)
		assert.IsType(t, &azidentity.AzureCLICredential{}, sources[0])
	})

	t.Run("env uses default credential", func(t *testing.T) {
		sources, err := chainSources(ModeServiceChainEnv, "")
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.IsType(t, &azidentity.DefaultAzureCredential{}, sources[0])
	})

	t.Run("env with tenant", func(t *testing.T) {
		sources, err := chainSources(ModeServiceChainEnv, testTenantID)
		require.NoError(t, err)
		require.Len(t, sources, 2)
		assert.IsType(t, &azidentity.AzureCLICredential{}, sources[0])
		assert.IsType(t, &azidentity.DefaultAzureCredential{}, sources[1])
	})

	t.Run("invalid tenant", func(t *testing.T) {
		_, err := chainSources(ModeServiceChainCLI, "not a tenant!")
		assert.True(t, IsConfigurationError(err))
	})

	t.Run("non-chain mode", func(t *testing.T) {
		_, err := chainSources(ModeExternal, "")
		assert.True(t, IsConfigurationError(err))
	})
}
