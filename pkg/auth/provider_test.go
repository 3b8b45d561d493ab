package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/mcpcontext"
)

// recordingBackend echoes the assertion it receives.
type recordingBackend struct {
	mode Mode

	mu   sync.Mutex
	seen []string
}

func (b *recordingBackend) Mode() Mode { return b.mode }

func (b *recordingBackend) Acquire(_ context.Context, assertion string) (*oauth2.Token, error) {
	b.mu.Lock()
	b.seen = append(b.seen, assertion)
	b.mu.Unlock()
	if assertion == "" {
		return nil, authErr(b.mode, "record", ErrMissingAssertion)
	}
	return &oauth2.Token{AccessToken: "for:" + assertion, TokenType: tokenTypeBearer}, nil
}

type observation struct {
	mode    string
	outcome string
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *recordingObserver) ObserveTokenAcquisition(mode, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, observation{mode: mode, outcome: outcome})
}

func TestProvider_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		explicit  string
		external  string
		wantSeen  string
		wantError bool
	}{
		{name: "explicit wins over external", explicit: "explicit", external: "external", wantSeen: "explicit"},
		{name: "external used when no explicit", external: "external", wantSeen: "external"},
		{name: "neither", wantSeen: "", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &recordingBackend{mode: ModeExternal}
			p := NewProvider(backend)
			ctx := mcpcontext.WithExternalToken(context.Background(), tt.external)

			tok, err := p.Acquire(ctx, tt.explicit)

			require.Len(t, backend.seen, 1)
			assert.Equal(t, tt.wantSeen, backend.seen[0])
			if tt.wantError {
				assert.True(t, IsAuthError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "for:"+tt.wantSeen, tok.AccessToken)
		})
	}
}

func TestProvider_ConcurrentCallsKeepTheirIdentity(t *testing.T) {
	p := NewProvider(NewPassthroughBackend())

	users := []string{"user-a", "user-b", "user-c", "user-d", "user-e"}
	var wg sync.WaitGroup
	got := make([]string, len(users))
	for i, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := mcpcontext.WithExternalToken(context.Background(), u)
			tok, err := p.Acquire(ctx, "")
			if err == nil {
				got[i] = tok.AccessToken
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, users, got)
}

func TestProvider_NoLeakAfterCallReturns(t *testing.T) {
	p := NewProvider(NewPassthroughBackend())

	ctx := mcpcontext.WithExternalToken(context.Background(), "user-a")
	_, err := p.Acquire(ctx, "")
	require.NoError(t, err)

	// A later call with no token of its own must not see user-a.
	_, err = p.Acquire(context.Background(), "")
	require.ErrorIs(t, err, ErrMissingAssertion)
}

func TestProvider_OnBehalfOfDistinctPerUser(t *testing.T) {
	client := &fakeConfidentialClient{exchange: func(a string) (confidential.AuthResult, error) {
		return confidential.AuthResult{AccessToken: "ado:" + a}, nil
	}}
	p := NewProvider(newOnBehalfOfBackend(client))

	ta, err := p.Acquire(mcpcontext.WithExternalToken(context.Background(), "assertion-a"), "")
	require.NoError(t, err)
	tb, err := p.Acquire(mcpcontext.WithExternalToken(context.Background(), "assertion-b"), "")
	require.NoError(t, err)

	assert.NotEqual(t, ta.AccessToken, tb.AccessToken)
	assert.NotEqual(t, "assertion-a", ta.AccessToken)
}

func TestProvider_Observer(t *testing.T) {
	obs := &recordingObserver{}
	p := NewProvider(&recordingBackend{mode: ModeExternal}, WithObserver(obs))

	_, _ = p.Acquire(context.Background(), "a")
	_, _ = p.Acquire(context.Background(), "")

	assert.Equal(t, []observation{
		{mode: "external", outcome: OutcomeSuccess},
		{mode: "external", outcome: OutcomeFailure},
	}, obs.obs)
}

func TestProvider_TokenSource(t *testing.T) {
	p := NewProvider(NewPassthroughBackend())
	ctx := mcpcontext.WithExternalToken(context.Background(), "user-a")

	tok, err := p.TokenSource(ctx).Token()
	require.NoError(t, err)
	assert.Equal(t, "user-a", tok.AccessToken)

	_, err = p.TokenSource(context.Background()).Token()
	assert.True(t, IsAuthError(err))
}

func TestProvider_Mode(t *testing.T) {
	assert.Equal(t, ModeOnBehalfOf, NewProvider(newOnBehalfOfBackend(&fakeConfidentialClient{})).Mode())
}

func TestProvider_PropagatesBackendError(t *testing.T) {
	boom := errors.New("boom")
	client := &fakeConfidentialClient{exchange: func(string) (confidential.AuthResult, error) {
		return confidential.AuthResult{}, boom
	}}
	_, err := NewProvider(newOnBehalfOfBackend(client)).Acquire(context.Background(), "a")
	assert.ErrorIs(t, err, boom)
}
