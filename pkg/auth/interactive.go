package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// InteractiveClientID is the public client registration used for delegated
// sign-in to Azure DevOps.
const InteractiveClientID = "0d50963b-7bb9-4fe7-94c7-a99af00b5136"

const loginFlightKey = "interactive-login"

// publicClient is the subset of the MSAL public client used here.
type publicClient interface {
	AcquireTokenInteractive(ctx context.Context, scopes []string, opts ...public.AcquireInteractiveOption) (public.AuthResult, error)
	AcquireTokenSilent(ctx context.Context, scopes []string, opts ...public.AcquireSilentOption) (public.AuthResult, error)
}

// AccountState is the cache state of an InteractiveBackend.
type AccountState int

// Account states.
const (
	NoAccount AccountState = iota
	CachedAccount
)

func (s AccountState) String() string {
	if s == CachedAccount {
		return "cached-account"
	}
	return "no-account"
}

// InteractiveBackend signs a human in through the system browser and keeps
// the resulting account for silent refresh.
//
// Transitions:
//
//	NoAccount     --interactive ok--> CachedAccount
//	CachedAccount --silent ok-------> CachedAccount
//	CachedAccount --silent failed---> one interactive attempt (ok: CachedAccount, failed: AuthError)
//
// Concurrent interactive attempts share a single browser prompt; callers
// queue behind it until the human finishes.
type InteractiveBackend struct {
	client  publicClient
	openURL func(string) error

	mu      sync.Mutex
	account public.Account
	state   AccountState

	login singleflight.Group
}

// NewInteractiveBackend creates a backend bound to tenantID, or to any
// organizational tenant when tenantID is empty.
func NewInteractiveBackend(tenantID string) (*InteractiveBackend, error) {
	client, err := public.New(InteractiveClientID, public.WithAuthority(authorityURL(tenantID)))
	if err != nil {
		return nil, &ConfigurationError{
			Field:  "tenant",
			Reason: fmt.Sprintf("creating public client: %v", err),
		}
	}
	return newInteractiveBackend(client, browser.OpenURL), nil
}

func newInteractiveBackend(client publicClient, openURL func(string) error) *InteractiveBackend {
	return &InteractiveBackend{
		client:  client,
		openURL: openURL,
		state:   NoAccount,
	}
}

// Mode implements Backend.
func (*InteractiveBackend) Mode() Mode {
	return ModeInteractive
}

// State returns the current account cache state.
func (b *InteractiveBackend) State() AccountState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Acquire implements Backend. The assertion is ignored.
func (b *InteractiveBackend) Acquire(ctx context.Context, _ string) (*oauth2.Token, error) {
	if account, ok := b.cachedAccount(); ok {
		res, err := b.client.AcquireTokenSilent(ctx, scopes(), public.WithSilentAccount(account))
		if err == nil && res.AccessToken != "" {
			b.remember(res.Account)
			return tokenFromResult(res), nil
		}
		slog.Debug("interactive auth: silent refresh failed, falling back to browser login",
			"account", account.PreferredUsername, "error", err)
	}

	return b.interactive(ctx)
}

// interactive runs the browser flow. Concurrent callers share one flow,
// which runs detached from any single caller so that one caller giving up
// does not fail the others. Each caller still stops waiting when its own
// context ends.
func (b *InteractiveBackend) interactive(ctx context.Context) (*oauth2.Token, error) {
	flowCtx := context.WithoutCancel(ctx)
	ch := b.login.DoChan(loginFlightKey, func() (any, error) {
		slog.Info("interactive auth: waiting for browser sign-in")
		res, err := b.client.AcquireTokenInteractive(flowCtx, scopes(), public.WithOpenURL(b.openURL))
		if err != nil {
			return nil, err
		}
		if res.AccessToken == "" {
			return nil, ErrNoToken
		}
		b.remember(res.Account)
		return res, nil
	})

	var result singleflight.Result
	select {
	case <-ctx.Done():
		return nil, authErr(ModeInteractive, "browser login", ctx.Err())
	case result = <-ch:
	}
	if result.Err != nil {
		return nil, authErr(ModeInteractive, "browser login", result.Err)
	}

	res, ok := result.Val.(public.AuthResult)
	if !ok {
		return nil, authErr(ModeInteractive, "browser login", ErrNoToken)
	}
	if result.Shared {
		slog.Debug("interactive auth: reused concurrent sign-in")
	}
	return tokenFromResult(res), nil
}

func (b *InteractiveBackend) cachedAccount() (public.Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account, b.state == CachedAccount
}

func (b *InteractiveBackend) remember(account public.Account) {
	if account.IsZero() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.account = account
	b.state = CachedAccount
}

func tokenFromResult(res public.AuthResult) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: res.AccessToken,
		TokenType:   tokenTypeBearer,
		Expiry:      res.ExpiresOn,
	}
}

var _ Backend = (*InteractiveBackend)(nil)
