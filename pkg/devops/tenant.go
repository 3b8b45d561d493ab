package devops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

const (
	// DefaultIdentityURL hosts the organization identity service whose
	// responses name the backing tenant.
	DefaultIdentityURL = "https://vssps.dev.azure.com"

	// TenantHeader carries the organization's Entra ID tenant.
	TenantHeader = "X-Vss-Resourcetenant"

	// FallbackTenant is used when the tenant cannot be determined.
	FallbackTenant = "organizations"

	tenantLookupTries = 3
	tenantLookupDelay = 200 * time.Millisecond
)

var errNoTenantHeader = errors.New("response carried no tenant header")

// TenantResolver maps an organization to the Entra ID tenant that backs
// it. Results are cached for the life of the process.
type TenantResolver struct {
	baseURL    string
	httpClient *http.Client
	maxTries   uint
	delay      time.Duration

	mu    sync.Mutex
	cache map[string]string
}

// TenantOption configures a TenantResolver.
type TenantOption func(*TenantResolver)

// WithIdentityURL overrides the identity service host.
func WithIdentityURL(u string) TenantOption {
	return func(r *TenantResolver) {
		r.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTenantHTTPClient sets the HTTP client used for lookups.
func WithTenantHTTPClient(c *http.Client) TenantOption {
	return func(r *TenantResolver) {
		r.httpClient = c
	}
}

// WithRetry sets the number of attempts and the initial delay between them.
func WithRetry(tries uint, delay time.Duration) TenantOption {
	return func(r *TenantResolver) {
		r.maxTries = tries
		r.delay = delay
	}
}

// NewTenantResolver returns a resolver against the public identity service.
func NewTenantResolver(opts ...TenantOption) *TenantResolver {
	r := &TenantResolver{
		baseURL:    DefaultIdentityURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxTries:   tenantLookupTries,
		delay:      tenantLookupDelay,
		cache:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns organization's tenant id. Any failure, or an all-zero
// tenant, yields FallbackTenant; fallbacks are not cached.
func (r *TenantResolver) Resolve(ctx context.Context, organization string) string {
	r.mu.Lock()
	tenant, ok := r.cache[organization]
	r.mu.Unlock()
	if ok {
		return tenant
	}

	tenant, err := r.lookup(ctx, organization)
	if err != nil {
		slog.Warn("tenant lookup failed, using fallback",
			"organization", organization,
			"fallback", FallbackTenant,
			slogKeyError, err)
		return FallbackTenant
	}

	r.mu.Lock()
	r.cache[organization] = tenant
	r.mu.Unlock()

	slog.Debug("resolved organization tenant", "organization", organization, "tenant", tenant)
	return tenant
}

func (r *TenantResolver) lookup(ctx context.Context, organization string) (string, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = r.delay
	expBackoff.Reset()

	operation := func() (string, error) {
		return r.fetch(ctx, organization)
	}

	tries := max(r.maxTries, 1)
	tenant, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			slog.Debug("retrying tenant lookup", "organization", organization, "wait", wait, slogKeyError, err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("looking up tenant for %s: %w", organization, err)
	}
	return tenant, nil
}

func (r *TenantResolver) fetch(ctx context.Context, organization string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.baseURL+"/"+organization, http.NoBody)
	if err != nil {
		return "", backoff.Permanent(err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("identity service returned %d", resp.StatusCode)
	}

	tenant := strings.TrimSpace(resp.Header.Get(TenantHeader))
	if tenant == "" {
		return "", backoff.Permanent(errNoTenantHeader)
	}
	id, err := uuid.Parse(tenant)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("malformed tenant %q: %w", tenant, err))
	}
	if id == uuid.Nil {
		return "", backoff.Permanent(errors.New("organization reported the empty tenant"))
	}
	return id.String(), nil
}
