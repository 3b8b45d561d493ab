// Package devops talks to one Azure DevOps organization on behalf of a
// caller-supplied bearer token.
package devops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/auth"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/mcpcontext"
)

const (
	// DefaultBaseURL hosts every Azure DevOps Services organization.
	DefaultBaseURL = "https://dev.azure.com"

	// DefaultSearchURL hosts the code search REST API.
	DefaultSearchURL = "https://almsearch.dev.azure.com"

	defaultHTTPTimeout = 30 * time.Second

	slogKeyError = "error"
)

// ErrNoToken is returned when a client is requested without a token.
var ErrNoToken = errors.New("devops: no access token")

// Project is a team project in the organization.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`
	Visibility  string `json:"visibility,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Team is a team inside a project.
type Team struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ProjectName string `json:"projectName,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Repository is a Git repository inside a project.
type Repository struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DefaultBranch string `json:"defaultBranch,omitempty"`
	WebURL        string `json:"webUrl,omitempty"`
	RemoteURL     string `json:"remoteUrl,omitempty"`
	Size          uint64 `json:"size,omitempty"`
}

// WorkItem is a single work item with the fields that were requested.
type WorkItem struct {
	ID     int            `json:"id"`
	Rev    int            `json:"rev"`
	Fields map[string]any `json:"fields"`
	URL    string         `json:"url,omitempty"`
}

// ListProjectsOptions pages through projects.
type ListProjectsOptions struct {
	Top  int
	Skip int
}

// ListTeamsOptions pages through a project's teams.
type ListTeamsOptions struct {
	Mine bool
	Top  int
	Skip int
}

// GetWorkItemOptions narrows a work item read.
type GetWorkItemOptions struct {
	Project string
	Fields  []string
}

// OrgClient is the set of organization operations the toolkits use.
type OrgClient interface {
	ListProjects(ctx context.Context, opts ListProjectsOptions) ([]Project, error)
	ListTeams(ctx context.Context, project string, opts ListTeamsOptions) ([]Team, error)
	ListRepositories(ctx context.Context, project string) ([]Repository, error)
	GetWorkItem(ctx context.Context, id int, opts GetWorkItemOptions) (*WorkItem, error)
	SearchCode(ctx context.Context, req SearchCodeRequest) (*SearchCodeResult, error)
}

// Factory builds an OrgClient that presents tok and userAgent on every
// request.
type Factory interface {
	NewClient(ctx context.Context, tok *oauth2.Token, userAgent string) (OrgClient, error)
}

// TokenSource yields the token for the current call.
type TokenSource interface {
	Acquire(ctx context.Context, assertion string) (*oauth2.Token, error)
}

// ClientProvider yields an OrgClient acting as the current call's identity.
type ClientProvider interface {
	For(ctx context.Context) (OrgClient, error)
}

// ClientFactory is the production Factory, bound to one organization.
type ClientFactory struct {
	organization string
	baseURL      string
	searchURL    string
	httpClient   *http.Client
}

// FactoryOption configures a ClientFactory.
type FactoryOption func(*ClientFactory)

// WithBaseURL overrides the organization host.
func WithBaseURL(u string) FactoryOption {
	return func(f *ClientFactory) {
		f.baseURL = strings.TrimRight(u, "/")
	}
}

// WithSearchURL overrides the code search host.
func WithSearchURL(u string) FactoryOption {
	return func(f *ClientFactory) {
		f.searchURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the base client used for REST calls that bypass the
// SDK.
func WithHTTPClient(c *http.Client) FactoryOption {
	return func(f *ClientFactory) {
		f.httpClient = c
	}
}

// NewClientFactory returns a factory for organization.
func NewClientFactory(organization string, opts ...FactoryOption) (*ClientFactory, error) {
	if err := ValidateOrganization(organization); err != nil {
		return nil, err
	}
	f := &ClientFactory{
		organization: organization,
		baseURL:      DefaultBaseURL,
		searchURL:    DefaultSearchURL,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Organization returns the organization name.
func (f *ClientFactory) Organization() string {
	return f.organization
}

// OrganizationURL returns the organization's base URL.
func (f *ClientFactory) OrganizationURL() string {
	return f.baseURL + "/" + f.organization
}

// NewClient implements Factory.
func (f *ClientFactory) NewClient(_ context.Context, tok *oauth2.Token, userAgent string) (OrgClient, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrNoToken
	}
	return &orgClient{
		conn: newConnection(f.OrganizationURL(), tok, userAgent),
		search: &searchClient{
			endpoint:   f.searchURL + "/" + f.organization,
			token:      tok,
			userAgent:  userAgent,
			httpClient: f.httpClient,
		},
	}, nil
}

// ValidateOrganization rejects names that cannot form an organization URL.
func ValidateOrganization(organization string) error {
	if strings.TrimSpace(organization) == "" {
		return &auth.ConfigurationError{Field: "organization", Reason: "must not be empty"}
	}
	if strings.ContainsAny(organization, "/?#:@ ") {
		return &auth.ConfigurationError{
			Field:  "organization",
			Reason: fmt.Sprintf("%q is a URL or contains reserved characters; pass the organization name only", organization),
		}
	}
	return nil
}

// Clients hands tool handlers an OrgClient carrying the current call's
// identity.
type Clients struct {
	tokens           TokenSource
	factory          Factory
	defaultUserAgent string
}

// NewClients joins tokens and factory.
func NewClients(tokens TokenSource, factory Factory, defaultUserAgent string) *Clients {
	return &Clients{tokens: tokens, factory: factory, defaultUserAgent: defaultUserAgent}
}

// For acquires a token for ctx and builds a client with it.
func (c *Clients) For(ctx context.Context) (OrgClient, error) {
	tok, err := c.tokens.Acquire(ctx, "")
	if err != nil {
		return nil, err
	}
	ua := mcpcontext.UserAgent(ctx)
	if ua == "" {
		ua = c.defaultUserAgent
	}
	client, err := c.factory.NewClient(ctx, tok, ua)
	if err != nil {
		return nil, fmt.Errorf("creating organization client: %w", err)
	}
	return client, nil
}

var _ ClientProvider = (*Clients)(nil)
