package devops

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

const (
	searchAPIVersion = "7.1"

	// DefaultSearchTop is the page size used when none is requested.
	DefaultSearchTop = 25

	// maxErrorBody bounds how much of a failed response is echoed back.
	maxErrorBody = 2048
)

// ErrEmptySearchText is returned for a search without text.
var ErrEmptySearchText = errors.New("search text must not be empty")

// SearchCodeRequest is a code search query.
type SearchCodeRequest struct {
	SearchText   string
	Projects     []string
	Repositories []string
	Paths        []string
	Branches     []string
	Top          int
	Skip         int
}

// SearchCodeResult is one page of code search hits.
type SearchCodeResult struct {
	Count   int       `json:"count"`
	Results []CodeHit `json:"results"`
}

// CodeHit is a file that matched a code search.
type CodeHit struct {
	FileName   string          `json:"fileName"`
	Path       string          `json:"path"`
	Project    NamedRef        `json:"project"`
	Repository NamedRef        `json:"repository"`
	Versions   []CodeVersion   `json:"versions,omitempty"`
	Matches    json.RawMessage `json:"matches,omitempty"`
}

// NamedRef names a project or repository in a search hit.
type NamedRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// CodeVersion is a branch in which a hit was found.
type CodeVersion struct {
	BranchName string `json:"branchName"`
	ChangeID   string `json:"changeId,omitempty"`
}

// APIError is a non-2xx response from a REST call.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("azure devops returned %d: %s", e.StatusCode, e.Body)
}

type searchBody struct {
	SearchText    string              `json:"searchText"`
	Skip          int                 `json:"$skip"`
	Top           int                 `json:"$top"`
	Filters       map[string][]string `json:"filters,omitempty"`
	IncludeFacets bool                `json:"includeFacets"`
}

// searchClient calls the code search REST API, which the SDK does not wrap.
type searchClient struct {
	endpoint   string
	token      *oauth2.Token
	userAgent  string
	httpClient *http.Client
}

// Search runs one code search query.
func (c *searchClient) Search(ctx context.Context, req SearchCodeRequest) (*SearchCodeResult, error) {
	if req.SearchText == "" {
		return nil, ErrEmptySearchText
	}

	payload, err := json.Marshal(newSearchBody(req))
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	url := fmt.Sprintf("%s/_apis/search/codesearchresults?api-version=%s", c.endpoint, searchAPIVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client(ctx).Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("searching code: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	var result SearchCodeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	if result.Results == nil {
		result.Results = []CodeHit{}
	}
	return &result, nil
}

// client returns an HTTP client that signs requests with the caller's
// token, layered over the factory's base client.
func (c *searchClient) client(ctx context.Context) *http.Client {
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(c.token))
}

func newSearchBody(req SearchCodeRequest) searchBody {
	body := searchBody{
		SearchText: req.SearchText,
		Skip:       max(req.Skip, 0),
		Top:        req.Top,
	}
	if body.Top <= 0 {
		body.Top = DefaultSearchTop
	}

	filters := map[string][]string{}
	addFilter(filters, "Project", req.Projects)
	addFilter(filters, "Repository", req.Repositories)
	addFilter(filters, "Path", req.Paths)
	addFilter(filters, "Branch", req.Branches)
	if len(filters) > 0 {
		body.Filters = filters
	}
	return body
}

func addFilter(filters map[string][]string, key string, values []string) {
	if len(values) > 0 {
		filters[key] = values
	}
}
