// Package search provides the code search tool.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkit"
)

const (
	kind = "search"

	toolSearchCode = "search_code"
)

type searchCodeInput struct {
	SearchText string   `json:"searchText" jsonschema:"Keywords to search for in code"`
	Project    []string `json:"project,omitempty" jsonschema:"Restrict the search to these projects"`
	Repository []string `json:"repository,omitempty" jsonschema:"Restrict the search to these repositories"`
	Path       []string `json:"path,omitempty" jsonschema:"Restrict the search to these paths"`
	Branch     []string `json:"branch,omitempty" jsonschema:"Restrict the search to these branches"`
	Top        int      `json:"top,omitempty" jsonschema:"Maximum number of results to return"`
	Skip       int      `json:"skip,omitempty" jsonschema:"Number of results to skip"`
}

// Toolkit implements the search toolkit.
type Toolkit struct {
	name    string
	clients devops.ClientProvider
	config  Config
}

// New creates a search toolkit.
func New(name string, clients devops.ClientProvider, config Config) (*Toolkit, error) {
	if clients == nil {
		return nil, errors.New("search toolkit requires an organization client provider")
	}
	if config.DefaultTop <= 0 {
		config.DefaultTop = devops.DefaultSearchTop
	}
	if config.MaxTop <= 0 {
		config.MaxTop = DefaultMaxTop
	}
	return &Toolkit{name: name, clients: clients, config: config}, nil
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return kind
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// RegisterTools registers the search tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolSearchCode,
		Description: "Search Azure DevOps repositories for code matching the given text.",
		Annotations: toolkit.ReadOnly("Search code"),
	}, t.handleSearchCode)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{toolSearchCode}
}

// Close releases resources.
func (*Toolkit) Close() error {
	return nil
}

func (t *Toolkit) handleSearchCode(ctx context.Context, _ *mcp.CallToolRequest, input searchCodeInput) (*mcp.CallToolResult, any, error) {
	if input.SearchText == "" {
		return toolkit.ErrorResult(devops.ErrEmptySearchText.Error()), nil, nil
	}
	if input.Top < 0 || input.Skip < 0 {
		return toolkit.ErrorResult("top and skip must not be negative"), nil, nil
	}
	if input.Top > t.config.MaxTop {
		return toolkit.ErrorResult(fmt.Sprintf("top must not exceed %d", t.config.MaxTop)), nil, nil
	}

	top := input.Top
	if top == 0 {
		top = t.config.DefaultTop
	}

	client, err := t.clients.For(ctx)
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	result, err := client.SearchCode(ctx, devops.SearchCodeRequest{
		SearchText:   input.SearchText,
		Projects:     input.Project,
		Repositories: input.Repository,
		Paths:        input.Path,
		Branches:     input.Branch,
		Top:          top,
		Skip:         input.Skip,
	})
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return toolkit.JSONResult(result)
}
