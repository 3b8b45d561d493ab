// Package repositories provides the Git repository tools.
package repositories

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkit"
)

const (
	kind = "repositories"

	toolListRepos = "repo_list_repos_by_project"
)

type listReposInput struct {
	Project    string `json:"project" jsonschema:"Project ID or name"`
	NameFilter string `json:"repoNameFilter,omitempty" jsonschema:"Only return repositories whose name contains this text"`
	Top        int    `json:"top,omitempty" jsonschema:"Maximum number of repositories to return"`
	Skip       int    `json:"skip,omitempty" jsonschema:"Number of repositories to skip"`
}

type listReposOutput struct {
	Project      string              `json:"project"`
	Count        int                 `json:"count"`
	Repositories []devops.Repository `json:"repositories"`
}

// Toolkit implements the repositories toolkit.
type Toolkit struct {
	name    string
	clients devops.ClientProvider
}

// New creates a repositories toolkit.
func New(name string, clients devops.ClientProvider) (*Toolkit, error) {
	if clients == nil {
		return nil, errors.New("repositories toolkit requires an organization client provider")
	}
	return &Toolkit{name: name, clients: clients}, nil
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return kind
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// RegisterTools registers the repository tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolListRepos,
		Description: "List the Git repositories of an Azure DevOps project, sorted by name.",
		Annotations: toolkit.ReadOnly("List repositories"),
	}, t.handleListRepos)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{toolListRepos}
}

// Close releases resources.
func (*Toolkit) Close() error {
	return nil
}

func (t *Toolkit) handleListRepos(ctx context.Context, _ *mcp.CallToolRequest, input listReposInput) (*mcp.CallToolResult, any, error) {
	if input.Project == "" {
		return toolkit.ErrorResult("project is required"), nil, nil
	}
	if input.Top < 0 || input.Skip < 0 {
		return toolkit.ErrorResult("top and skip must not be negative"), nil, nil
	}

	client, err := t.clients.For(ctx)
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	repos, err := client.ListRepositories(ctx, input.Project)
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	repos = filterRepos(repos, input.NameFilter)
	repos = pageRepos(repos, input.Skip, input.Top)

	return toolkit.JSONResult(listReposOutput{Project: input.Project, Count: len(repos), Repositories: repos})
}

// filterRepos keeps repositories whose name contains filter, ignoring case,
// and sorts them by name.
func filterRepos(repos []devops.Repository, filter string) []devops.Repository {
	filter = strings.ToLower(filter)
	out := make([]devops.Repository, 0, len(repos))
	for _, r := range repos {
		if filter == "" || strings.Contains(strings.ToLower(r.Name), filter) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b devops.Repository) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

func pageRepos(repos []devops.Repository, skip, top int) []devops.Repository {
	if skip >= len(repos) {
		return []devops.Repository{}
	}
	repos = repos[skip:]
	if top > 0 && top < len(repos) {
		repos = repos[:top]
	}
	return repos
}
