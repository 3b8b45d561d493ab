// Package core provides the project and team tools.
package core

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkit"
)

const (
	kind = "core"

	toolListProjects = "core_list_projects"
	toolListTeams    = "core_list_project_teams"
)

var (
	errNegativePage   = errors.New("top and skip must not be negative")
	errMissingProject = errors.New("project is required")
)

type listProjectsInput struct {
	Top  int `json:"top,omitempty" jsonschema:"Maximum number of projects to return"`
	Skip int `json:"skip,omitempty" jsonschema:"Number of projects to skip"`
}

type listProjectsOutput struct {
	Count    int              `json:"count"`
	Projects []devops.Project `json:"projects"`
}

type listTeamsInput struct {
	Project string `json:"project" jsonschema:"Project ID or name"`
	Mine    bool   `json:"mine,omitempty" jsonschema:"Only return teams the caller belongs to"`
	Top     int    `json:"top,omitempty" jsonschema:"Maximum number of teams to return"`
	Skip    int    `json:"skip,omitempty" jsonschema:"Number of teams to skip"`
}

type listTeamsOutput struct {
	Project string        `json:"project"`
	Count   int           `json:"count"`
	Teams   []devops.Team `json:"teams"`
}

// Toolkit implements the core toolkit.
type Toolkit struct {
	name    string
	clients devops.ClientProvider
	config  Config
}

// New creates a core toolkit.
func New(name string, clients devops.ClientProvider, config Config) (*Toolkit, error) {
	if clients == nil {
		return nil, errors.New("core toolkit requires an organization client provider")
	}
	if config.DefaultTop <= 0 {
		config.DefaultTop = DefaultTop
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

// RegisterTools registers the project and team tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: toolListProjects,
		Description: toolkit.Describe(t.config.Descriptions, toolListProjects,
			"List the projects in the Azure DevOps organization."),
		Annotations: toolkit.ReadOnly("List projects"),
	}, t.handleListProjects)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolListTeams,
		Description: toolkit.Describe(t.config.Descriptions, toolListTeams,
			"List the teams of an Azure DevOps project."),
		Annotations: toolkit.ReadOnly("List project teams"),
	}, t.handleListTeams)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{toolListProjects, toolListTeams}
}

// Close releases resources.
func (*Toolkit) Close() error {
	return nil
}

func (t *Toolkit) handleListProjects(ctx context.Context, _ *mcp.CallToolRequest, input listProjectsInput) (*mcp.CallToolResult, any, error) {
	if input.Top < 0 || input.Skip < 0 {
		return toolkit.ErrorResult(errNegativePage.Error()), nil, nil
	}

	client, err := t.clients.For(ctx)
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	projects, err := client.ListProjects(ctx, devops.ListProjectsOptions{
		Top:  t.top(input.Top),
		Skip: input.Skip,
	})
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return toolkit.JSONResult(listProjectsOutput{Count: len(projects), Projects: projects})
}

func (t *Toolkit) handleListTeams(ctx context.Context, _ *mcp.CallToolRequest, input listTeamsInput) (*mcp.CallToolResult, any, error) {
	if input.Project == "" {
		return toolkit.ErrorResult(errMissingProject.Error()), nil, nil
	}
	if input.Top < 0 || input.Skip < 0 {
		return toolkit.ErrorResult(errNegativePage.Error()), nil, nil
	}

	client, err := t.clients.For(ctx)
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	teams, err := client.ListTeams(ctx, input.Project, devops.ListTeamsOptions{
		Mine: input.Mine,
		Top:  t.top(input.Top),
		Skip: input.Skip,
	})
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return toolkit.JSONResult(listTeamsOutput{Project: input.Project, Count: len(teams), Teams: teams})
}

func (t *Toolkit) top(requested int) int {
	if requested > 0 {
		return requested
	}
	return t.config.DefaultTop
}
