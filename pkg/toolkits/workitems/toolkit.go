// Package workitems provides the work item tools.
package workitems

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkit"
)

const (
	kind = "work-items"

	toolGetWorkItem = "wit_get_work_item"
)

type getWorkItemInput struct {
	ID      int      `json:"id" jsonschema:"The work item ID"`
	Project string   `json:"project,omitempty" jsonschema:"Project ID or name the work item belongs to"`
	Fields  []string `json:"fields,omitempty" jsonschema:"Reference names of the fields to return, e.g. System.Title"`
}

// Toolkit implements the work items toolkit.
type Toolkit struct {
	name    string
	clients devops.ClientProvider
	config  Config
}

// New creates a work items toolkit.
func New(name string, clients devops.ClientProvider, config Config) (*Toolkit, error) {
	if clients == nil {
		return nil, errors.New("work items toolkit requires an organization client provider")
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

// RegisterTools registers the work item tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetWorkItem,
		Description: "Get a single work item by ID.",
		Annotations: toolkit.ReadOnly("Get work item"),
	}, t.handleGetWorkItem)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{toolGetWorkItem}
}

// Close releases resources.
func (*Toolkit) Close() error {
	return nil
}

func (t *Toolkit) handleGetWorkItem(ctx context.Context, _ *mcp.CallToolRequest, input getWorkItemInput) (*mcp.CallToolResult, any, error) {
	if input.ID <= 0 {
		return toolkit.ErrorResult("id must be a positive work item ID"), nil, nil
	}

	fields := input.Fields
	if len(fields) == 0 {
		fields = t.config.DefaultFields
	}

	client, err := t.clients.For(ctx)
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	wi, err := client.GetWorkItem(ctx, input.ID, devops.GetWorkItemOptions{
		Project: input.Project,
		Fields:  fields,
	})
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return toolkit.JSONResult(wi)
}
