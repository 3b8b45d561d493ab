// Package registry provides toolkit registration and management.
package registry

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
)

// Toolkit is the interface that every domain toolkit implements.
type Toolkit interface {
	// Kind returns the domain the toolkit serves (e.g., "core", "search").
	Kind() string

	// Name returns the instance name.
	Name() string

	// RegisterTools registers all tools with the MCP server.
	RegisterTools(s *mcp.Server)

	// Tools returns a list of tool names provided by this toolkit.
	Tools() []string

	// Close releases resources.
	Close() error
}

// ToolkitFactory creates a toolkit bound to clients from configuration.
type ToolkitFactory func(name string, clients devops.ClientProvider, config map[string]any) (Toolkit, error)

// ToolkitConfig holds configuration for a toolkit instance.
type ToolkitConfig struct {
	Kind   string
	Name   string
	Config map[string]any
}
