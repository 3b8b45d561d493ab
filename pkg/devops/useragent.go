package devops

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// productName prefixes every user agent sent to Azure DevOps.
const productName = "AzureDevOps.MCP"

// UserAgent returns the user agent for this server at version, acting for
// client. client may be nil before a session has initialized.
func UserAgent(version string, client *mcp.Implementation) string {
	base := productName + "/" + version
	if client == nil || client.Name == "" {
		return base
	}
	if client.Version == "" {
		return fmt.Sprintf("%s (%s)", base, client.Name)
	}
	return fmt.Sprintf("%s (%s/%s)", base, client.Name, client.Version)
}

// UserAgentFunc binds version for use by per-session middleware.
func UserAgentFunc(version string) func(*mcp.Implementation) string {
	return func(client *mcp.Implementation) string {
		return UserAgent(version, client)
	}
}
