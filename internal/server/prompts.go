package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/config"
)

// registerPrompts registers the configured prompts with the MCP server.
func registerPrompts(s *mcp.Server, prompts []config.PromptConfig) {
	for _, promptCfg := range prompts {
		registerPrompt(s, promptCfg)
	}
}

// registerPrompt registers a single prompt with the MCP server.
func registerPrompt(s *mcp.Server, cfg config.PromptConfig) {
	promptContent := cfg.Content

	s.AddPrompt(&mcp.Prompt{
		Name:        cfg.Name,
		Description: cfg.Description,
	}, func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Messages: []*mcp.PromptMessage{
				{
					Role: "user",
					Content: &mcp.TextContent{
						Text: promptContent,
					},
				},
			},
		}, nil
	})
}
